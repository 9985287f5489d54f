// Package indexer implements the per-chain resumable log scanner of
// spec.md §4.4: read the cursor, page through [cursor, tip] in
// max_blocks-sized windows, decode and merge every log strictly after the
// cursor, and only ever advance the cursor as part of a successful merge.
// Grounded on the teacher's network_poller.go ticker-and-catch-up loop,
// generalized from Flow's single height counter to an EVM (block, tx_index)
// pair per spec.md's cursor model.
package indexer

import (
	"context"
	"fmt"
	"sort"

	"github.com/synindex/bridge-analytics/internal/aggregator"
	"github.com/synindex/bridge-analytics/internal/chainclient"
	"github.com/synindex/bridge-analytics/internal/decoder"
	"github.com/synindex/bridge-analytics/internal/models"
)

// CursorReader is the slice of store.Store the Indexer needs to resume a
// scan; advancing the cursor itself is the Aggregator's job (spec.md §4.5
// step 4), so the Indexer only ever reads it.
type CursorReader interface {
	Cursor(ctx context.Context, chain, namespace, address string) (models.Cursor, error)
}

// Runner scans one chain's bridge contract or pool contract.
type Runner struct {
	Chain      models.Chain
	Client     chainclient.ChainClient
	Decoder    *decoder.Decoder
	Aggregator *aggregator.Aggregator
	Cursors    CursorReader
}

// RunBridgePass scans the bridge contract from the stored cursor (or
// BridgeStart on first run) to the chain tip, decoding every bridge topic
// and merging it, per spec.md §4.4's loop.
func (r *Runner) RunBridgePass(ctx context.Context) error {
	return r.runPass(ctx, "logs", r.Chain.BridgeAddress, r.Chain.BridgeStart, decoder.BridgeTopicHashes(), r.decodeBridgeLog)
}

// RunStablePoolPass scans the stable-swap (nUSD) pool contract.
func (r *Runner) RunStablePoolPass(ctx context.Context, decimalsOf decoder.PoolDecimalsLookup, decimalsArray decoder.PoolDecimalsArray) error {
	return r.runPass(ctx, "pool", r.Chain.StablePool, r.Chain.StablePoolStart, decoder.PoolTopicHashes(), r.poolLogDecoderFor(models.PoolKindNUSD, decimalsOf, decimalsArray))
}

// RunEthPoolPass scans the nETH pool contract.
func (r *Runner) RunEthPoolPass(ctx context.Context, decimalsOf decoder.PoolDecimalsLookup, decimalsArray decoder.PoolDecimalsArray) error {
	return r.runPass(ctx, "pool", r.Chain.EthPool, r.Chain.EthPoolStart, decoder.PoolTopicHashes(), r.poolLogDecoderFor(models.PoolKindNETH, decimalsOf, decimalsArray))
}

type logDecoder func(ctx context.Context, lg chainclient.Log) (models.Event, bool, error)

// runPass implements spec.md §4.4's loop literally: page windows of
// max_blocks, sort by (block, tx_index), filter anything at or behind the
// cursor, decode, merge. A window that can't be fetched after the
// ChainClient's own retry budget aborts the pass without advancing past
// the last successfully merged event — the Scheduler retries next tick.
func (r *Runner) runPass(ctx context.Context, namespace, address string, startBlock uint64, topics []string, decode logDecoder) error {
	if address == "" {
		return nil // chain has no contract of this kind configured
	}

	cursor, err := r.Cursors.Cursor(ctx, r.Chain.Name, namespace, address)
	if err != nil {
		return fmt.Errorf("indexer: read cursor %s/%s/%s: %w", r.Chain.Name, namespace, address, err)
	}
	from := cursor.MaxBlockStored
	if startBlock > from {
		from = startBlock
	}
	txFloor := cursor.TxIndex

	tip, err := r.Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("indexer: block number for %s: %w", r.Chain.Name, err)
	}

	maxBlocks := r.Chain.MaxBlocks
	if maxBlocks == 0 {
		maxBlocks = 5000
	}

	for from < tip {
		to := from + maxBlocks
		if to > tip {
			to = tip
		}

		logs, err := r.Client.GetLogs(ctx, from, to, address, topics)
		if err != nil {
			return fmt.Errorf("indexer: get logs %s [%d,%d]: %w", r.Chain.Name, from, to, err)
		}
		sort.Slice(logs, func(i, j int) bool {
			if logs[i].BlockNumber != logs[j].BlockNumber {
				return logs[i].BlockNumber < logs[j].BlockNumber
			}
			return logs[i].TxIndex < logs[j].TxIndex
		})

		for _, lg := range logs {
			floor := models.Cursor{MaxBlockStored: cursor.MaxBlockStored, TxIndex: txFloor}
			if floor.Before(lg.BlockNumber, int64(lg.TxIndex)) {
				continue
			}

			ev, ok, err := decode(ctx, lg)
			if err != nil {
				return fmt.Errorf("indexer: decode %s tx=%s: %w", r.Chain.Name, lg.TxHash, err)
			}
			if !ok {
				continue
			}

			blockTime, err := r.Client.GetBlock(ctx, lg.BlockNumber)
			if err != nil {
				return fmt.Errorf("indexer: get block %d: %w", lg.BlockNumber, err)
			}
			if err := r.Aggregator.Merge(ctx, ev, address, blockTime.Timestamp); err != nil {
				return fmt.Errorf("indexer: merge %s tx=%s: %w", r.Chain.Name, lg.TxHash, err)
			}

			cursor.MaxBlockStored = lg.BlockNumber
			txFloor = int64(lg.TxIndex)
		}

		from = to + 1
	}

	return nil
}

func (r *Runner) decodeBridgeLog(ctx context.Context, lg chainclient.Log) (models.Event, bool, error) {
	block, err := r.Client.GetBlock(ctx, lg.BlockNumber)
	if err != nil {
		return models.Event{}, false, err
	}
	var tx chainclient.TxData
	if len(lg.Topics) > 0 && decoder.LookupTopic(lg.Topics[0]).Direction() == models.DirectionIn {
		tx, err = r.Client.GetTransaction(ctx, lg.TxHash)
		if err != nil {
			return models.Event{}, false, err
		}
	}
	ev, ok := r.Decoder.DecodeBridgeLog(ctx, r.Chain.Name, block.Timestamp, lg, tx)
	return ev, ok, nil
}

func (r *Runner) poolLogDecoderFor(kind models.PoolKind, decimalsOf decoder.PoolDecimalsLookup, decimalsArray decoder.PoolDecimalsArray) logDecoder {
	return func(ctx context.Context, lg chainclient.Log) (models.Event, bool, error) {
		block, err := r.Client.GetBlock(ctx, lg.BlockNumber)
		if err != nil {
			return models.Event{}, false, err
		}
		ev, ok := r.Decoder.DecodePoolLog(ctx, r.Chain.Name, block.Timestamp, kind, decimalsOf, decimalsArray, lg)
		return ev, ok, nil
	}
}
