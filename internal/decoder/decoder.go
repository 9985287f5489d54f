package decoder

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/chainclient"
	"github.com/synindex/bridge-analytics/internal/models"
)

// TokenResolver looks up and memoizes token decimals — the surface the
// Decoder needs from config.Roster without importing that package (keeps
// decoder decoupled from config).
type TokenResolver interface {
	Token(chain, address string) (models.Token, bool)
	Learn(models.Token)
}

// BridgeConfigLookup calls the bridge-config contract for an address the
// token table doesn't know, per spec.md §4.3 "Unknown token handling". It
// returns (token, false, nil) if the contract call itself fails (not a Go
// error — the caller falls back to the OUT/IN policy), and (token, true,
// nil) on a successful resolution.
type BridgeConfigLookup func(ctx context.Context, chain, address string) (models.Token, bool, error)

// AirdropLookup resolves the chain/block-specific native-gas airdrop per
// spec.md §8 testable property 6.
type AirdropLookup func(chain string, block uint64) decimal.Decimal

// GasStatsLookup resolves validator gas accounting for an IN transaction's
// receipt (spec.md §4.1 gas_stats).
type GasStatsLookup func(ctx context.Context, chain string, txHash string) (chainclient.GasStats, error)

// Decoder parses raw logs and transaction inputs into canonical
// models.Event values. It never panics on unknown topics and falls back
// across three historical bridge ABIs before giving up (spec.md §4.3).
type Decoder struct {
	Tokens       TokenResolver
	BridgeConfig BridgeConfigLookup
	Airdrops     AirdropLookup
	GasStats     GasStatsLookup
	PoolFees     *PoolFeeTracker
}

// DecodeBridgeLog decodes one log emitted by the bridge contract. For OUT
// topics it decodes entirely from the log. For IN topics, per spec.md
// §4.3, the canonical fields come from the *transaction's input*, not the
// log data — callers must pass the TxData for log.TxHash.
func (d *Decoder) DecodeBridgeLog(ctx context.Context, chain string, blockTime time.Time, lg chainclient.Log, tx chainclient.TxData) (models.Event, bool) {
	if len(lg.Topics) == 0 {
		return models.Event{}, false
	}
	topic, gen := LookupTopicWithGen(lg.Topics[0])
	if topic == TopicUnknown || !isBridgeTopic(topic) {
		return models.Event{}, false
	}

	date := blockTime.UTC().Format("2006-01-02")

	if topic.Direction() == models.DirectionOut {
		return d.decodeOutEvent(ctx, chain, date, gen, lg)
	}
	return d.decodeInEvent(ctx, chain, date, topic, lg, tx)
}

func (d *Decoder) decodeOutEvent(ctx context.Context, chain, date string, gen ABIGen, lg chainclient.Log) (models.Event, bool) {
	chainID, tokenAddr, amountRaw, err := decodeOut(gen, lg.Data)
	if err != nil {
		log.Printf("[decoder] OUT decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}

	token, ok := d.resolveToken(ctx, chain, tokenAddr)
	if !ok {
		// Unknown token on OUT: ignored — an unsupported bridge attempt.
		return models.Event{}, false
	}

	ev := buildBridgeOut(chain, date, lg.BlockNumber, lg.TxHash, int64(lg.TxIndex), chainID, token.Address, amountRaw, token.Decimals)
	return ev, true
}

func (d *Decoder) decodeInEvent(ctx context.Context, chain, date string, topic Topic, lg chainclient.Log, tx chainclient.TxData) (models.Event, bool) {
	fields, err := decodeIn(topic, tx.Input)
	if err != nil {
		log.Printf("[decoder] IN decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}

	token, ok := d.resolveToken(ctx, chain, fields.Token)
	if !ok {
		// Unknown token on IN: validator-originated events are expected to
		// use supported tokens — this is a data-model gap worth surfacing.
		log.Printf("[decoder] IN event references unknown token chain=%s token=%s tx=%s", chain, fields.Token, lg.TxHash)
		return models.Event{}, false
	}

	var gasStats chainclient.GasStats
	if d.GasStats != nil {
		if gs, err := d.GasStats(ctx, chain, lg.TxHash); err == nil {
			gasStats = gs
		} else {
			log.Printf("[decoder] gas stats lookup failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		}
	}

	airdrop := decimal.Zero
	if d.Airdrops != nil {
		airdrop = d.Airdrops(chain, lg.BlockNumber)
	}

	ev := models.Event{
		Kind:              models.EventBridgeIn,
		Chain:             chain,
		Date:              date,
		Block:             lg.BlockNumber,
		TxHash:            lg.TxHash,
		TxIndex:           int64(lg.TxIndex),
		Asset:             token.Address,
		Amount:            fields.AmountRaw.Shift(-int32(token.Decimals)),
		Fee:               fields.FeeRaw.Shift(-int32(token.Decimals)),
		ValidatorGasPaid:  gasStats.GasPaid,
		ValidatorGasPrice: gasStats.GasPrice,
		Airdrop:           airdrop,
	}
	return ev, true
}

// resolveToken looks up address in the static table, then falls back to a
// bridge-config contract call on miss, memoizing a successful resolution.
func (d *Decoder) resolveToken(ctx context.Context, chain, address string) (models.Token, bool) {
	if t, ok := d.Tokens.Token(chain, address); ok {
		return t, true
	}
	if d.BridgeConfig == nil {
		return models.Token{}, false
	}
	t, ok, err := d.BridgeConfig(ctx, chain, address)
	if err != nil {
		log.Printf("[decoder] bridge-config lookup failed chain=%s token=%s: %v", chain, address, err)
		return models.Token{}, false
	}
	if !ok {
		return models.Token{}, false
	}
	d.Tokens.Learn(t)
	return t, true
}
