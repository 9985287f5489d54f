package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/synindex/bridge-analytics/internal/models"
)

// cursorKey matches spec.md §4.2's "{chain}:{ns}:{address}:MAX_BLOCK_STORED"
// / "...:TX_INDEX" key formats.
func cursorKey(chain, namespace, address, field string) string {
	return chain + ":" + namespace + ":" + address + ":" + field
}

// Cursor reads the current (MAX_BLOCK_STORED, TX_INDEX) pair for a
// chain/namespace/address, defaulting to (0, -1) when absent.
func (s *Store) Cursor(ctx context.Context, chain, namespace, address string) (models.Cursor, error) {
	c := models.Cursor{Chain: chain, Namespace: namespace, Address: address, TxIndex: -1}

	if v, ok, err := s.Get(ctx, cursorKey(chain, namespace, address, "MAX_BLOCK_STORED")); err != nil {
		return models.Cursor{}, err
	} else if ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return models.Cursor{}, fmt.Errorf("store: corrupt MAX_BLOCK_STORED for %s/%s/%s: %w", chain, namespace, address, err)
		}
		c.MaxBlockStored = n
	}

	if v, ok, err := s.Get(ctx, cursorKey(chain, namespace, address, "TX_INDEX")); err != nil {
		return models.Cursor{}, err
	} else if ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return models.Cursor{}, fmt.Errorf("store: corrupt TX_INDEX for %s/%s/%s: %w", chain, namespace, address, err)
		}
		c.TxIndex = n
	}

	return c, nil
}

// AdvanceCursor writes both cursor fields. Per spec.md §4.4 step 4 this
// must be called as part of the same logical operation as the aggregate
// merge it follows — callers (the Aggregator) are responsible for that
// ordering; the Store itself offers no cross-key transaction.
func (s *Store) AdvanceCursor(ctx context.Context, chain, namespace, address string, block uint64, txIndex int64) error {
	if err := s.Set(ctx, cursorKey(chain, namespace, address, "MAX_BLOCK_STORED"), strconv.FormatUint(block, 10)); err != nil {
		return err
	}
	return s.Set(ctx, cursorKey(chain, namespace, address, "TX_INDEX"), strconv.FormatInt(txIndex, 10))
}
