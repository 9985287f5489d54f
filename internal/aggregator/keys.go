// Package aggregator merges canonical models.Event values into per-day
// Store buckets under the keyed invariants of spec.md §3.1/§3.2, and
// advances the per-contract cursor as part of the same logical write
// (§4.4 step 3-4).
package aggregator

import (
	"fmt"

	"github.com/synindex/bridge-analytics/internal/models"
)

func bridgeInKey(chain, date, asset string) string {
	return fmt.Sprintf("%s:bridge:%s:%s:IN", chain, date, asset)
}

func bridgeOutKey(chain, date, asset string, toChainID uint64) string {
	return fmt.Sprintf("%s:bridge:%s:%s:OUT:%d", chain, date, asset, toChainID)
}

func poolSwapKey(chain, date string, kind models.PoolKind, sub models.PoolSubKind) string {
	return fmt.Sprintf("%s:pool:%s:%s:%s", chain, date, kind, sub)
}

func poolFeeKey(chain, date string, kind models.PoolKind, feeKind models.FeeKind) string {
	return fmt.Sprintf("%s:pool:%s:%s:newfee_%s", chain, date, kind, feeKind)
}

func dateAnchorKey(chain, date string) string {
	return fmt.Sprintf("%s:date2block:%s", chain, date)
}

// cursorAddress picks the contract address a cursor is tracked against —
// the bridge contract for BridgeIn/Out, the relevant pool for PoolSwap/
// PoolFeeChange. The Indexer supplies it since only it knows the roster.
func cursorNamespace(kind models.EventKind) string {
	switch kind {
	case models.EventBridgeIn, models.EventBridgeOut:
		return "logs"
	default:
		return "pool"
	}
}
