package decoder

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/synindex/bridge-analytics/internal/chainclient"
	"github.com/synindex/bridge-analytics/internal/models"
)

// PoolDecimalsLookup resolves the decimals of the tokenIndex'th token in a
// chain's pool (stable or eth), needed to convert pool event amounts
// (which reference tokens by index, not address) into human units.
type PoolDecimalsLookup func(chain string, kind models.PoolKind, tokenIndex int) uint8

// PoolDecimalsArray resolves the full decimals-by-index array for a pool,
// used by AddLiquidity/RemoveLiquidityImbalance which sum across every
// token in the pool rather than a single index.
type PoolDecimalsArray func(chain string, kind models.PoolKind) []uint8

// DecodePoolLog decodes one log emitted by a stable/eth pool contract.
// kind identifies which pool (nusd/neth) emitted it — the Indexer knows
// this from which contract address it queried, not from the log itself.
func (d *Decoder) DecodePoolLog(ctx context.Context, chain string, blockTime time.Time, kind models.PoolKind, decimalsOf PoolDecimalsLookup, decimalsArray PoolDecimalsArray, lg chainclient.Log) (models.Event, bool) {
	if len(lg.Topics) == 0 {
		return models.Event{}, false
	}
	topic := LookupTopic(lg.Topics[0])
	if !isPoolTopic(topic) {
		return models.Event{}, false
	}

	base := models.Event{Chain: chain, Date: blockTime.UTC().Format("2006-01-02"), Block: lg.BlockNumber, TxHash: lg.TxHash, TxIndex: int64(lg.TxIndex), PoolKind: kind}

	switch topic {
	case TopicTokenSwap:
		return d.decodeSwapEvent(chain, kind, decimalsOf, lg, base)
	case TopicAddLiquidity:
		return d.decodeAddLiquidityEvent(chain, kind, decimalsArray, lg, base)
	case TopicRemoveLiquidityOne:
		return d.decodeRemoveOneEvent(chain, kind, decimalsOf, lg, base)
	case TopicRemoveLiquidityImbalance:
		return d.decodeRemoveImbalanceEvent(chain, kind, decimalsArray, lg, base)
	case TopicNewSwapFee:
		return d.decodeFeeChangeEvent(chain, kind, models.FeeKindSwap, lg, base)
	case TopicNewAdminFee:
		return d.decodeFeeChangeEvent(chain, kind, models.FeeKindAdmin, lg, base)
	}
	return models.Event{}, false
}

func (d *Decoder) decodeSwapEvent(chain string, kind models.PoolKind, decimalsOf PoolDecimalsLookup, lg chainclient.Log, base models.Event) (models.Event, bool) {
	fees := d.PoolFees.get(chain, kind)
	vals, err := tokenSwapArgs.Unpack(lg.Data)
	if err != nil {
		log.Printf("[decoder] TokenSwap decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	boughtID := decToUint64(vals[4])
	boughtDecimals := decimalsOf(chain, kind, int(boughtID))

	volume, lpFees, adminFees, soldID, _, err := decodeTokenSwap(lg.Data, boughtDecimals, fees)
	if err != nil {
		log.Printf("[decoder] TokenSwap math failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}

	base.Kind = models.EventPoolSwap
	// spec.md §4.3: swap_base if chain is Ethereum, or both indices are
	// non-nUSD (>0); otherwise swap_nusd.
	if strings.EqualFold(chain, "ethereum") || (soldID > 0 && boughtID > 0) {
		base.SubKind = models.PoolSubKindSwapBase
	} else {
		base.SubKind = models.PoolSubKindSwapNUSD
	}
	base.Volume, base.LPFees, base.AdminFees = volume, lpFees, adminFees
	return base, true
}

func (d *Decoder) decodeAddLiquidityEvent(chain string, kind models.PoolKind, decimalsArray PoolDecimalsArray, lg chainclient.Log, base models.Event) (models.Event, bool) {
	fees := d.PoolFees.get(chain, kind)
	volume, lpFees, adminFees, err := decodeAddLiquidity(lg.Data, decimalsArray(chain, kind), fees)
	if err != nil {
		log.Printf("[decoder] AddLiquidity decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	base.Kind = models.EventPoolSwap
	base.SubKind = models.PoolSubKindAddRemove
	base.Volume, base.LPFees, base.AdminFees = volume, lpFees, adminFees
	return base, true
}

func (d *Decoder) decodeRemoveOneEvent(chain string, kind models.PoolKind, decimalsOf PoolDecimalsLookup, lg chainclient.Log, base models.Event) (models.Event, bool) {
	fees := d.PoolFees.get(chain, kind)
	vals, err := removeLiquidityOneArgs.Unpack(lg.Data)
	if err != nil {
		log.Printf("[decoder] RemoveLiquidityOne decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	boughtID := decToUint64(vals[2])
	boughtDecimals := decimalsOf(chain, kind, int(boughtID))

	volume, lpFees, adminFees, err := decodeRemoveLiquidityOne(lg.Data, boughtDecimals, fees)
	if err != nil {
		log.Printf("[decoder] RemoveLiquidityOne math failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	base.Kind = models.EventPoolSwap
	base.SubKind = models.PoolSubKindAddRemove
	base.Volume, base.LPFees, base.AdminFees = volume, lpFees, adminFees
	return base, true
}

func (d *Decoder) decodeRemoveImbalanceEvent(chain string, kind models.PoolKind, decimalsArray PoolDecimalsArray, lg chainclient.Log, base models.Event) (models.Event, bool) {
	fees := d.PoolFees.get(chain, kind)
	volume, lpFees, adminFees, err := decodeRemoveLiquidityImbalance(lg.Data, decimalsArray(chain, kind), fees)
	if err != nil {
		log.Printf("[decoder] RemoveLiquidityImbalance decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	base.Kind = models.EventPoolSwap
	base.SubKind = models.PoolSubKindAddRemove
	base.Volume, base.LPFees, base.AdminFees = volume, lpFees, adminFees
	return base, true
}

func (d *Decoder) decodeFeeChangeEvent(chain string, kind models.PoolKind, feeKind models.FeeKind, lg chainclient.Log, base models.Event) (models.Event, bool) {
	newValue, err := decodeNewFee(lg.Data)
	if err != nil {
		log.Printf("[decoder] fee change decode failed chain=%s tx=%s: %v", chain, lg.TxHash, err)
		return models.Event{}, false
	}
	if feeKind == models.FeeKindSwap {
		d.PoolFees.setSwap(chain, kind, newValue)
	} else {
		d.PoolFees.setAdmin(chain, kind, newValue)
	}
	base.Kind = models.EventPoolFeeChange
	base.FeeKind = feeKind
	base.NewValue = newValue
	return base, true
}
