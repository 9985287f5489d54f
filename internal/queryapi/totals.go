package queryapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// ChainVolumeTotalView is view 2, chain_volume_total(direction): a daily
// chain roll-up across all chains.
type ChainVolumeTotalView struct {
	Data   map[string]map[string]decimal.Decimal `json:"data"`   // date -> chain -> usd
	Totals map[string]decimal.Decimal            `json:"totals"` // chain -> usd
}

// ChainVolumeTotal computes view 2 across every configured chain.
func (a *API) ChainVolumeTotal(ctx context.Context, direction models.Direction) (ChainVolumeTotalView, error) {
	view := ChainVolumeTotalView{Data: map[string]map[string]decimal.Decimal{}, Totals: map[string]decimal.Decimal{}}

	for chain := range a.Chains {
		pattern := fmt.Sprintf("%s:bridge:*:*:%s*", chain, direction)
		keys, err := a.Store.Keys(ctx, pattern, 2) // group by date
		if err != nil {
			return view, fmt.Errorf("queryapi: chain_volume_total keys %s: %w", chain, err)
		}
		for date, bucketKeys := range keys {
			usd, err := a.sumUSDForKeys(ctx, chain, bucketKeys, direction)
			if err != nil {
				return view, err
			}
			if view.Data[date] == nil {
				view.Data[date] = map[string]decimal.Decimal{}
			}
			view.Data[date][chain] = view.Data[date][chain].Add(usd)
			view.Totals[chain] = view.Totals[chain].Add(usd)
		}
	}
	return view, nil
}

func (a *API) sumUSDForKeys(ctx context.Context, chain string, keys []string, direction models.Direction) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, key := range keys {
		parts := strings.Split(key, ":")
		if len(parts) < 4 {
			continue
		}
		date, asset := parts[2], parts[3]
		price, err := a.priceFor(ctx, chain, asset, date)
		if err != nil {
			return decimal.Zero, err
		}
		switch direction {
		case models.DirectionIn:
			var b models.BridgeInBucket
			if err := a.readBucket(ctx, key, &b); err != nil {
				return decimal.Zero, err
			}
			total = total.Add(b.Amount.Mul(price))
		case models.DirectionOut:
			var b models.BridgeOutBucket
			if err := a.readBucket(ctx, key, &b); err != nil {
				return decimal.Zero, err
			}
			total = total.Add(b.Amount.Mul(price))
		}
	}
	return total, nil
}

// ChainTxCountTotalView is view 3: the same shape as view 2 but counting
// transactions instead of USD.
type ChainTxCountTotalView struct {
	Data   map[string]map[string]int64 `json:"data"`
	Totals map[string]int64            `json:"totals"`
}

func (a *API) ChainTxCountTotal(ctx context.Context, direction models.Direction) (ChainTxCountTotalView, error) {
	view := ChainTxCountTotalView{Data: map[string]map[string]int64{}, Totals: map[string]int64{}}

	for chain := range a.Chains {
		pattern := fmt.Sprintf("%s:bridge:*:*:%s*", chain, direction)
		keys, err := a.Store.Keys(ctx, pattern, 2)
		if err != nil {
			return view, fmt.Errorf("queryapi: chain_tx_count_total keys %s: %w", chain, err)
		}
		for date, bucketKeys := range keys {
			var count int64
			for _, key := range bucketKeys {
				switch direction {
				case models.DirectionIn:
					var b models.BridgeInBucket
					if err := a.readBucket(ctx, key, &b); err != nil {
						return view, err
					}
					count += b.TxCount
				case models.DirectionOut:
					var b models.BridgeOutBucket
					if err := a.readBucket(ctx, key, &b); err != nil {
						return view, err
					}
					count += b.TxCount
				}
			}
			if view.Data[date] == nil {
				view.Data[date] = map[string]int64{}
			}
			view.Data[date][chain] += count
			view.Totals[chain] += count
		}
	}
	return view, nil
}

// ChainVolumeForAddress is view 4: a single-token slice of ChainVolume.
func (a *API) ChainVolumeForAddress(ctx context.Context, chain, token string, direction models.Direction) ([]TokenVolume, error) {
	full, err := a.ChainVolume(ctx, chain, direction)
	if err != nil {
		return nil, err
	}
	token = strings.ToLower(token)
	var out []TokenVolume
	for _, tv := range full.Data {
		if strings.ToLower(tv.Asset) == token {
			out = append(out, tv)
		}
	}
	return out, nil
}
