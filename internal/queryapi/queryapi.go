// Package queryapi implements spec.md §4.8's read-only view contract over
// Store/Aggregates, pivoting bucket keys with Store.Keys and resolving USD
// valuations lazily via PriceOracle. Grounded on the teacher's
// api/response_cache.go read-path shape (fetch, decorate with USD,
// shape into a view struct) and repository's query helpers, generalized
// from Flow account/transaction views to bridge/pool aggregate views.
package queryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// KVStore is the slice of store.Store the QueryAPI needs.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Keys(ctx context.Context, pattern string, groupIdx int) (map[string][]string, error)
}

// PriceOracle is the slice of priceoracle.Oracle the QueryAPI needs.
type PriceOracle interface {
	GetForAddress(ctx context.Context, chain, tokenAddr string, date string) (decimal.Decimal, error)
}

// API implements spec.md §4.8.
type API struct {
	Store  KVStore
	Prices PriceOracle
	Chains map[string]models.Chain

	// Chain is the RPC client views 6-8 and C8a read contract state through.
	// Nil is fine for an API instance that only serves the aggregate views.
	Chain ChainClient
	// Tokens lists every known token on a chain, for treasury_balances and
	// circulating_supply's address lookup.
	Tokens func(chain string) []models.Token
	// PoolTokens resolves a pool's ordered token list for admin_fees'
	// per-index getAdminBalance calls.
	PoolTokens PoolTokenLister
}

// TokenVolume is one (date, token) record inside a ChainVolume view.
type TokenVolume struct {
	Date        string          `json:"date"`
	Asset       string          `json:"asset"`
	ToChainID   *uint64         `json:"to_chain_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	TxCount     int64           `json:"tx_count"`
	USDAdjusted decimal.Decimal `json:"usd_adjusted"`
	USDCurrent  decimal.Decimal `json:"usd_current"`
}

// ChainVolumeView is view 1, chain_volume(chain, direction).
type ChainVolumeView struct {
	Stats struct {
		TotalUSDAdjusted decimal.Decimal `json:"total_usd_adjusted"`
		TotalUSDCurrent  decimal.Decimal `json:"total_usd_current"`
		TotalTxCount     int64           `json:"total_tx_count"`
	} `json:"stats"`
	Data []TokenVolume `json:"data"`
}

// ChainVolume computes view 1: per-token record, per-date for IN, per-date
// x per-to-chain for OUT. usd.adjusted uses the historical price at each
// date; usd.current uses today's spot price against summed volume.
func (a *API) ChainVolume(ctx context.Context, chain string, direction models.Direction) (ChainVolumeView, error) {
	var view ChainVolumeView

	pattern := fmt.Sprintf("%s:bridge:*:*:%s*", chain, direction)
	groups, err := a.Store.Keys(ctx, pattern, 3) // group by asset (index 3 of chain:bridge:date:asset:...)
	if err != nil {
		return view, fmt.Errorf("queryapi: chain_volume keys: %w", err)
	}

	today := currentDate()
	currentPriceByAsset := map[string]decimal.Decimal{}

	for asset, keys := range groups {
		sort.Strings(keys)
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) < 4 {
				continue
			}
			date := parts[2]

			price, err := a.priceFor(ctx, chain, asset, date)
			if err != nil {
				return view, err
			}

			switch direction {
			case models.DirectionIn:
				var bucket models.BridgeInBucket
				if err := a.readBucket(ctx, key, &bucket); err != nil {
					return view, err
				}
				tv := TokenVolume{Date: date, Asset: asset, Amount: bucket.Amount, TxCount: bucket.TxCount}
				tv.USDAdjusted = bucket.Amount.Mul(price)
				view.Data = append(view.Data, tv)
				view.Stats.TotalTxCount += bucket.TxCount
				view.Stats.TotalUSDAdjusted = view.Stats.TotalUSDAdjusted.Add(tv.USDAdjusted)
				currentPriceByAsset[asset] = currentPriceByAsset[asset].Add(bucket.Amount)
			case models.DirectionOut:
				if len(parts) < 6 {
					continue
				}
				var bucket models.BridgeOutBucket
				if err := a.readBucket(ctx, key, &bucket); err != nil {
					return view, err
				}
				tv := TokenVolume{Date: date, Asset: asset, Amount: bucket.Amount, TxCount: bucket.TxCount}
				tv.USDAdjusted = bucket.Amount.Mul(price)
				view.Data = append(view.Data, tv)
				view.Stats.TotalTxCount += bucket.TxCount
				view.Stats.TotalUSDAdjusted = view.Stats.TotalUSDAdjusted.Add(tv.USDAdjusted)
				currentPriceByAsset[asset] = currentPriceByAsset[asset].Add(bucket.Amount)
			}
		}
	}

	for asset, totalAmount := range currentPriceByAsset {
		spot, err := a.priceFor(ctx, chain, asset, today)
		if err != nil {
			return view, err
		}
		view.Stats.TotalUSDCurrent = view.Stats.TotalUSDCurrent.Add(totalAmount.Mul(spot))
	}

	return view, nil
}

func (a *API) priceFor(ctx context.Context, chain, asset, date string) (decimal.Decimal, error) {
	price, err := a.Prices.GetForAddress(ctx, chain, asset, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("queryapi: price lookup %s/%s/%s: %w", chain, asset, date, err)
	}
	return price, nil
}

func (a *API) readBucket(ctx context.Context, key string, out interface{}) error {
	val, ok, err := a.Store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("queryapi: read %q: %w", key, err)
	}
	if !ok {
		return nil
	}
	return json.Unmarshal([]byte(val), out)
}
