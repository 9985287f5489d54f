package queryapi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// ChartPoint is one entry of view 9's flattened time series.
type ChartPoint struct {
	DateTS  int64           `json:"date_ts"`
	Price   decimal.Decimal `json:"price"`
	Volume  decimal.Decimal `json:"volume"`
	TxCount int64           `json:"tx_count"`
}

// BridgeChart is view 9: bridge_chart(chain, direction), flattened per
// address into a single ascending-date series regardless of asset — the
// HTTP layer groups by address client-side if it needs per-token charts.
func (a *API) BridgeChart(ctx context.Context, chain string, direction models.Direction) ([]ChartPoint, error) {
	pattern := fmt.Sprintf("%s:bridge:*:*:%s*", chain, direction)
	groups, err := a.Store.Keys(ctx, pattern, 2) // group by date
	if err != nil {
		return nil, fmt.Errorf("queryapi: bridge_chart keys: %w", err)
	}

	var out []ChartPoint
	for date, keys := range groups {
		ts, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		volume := decimal.Zero
		var txCount int64
		var lastPrice decimal.Decimal

		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) < 4 {
				continue
			}
			asset := parts[3]
			price, err := a.priceFor(ctx, chain, asset, date)
			if err != nil {
				return nil, err
			}
			lastPrice = price

			switch direction {
			case models.DirectionIn:
				var b models.BridgeInBucket
				if err := a.readBucket(ctx, key, &b); err != nil {
					return nil, err
				}
				volume = volume.Add(b.Amount)
				txCount += b.TxCount
			case models.DirectionOut:
				var b models.BridgeOutBucket
				if err := a.readBucket(ctx, key, &b); err != nil {
					return nil, err
				}
				volume = volume.Add(b.Amount)
				txCount += b.TxCount
			}
		}

		out = append(out, ChartPoint{DateTS: ts.Unix(), Price: lastPrice, Volume: volume, TxCount: txCount})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DateTS < out[j].DateTS })
	return out, nil
}
