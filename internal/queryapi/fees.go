package queryapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// DatedUSD is one (date, usd) point, the shape views 5 and 9 return.
type DatedUSD struct {
	Date string          `json:"date"`
	USD  decimal.Decimal `json:"usd"`
}

// BridgeFees is view 5: iterate IN buckets for (chain, token) and multiply
// fees by the historical price at each date.
func (a *API) BridgeFees(ctx context.Context, chain, token string) ([]DatedUSD, error) {
	return a.datedInMetric(ctx, chain, token, func(b models.BridgeInBucket) decimal.Decimal { return b.Fees })
}

// ValidatorGasFees is view 5 (validator_gas_fees): same iteration but over
// validator_gas_paid, across every token the chain's IN buckets cover.
func (a *API) ValidatorGasFees(ctx context.Context, chain string) ([]DatedUSD, error) {
	return a.datedInMetric(ctx, chain, "*", func(b models.BridgeInBucket) decimal.Decimal { return b.ValidatorGasPaid })
}

// AirdropAmounts is view 5 (airdrop_amounts): same iteration over airdrops.
func (a *API) AirdropAmounts(ctx context.Context, chain string) ([]DatedUSD, error) {
	return a.datedInMetric(ctx, chain, "*", func(b models.BridgeInBucket) decimal.Decimal { return b.Airdrops })
}

func (a *API) datedInMetric(ctx context.Context, chain, token string, extract func(models.BridgeInBucket) decimal.Decimal) ([]DatedUSD, error) {
	pattern := fmt.Sprintf("%s:bridge:*:%s:IN", chain, token)
	groups, err := a.Store.Keys(ctx, pattern, 2) // group by date
	if err != nil {
		return nil, fmt.Errorf("queryapi: datedInMetric keys: %w", err)
	}

	var out []DatedUSD
	for date, keys := range groups {
		total := decimal.Zero
		for _, key := range keys {
			parts := strings.Split(key, ":")
			if len(parts) < 4 {
				continue
			}
			asset := parts[3]
			var b models.BridgeInBucket
			if err := a.readBucket(ctx, key, &b); err != nil {
				return nil, err
			}
			price, err := a.priceFor(ctx, chain, asset, date)
			if err != nil {
				return nil, err
			}
			total = total.Add(extract(b).Mul(price))
		}
		out = append(out, DatedUSD{Date: date, USD: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
