package chainclient

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// GasStats is the {gas_paid, gas_price} pair spec.md §4.1 computes per chain
// family from a transaction receipt.
type GasStats struct {
	GasPaid  decimal.Decimal
	GasPrice decimal.Decimal
}

var gweiDivisor = decimal.NewFromInt(1_000_000_000)

// GasStatsFor computes GasStats for chainName from r, following the three
// chain-family rules in spec.md §4.1:
//
//   - Arbitrum: reads per-bucket paid gas from feeStats.paid, sums the hex
//     values, derives gas_price = total_paid / (1e9 * gas_used).
//   - Optimism/Boba: gas_paid = gas_used*gas_price + l1Fee;
//     gas_price = gas_paid / (1e9 * gas_used).
//   - Everything else: gas_paid = gas_used*gas_price/1e9;
//     gas_price = gas_price/1e9.
func GasStatsFor(chainName string, r Receipt) GasStats {
	chainName = strings.ToLower(chainName)
	gasUsed := decimal.NewFromBigInt(new(big.Int).SetUint64(r.GasUsed), 0)
	gasPriceWei := decimal.Zero
	if r.GasPrice != nil {
		gasPriceWei = decimal.NewFromBigInt(r.GasPrice, 0)
	}

	switch chainName {
	case "arbitrum":
		totalPaid := arbitrumFeeStatsPaid(r.Raw)
		if gasUsed.IsZero() {
			return GasStats{GasPaid: totalPaid, GasPrice: decimal.Zero}
		}
		return GasStats{
			GasPaid:  totalPaid,
			GasPrice: totalPaid.Div(gweiDivisor.Mul(gasUsed)),
		}
	case "optimism", "boba":
		l1Fee := hexFieldDecimal(r.Raw, "l1Fee")
		gasPaid := gasUsed.Mul(gasPriceWei).Add(l1Fee)
		if gasUsed.IsZero() {
			return GasStats{GasPaid: gasPaid, GasPrice: decimal.Zero}
		}
		return GasStats{
			GasPaid:  gasPaid,
			GasPrice: gasPaid.Div(gweiDivisor.Mul(gasUsed)),
		}
	default:
		gasPaid := gasUsed.Mul(gasPriceWei).Div(gweiDivisor)
		return GasStats{
			GasPaid:  gasPaid,
			GasPrice: gasPriceWei.Div(gweiDivisor),
		}
	}
}

// arbitrumFeeStatsPaid sums the hex values under receipt.feeStats.paid, the
// classic Arbitrum Nitro predecessor's per-bucket gas accounting object
// (e.g. {"l1Transaction": "0x..", "l1Calldata": "0x..", "l2Storage": "0x..",
// "l2Computation": "0x.."}).
func arbitrumFeeStatsPaid(raw map[string]interface{}) decimal.Decimal {
	total := decimal.Zero
	feeStats, ok := raw["feeStats"].(map[string]interface{})
	if !ok {
		return total
	}
	paid, ok := feeStats["paid"].(map[string]interface{})
	if !ok {
		return total
	}
	for _, v := range paid {
		n, err := hexToBigInt(v)
		if err != nil {
			continue
		}
		total = total.Add(decimal.NewFromBigInt(n, 0))
	}
	return total
}

func hexFieldDecimal(raw map[string]interface{}, field string) decimal.Decimal {
	v, ok := raw[field]
	if !ok {
		return decimal.Zero
	}
	n, err := hexToBigInt(v)
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, 0)
}
