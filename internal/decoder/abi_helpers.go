package decoder

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// decToDecimal converts an abi.Arguments.Unpack result (always *big.Int for
// our uint128/uint256 fields) to decimal.Decimal in base units.
func decToDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case *big.Int:
		return decimal.NewFromBigInt(n, 0)
	default:
		return decimal.Zero
	}
}

func decToUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case *big.Int:
		return n.Uint64()
	default:
		return 0
	}
}

// decArraySlice converts an unpacked uint256[] ([]*big.Int) into decimals.
func decArraySlice(v interface{}) ([]decimal.Decimal, error) {
	arr, ok := v.([]*big.Int)
	if !ok {
		return nil, errNotBigIntSlice
	}
	out := make([]decimal.Decimal, len(arr))
	for i, n := range arr {
		out[i] = decimal.NewFromBigInt(n, 0)
	}
	return out, nil
}
