package decoder

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// FeeDenominator and FeeDecimals are the pool's fixed fee units per
// spec.md §4.3: fees are stored in units of 10^-10.
const (
	FeeDenominator = 10_000_000_000 // 10^10
	FeeDecimals    = 10
)

var feeDenominatorDec = decimal.NewFromInt(FeeDenominator)
var tenPowFeeDecimals = decimal.NewFromInt(1).Shift(FeeDecimals)

// poolFeeState is the in-process, per-pool current {admin, swap} pair. It is
// derived state, never authoritative — on restart it is re-seeded from
// static initial fees and corrected by replaying NewSwapFee/NewAdminFee
// events from the pool contract's start_block. See spec.md §9 "Global
// mutable state".
type poolFeeState struct {
	Admin uint64
	Swap  uint64
}

// PoolFeeTracker holds the current fee pair for every (chain, poolKind) the
// Decoder has seen, seeded from static config at construction.
type PoolFeeTracker struct {
	mu    sync.Mutex
	state map[string]*poolFeeState
}

func NewPoolFeeTracker(seed map[string]poolFeeState) *PoolFeeTracker {
	t := &PoolFeeTracker{state: make(map[string]*poolFeeState, len(seed))}
	for k, v := range seed {
		v := v
		t.state[k] = &v
	}
	return t
}

func poolKey(chain string, kind models.PoolKind) string { return chain + ":" + string(kind) }

func (t *PoolFeeTracker) get(chain string, kind models.PoolKind) poolFeeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.state[poolKey(chain, kind)]
	if !ok {
		return poolFeeState{}
	}
	return *s
}

func (t *PoolFeeTracker) setSwap(chain string, kind models.PoolKind, v uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := poolKey(chain, kind)
	s, ok := t.state[k]
	if !ok {
		s = &poolFeeState{}
		t.state[k] = s
	}
	s.Swap = v
}

func (t *PoolFeeTracker) setAdmin(chain string, kind models.PoolKind, v uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := poolKey(chain, kind)
	s, ok := t.state[k]
	if !ok {
		s = &poolFeeState{}
		t.state[k] = s
	}
	s.Admin = v
}

// tokenSwapArgs/addLiquidityArgs use go-ethereum's abi package (the
// teacher's own ABI-decoding dependency) since the pool events carry
// dynamic-length arrays that are awkward to hand-slice.
var tokenSwapArgs = mustArgs("buyer", "address", "tokensSold", "uint256", "tokensBought", "uint256", "soldId", "uint128", "boughtId", "uint128")
var addLiquidityArgs = mustArgs("provider", "address", "tokenAmounts", "uint256[]", "fees", "uint256[]", "invariant", "uint256", "lpTokenSupply", "uint256")
var removeLiquidityOneArgs = mustArgs("provider", "address", "lpTokenAmount", "uint256", "lpTokenSupply", "uint256", "boughtId", "uint256", "tokensBought", "uint256")
var removeLiquidityImbalanceArgs = mustArgs("provider", "address", "tokenAmounts", "uint256[]", "fees", "uint256[]", "invariant", "uint256", "lpTokenSupply", "uint256")
var singleUintArg = mustArgs("value", "uint256")

func mustArgs(pairs ...string) abi.Arguments {
	var args abi.Arguments
	for i := 0; i+1 < len(pairs); i += 2 {
		typ, err := abi.NewType(pairs[i+1], "", nil)
		if err != nil {
			panic(err)
		}
		args = append(args, abi.Argument{Name: pairs[i], Type: typ})
	}
	return args
}

// decodeTokenSwap computes total/admin/lp fees and volume for a TokenSwap
// event per spec.md §4.3's formulas.
func decodeTokenSwap(data []byte, boughtDecimals uint8, fees poolFeeState) (volume, lpFees, adminFees decimal.Decimal, soldID, boughtID uint64, err error) {
	vals, err := tokenSwapArgs.Unpack(data)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, 0, 0, fmt.Errorf("unpack TokenSwap: %w", err)
	}
	tokensBought := decToDecimal(vals[2])
	soldID = decToUint64(vals[3])
	boughtID = decToUint64(vals[4])

	_, adminFeesV, lpFeesV := swapFeeMath(tokensBought, boughtDecimals, fees)
	volume = tokensBought.Shift(-int32(boughtDecimals))
	return volume, lpFeesV, adminFeesV, soldID, boughtID, nil
}

// swapFeeMath implements:
//
//	total_fees = tokensBought * swap_fee / ((FEE_DENOMINATOR - swap_fee) * 10^decimals)
//	admin_fees = total_fees * admin_fee / 10^FEE_DECIMALS
//	lp_fees    = total_fees - admin_fees
func swapFeeMath(tokensBought decimal.Decimal, decimals uint8, fees poolFeeState) (total, admin, lp decimal.Decimal) {
	swapFee := decimal.NewFromInt(int64(fees.Swap))
	adminFee := decimal.NewFromInt(int64(fees.Admin))
	denom := feeDenominatorDec.Sub(swapFee).Shift(int32(decimals))
	if denom.IsZero() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}
	total = tokensBought.Mul(swapFee).Div(denom)
	admin = total.Mul(adminFee).Div(tenPowFeeDecimals)
	lp = total.Sub(admin)
	return total, admin, lp
}

func decodeRemoveLiquidityOne(data []byte, boughtDecimals uint8, fees poolFeeState) (volume, lpFees, adminFees decimal.Decimal, err error) {
	vals, err := removeLiquidityOneArgs.Unpack(data)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("unpack RemoveLiquidityOne: %w", err)
	}
	tokensBought := decToDecimal(vals[4])
	_, admin, lp := swapFeeMath(tokensBought, boughtDecimals, fees)
	return tokensBought.Shift(-int32(boughtDecimals)), lp, admin, nil
}

// decodeAddLiquidity / decodeRemoveLiquidityImbalance implement:
//
//	total_fees = sum(fees[i] / 10^decimals[i])
//	volume     = sum(tokenAmounts[i] / 10^decimals[i])
func decodeAddLiquidity(data []byte, decimalsByIndex []uint8, fees poolFeeState) (volume, lpFees, adminFees decimal.Decimal, err error) {
	vals, err := addLiquidityArgs.Unpack(data)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("unpack AddLiquidity: %w", err)
	}
	return sumPoolArrays(vals[1], vals[2], decimalsByIndex, fees)
}

func decodeRemoveLiquidityImbalance(data []byte, decimalsByIndex []uint8, fees poolFeeState) (volume, lpFees, adminFees decimal.Decimal, err error) {
	vals, err := removeLiquidityImbalanceArgs.Unpack(data)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("unpack RemoveLiquidityImbalance: %w", err)
	}
	return sumPoolArrays(vals[1], vals[2], decimalsByIndex, fees)
}

func sumPoolArrays(tokenAmountsVal, feesVal interface{}, decimalsByIndex []uint8, fees poolFeeState) (volume, lpFees, adminFees decimal.Decimal, err error) {
	amounts, err := decArraySlice(tokenAmountsVal)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, err
	}
	feeVals, err := decArraySlice(feesVal)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, err
	}

	totalFees := decimal.Zero
	volume = decimal.Zero
	for i, amt := range amounts {
		dec := decimalsFor(decimalsByIndex, i)
		volume = volume.Add(amt.Shift(-int32(dec)))
	}
	for i, f := range feeVals {
		dec := decimalsFor(decimalsByIndex, i)
		totalFees = totalFees.Add(f.Shift(-int32(dec)))
	}
	adminFees = totalFees.Mul(decimal.NewFromInt(int64(fees.Admin))).Div(tenPowFeeDecimals)
	lpFees = totalFees.Sub(adminFees)
	return volume, lpFees, adminFees, nil
}

func decimalsFor(decimalsByIndex []uint8, i int) uint8 {
	if i < len(decimalsByIndex) {
		return decimalsByIndex[i]
	}
	return 18
}

// decodeNewFee unpacks a NewSwapFee/NewAdminFee event's single uint256 arg.
func decodeNewFee(data []byte) (uint64, error) {
	vals, err := singleUintArg.Unpack(data)
	if err != nil {
		return 0, fmt.Errorf("unpack fee change: %w", err)
	}
	return decToUint64(vals[0]), nil
}
