package queryapi

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// ChainClient is the slice of chainclient.ChainClient views 6-8 and C8a
// need: a single read-only eth_call with an optional pinned block.
type ChainClient interface {
	Call(ctx context.Context, contract string, data []byte, blockNumber *uint64) ([]byte, error)
}

// PoolTokenLister resolves the ordered token list backing a pool, so
// get_admin_balance(index) calls can be decimalized per token. Grounded on
// the same index-not-address convention internal/decoder/pool_decode.go
// already works around for swap/liquidity events.
type PoolTokenLister func(chain string, kind models.PoolKind) []models.Token

var (
	balanceOfMethod    = mustMethod("balanceOf", []string{"address"}, []string{"uint256"})
	totalSupplyMethod  = mustMethod("totalSupply", nil, []string{"uint256"})
	adminBalanceMethod = mustMethod("getAdminBalance", []string{"uint256"}, []string{"uint256"})
	virtualPriceMethod = mustMethod("get_virtual_price", nil, []string{"uint256"})
)

func mustMethod(name string, inputs, outputs []string) abi.Method {
	in := make(abi.Arguments, len(inputs))
	for i, t := range inputs {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		in[i] = abi.Argument{Name: fmt.Sprintf("a%d", i), Type: typ}
	}
	out := make(abi.Arguments, len(outputs))
	for i, t := range outputs {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic(err)
		}
		out[i] = abi.Argument{Name: fmt.Sprintf("r%d", i), Type: typ}
	}
	return abi.NewMethod(name, name, abi.Function, "view", false, false, in, out)
}

func callUint256(ctx context.Context, client ChainClient, contract string, method abi.Method, block *uint64, args ...interface{}) (decimal.Decimal, error) {
	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("queryapi: pack %s: %w", method.Name, err)
	}
	data := append(append([]byte{}, method.ID...), packed...)

	raw, err := client.Call(ctx, contract, data, block)
	if err != nil {
		return decimal.Zero, fmt.Errorf("queryapi: call %s on %s: %w", method.Name, contract, err)
	}
	vals, err := method.Outputs.Unpack(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("queryapi: unpack %s: %w", method.Name, err)
	}
	if len(vals) == 0 {
		return decimal.Zero, fmt.Errorf("queryapi: %s returned no values", method.Name)
	}
	return decToDecimalArg(vals[0]), nil
}

func decToDecimalArg(v interface{}) decimal.Decimal {
	n, ok := v.(*big.Int)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n, 0)
}

// AdminFeeBalance is one token's accrued admin fee balance, decimalized.
type AdminFeeBalance struct {
	Token models.Token    `json:"token"`
	USD   decimal.Decimal `json:"usd"`
	Raw   decimal.Decimal `json:"raw"`
}

// AdminFees is view 6 (admin_fees): the accrued admin-fee balance across
// every token of both the stable and eth pools on chain, read via
// getAdminBalance(index) against each configured pool contract.
func (a *API) AdminFees(ctx context.Context, chain string, block *uint64) ([]AdminFeeBalance, error) {
	ch, ok := a.Chains[chain]
	if !ok {
		return nil, fmt.Errorf("queryapi: unknown chain %q", chain)
	}
	var out []AdminFeeBalance
	for _, pool := range []struct {
		kind models.PoolKind
		addr string
	}{{models.PoolKindNUSD, ch.StablePool}, {models.PoolKindNETH, ch.EthPool}} {
		if pool.addr == "" || a.PoolTokens == nil {
			continue
		}
		tokens := a.PoolTokens(chain, pool.kind)
		for i, tok := range tokens {
			raw, err := callUint256(ctx, a.Chain, pool.addr, adminBalanceMethod, block, big.NewInt(int64(i)))
			if err != nil {
				return nil, err
			}
			decimalized := raw.Shift(-int32(tok.Decimals))
			usd, err := a.priceFor(ctx, chain, tok.Address, currentDate())
			if err != nil {
				return nil, err
			}
			out = append(out, AdminFeeBalance{Token: tok, Raw: decimalized, USD: decimalized.Mul(usd)})
		}
	}
	return out, nil
}

// PendingAdminFees is view 6 (pending_admin_fees): the same read, narrowed
// to a caller-supplied token subset.
func (a *API) PendingAdminFees(ctx context.Context, chain string, tokenAddrs []string, block *uint64) ([]AdminFeeBalance, error) {
	all, err := a.AdminFees(ctx, chain, block)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(tokenAddrs))
	for _, t := range tokenAddrs {
		want[normalizeAddr(t)] = true
	}
	var out []AdminFeeBalance
	for _, b := range all {
		if want[normalizeAddr(b.Token.Address)] {
			out = append(out, b)
		}
	}
	return out, nil
}

// VirtualPrice is view 7: a single get_virtual_price() call, 18-decimals.
func (a *API) VirtualPrice(ctx context.Context, chain string, kind models.PoolKind, block *uint64) (decimal.Decimal, error) {
	ch, ok := a.Chains[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("queryapi: unknown chain %q", chain)
	}
	addr := ch.StablePool
	if kind == models.PoolKindNETH {
		addr = ch.EthPool
	}
	if addr == "" {
		return decimal.Zero, fmt.Errorf("queryapi: chain %q has no %s pool configured", chain, kind)
	}
	raw, err := callUint256(ctx, a.Chain, addr, virtualPriceMethod, block)
	if err != nil {
		return decimal.Zero, err
	}
	return raw.Shift(-18), nil
}

// TreasuryBalance is one token's treasury holding, valued in USD.
type TreasuryBalance struct {
	Token models.Token    `json:"token"`
	Raw   decimal.Decimal `json:"raw"`
	USD   decimal.Decimal `json:"usd"`
}

// TreasuryBalances is view 8: balanceOf(treasury) for every known token on
// chain plus the chain's native balance, each valued via PriceOracle.
func (a *API) TreasuryBalances(ctx context.Context, chain string, block *uint64) ([]TreasuryBalance, error) {
	ch, ok := a.Chains[chain]
	if !ok {
		return nil, fmt.Errorf("queryapi: unknown chain %q", chain)
	}
	if ch.Treasury == "" {
		return nil, fmt.Errorf("queryapi: chain %q has no treasury configured", chain)
	}
	if a.Tokens == nil {
		return nil, nil
	}

	var out []TreasuryBalance
	for _, tok := range a.Tokens(chain) {
		raw, err := callUint256(ctx, a.Chain, tok.Address, balanceOfMethod, block, common.HexToAddress(ch.Treasury))
		if err != nil {
			return nil, err
		}
		decimalized := raw.Shift(-int32(tok.Decimals))
		usd, err := a.priceFor(ctx, chain, tok.Address, currentDate())
		if err != nil {
			return nil, err
		}
		out = append(out, TreasuryBalance{Token: tok, Raw: decimalized, USD: decimalized.Mul(usd)})
	}
	return out, nil
}

// CirculatingSupply is C8a: totalSupply() on the chain's native governance
// token minus whatever of it sits in the treasury — the "locked/treasury
// balances" subtraction SPEC_FULL.md §6 describes, grounded on
// original_source/checks/data.py's circulating-supply check.
func (a *API) CirculatingSupply(ctx context.Context, chain, tokenAddr string) (decimal.Decimal, error) {
	ch, ok := a.Chains[chain]
	if !ok {
		return decimal.Zero, fmt.Errorf("queryapi: unknown chain %q", chain)
	}
	tok, err := a.tokenByAddress(chain, tokenAddr)
	if err != nil {
		return decimal.Zero, err
	}

	supply, err := callUint256(ctx, a.Chain, tokenAddr, totalSupplyMethod, nil)
	if err != nil {
		return decimal.Zero, err
	}
	supply = supply.Shift(-int32(tok.Decimals))

	if ch.Treasury == "" {
		return supply, nil
	}
	held, err := callUint256(ctx, a.Chain, tokenAddr, balanceOfMethod, nil, common.HexToAddress(ch.Treasury))
	if err != nil {
		return decimal.Zero, err
	}
	held = held.Shift(-int32(tok.Decimals))
	return supply.Sub(held), nil
}

func (a *API) tokenByAddress(chain, addr string) (models.Token, error) {
	if a.Tokens == nil {
		return models.Token{}, fmt.Errorf("queryapi: no token roster configured")
	}
	addr = normalizeAddr(addr)
	for _, t := range a.Tokens(chain) {
		if normalizeAddr(t.Address) == addr {
			return t, nil
		}
	}
	return models.Token{}, fmt.Errorf("queryapi: unknown token %s on %s", addr, chain)
}

func normalizeAddr(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return string(out)
}
