// Package config loads the static, read-only roster of chains, tokens,
// contracts and per-chain policy tables the rest of the pipeline treats as
// immutable input. It is the only place `os.Getenv` and YAML parsing happen.
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/synindex/bridge-analytics/internal/models"
)

// defaultMaxBlocks mirrors spec.md §4.4: most chains default to 5000, a named
// handful use a smaller window to stay under RPC log-range limits.
var defaultMaxBlocksByChain = map[string]uint64{
	"ethereum":  1024,
	"bsc":       1024,
	"harmony":   1024,
	"moonriver": 1024,
	"aurora":    1024,
	"moonbeam":  1024,
	"boba":      512,
	"polygon":   2048,
}

const defaultMaxBlocks = 5000

// File is the on-disk YAML shape for the chain roster.
type File struct {
	Chains     []ChainEntry     `yaml:"chains"`
	Tokens     []TokenEntry     `yaml:"tokens"`
	PoolTokens []PoolTokenEntry `yaml:"pool_tokens"`
}

// PoolTokenEntry lists a pool's token roster in on-chain index order. The
// original discovers this order dynamically at startup by calling
// getToken(i) on the swap contract until it reverts
// (original_source/syn/utils/contract.py's get_all_tokens_in_pool); this
// repo pins it statically instead so decoding doesn't need a live RPC round
// trip before the first log can be priced.
type PoolTokenEntry struct {
	Chain     string   `yaml:"chain"`
	Kind      string   `yaml:"kind"` // "nusd" or "neth"
	Addresses []string `yaml:"tokens"`
}

type ChainEntry struct {
	Name            string `yaml:"name"`
	ChainID         uint64 `yaml:"chain_id"`
	RPCURLEnv       string `yaml:"rpc_url_env"`
	RPCURL          string `yaml:"rpc_url"`
	BridgeAddress   string `yaml:"bridge_address"`
	StablePool      string `yaml:"stable_pool"`
	EthPool         string `yaml:"eth_pool"`
	MaxBlocks       uint64 `yaml:"max_blocks"`
	BridgeStart     uint64 `yaml:"bridge_start"`
	StablePoolStart uint64 `yaml:"stable_pool_start"`
	EthPoolStart    uint64 `yaml:"eth_pool_start"`
	RequiresPOA     bool   `yaml:"requires_poa"`
	Treasury        string `yaml:"treasury"`
}

type TokenEntry struct {
	Chain    string `yaml:"chain"`
	Address  string `yaml:"address"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
	Alias    string `yaml:"alias"`
	CGID     string `yaml:"cgid"`
}

// Roster is the resolved, in-memory static configuration: a flat record
// table keyed by (chain) and an auxiliary per-(chain,address) token map. No
// shared mutable graph is required — see DESIGN.md "Cyclic graphs" note.
//
// Chains and the YAML-sourced parts of Tokens/PoolTokens never change after
// FromFile returns, but Learn mutates Tokens at runtime from concurrent
// per-chain scans (cmd/indexer's errgroup-based runAllChainsOnce), so every
// access to Tokens goes through mu.
type Roster struct {
	Chains map[string]models.Chain
	// PoolTokens is keyed by "{chain}:{kind}", ordered by on-chain token index.
	PoolTokens map[string][]string

	mu sync.RWMutex
	// Tokens is keyed by "{chain}:{address}", address lowercased.
	Tokens map[string]models.Token
}

// Load reads path (YAML) and resolves per-chain RPC URLs from environment
// variables named by RPCURLEnv, falling back to the literal RPCURL field.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return FromFile(f)
}

// FromFile builds a Roster from an already-parsed File, applying env
// overrides and max_blocks defaults. Exported so tests and tools can build a
// Roster without touching disk.
func FromFile(f File) (*Roster, error) {
	r := &Roster{
		Chains:     make(map[string]models.Chain, len(f.Chains)),
		Tokens:     make(map[string]models.Token, len(f.Tokens)),
		PoolTokens: make(map[string][]string, len(f.PoolTokens)),
	}

	for _, c := range f.Chains {
		rpcURL := c.RPCURL
		if c.RPCURLEnv != "" {
			if v := os.Getenv(c.RPCURLEnv); v != "" {
				rpcURL = v
			}
		}
		maxBlocks := c.MaxBlocks
		if maxBlocks == 0 {
			if d, ok := defaultMaxBlocksByChain[c.Name]; ok {
				maxBlocks = d
			} else {
				maxBlocks = defaultMaxBlocks
			}
		}
		r.Chains[c.Name] = models.Chain{
			Name:            c.Name,
			ChainID:         c.ChainID,
			RPCURL:          rpcURL,
			BridgeAddress:   lower(c.BridgeAddress),
			StablePool:      lower(c.StablePool),
			EthPool:         lower(c.EthPool),
			MaxBlocks:       maxBlocks,
			BridgeStart:     c.BridgeStart,
			StablePoolStart: c.StablePoolStart,
			EthPoolStart:    c.EthPoolStart,
			RequiresPOA:     c.RequiresPOA,
			Treasury:        lower(c.Treasury),
		}
	}

	for _, t := range f.Tokens {
		addr := lower(t.Address)
		key := t.Chain + ":" + addr
		r.Tokens[key] = models.Token{
			Chain:    t.Chain,
			Address:  addr,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
			Alias:    t.Alias,
			CGID:     t.CGID,
		}
	}

	for _, p := range f.PoolTokens {
		addrs := make([]string, len(p.Addresses))
		for i, a := range p.Addresses {
			addrs[i] = lower(a)
		}
		r.PoolTokens[p.Chain+":"+p.Kind] = addrs
	}

	return r, nil
}

// Token looks up a known token by chain and lowercased address.
func (r *Roster) Token(chain, address string) (models.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.Tokens[chain+":"+lower(address)]
	return t, ok
}

// PoolTokensFor returns kind's pool roster on chain in on-chain index order,
// resolved against the known token table. An address with no token entry
// resolves to a bare 18-decimal placeholder (the EVM default) rather than
// being dropped, so the pool's token-index positions stay aligned.
func (r *Roster) PoolTokensFor(chain string, kind models.PoolKind) []models.Token {
	addrs := r.PoolTokens[chain+":"+string(kind)]
	if len(addrs) == 0 {
		return nil
	}
	out := make([]models.Token, len(addrs))
	for i, addr := range addrs {
		if t, ok := r.Token(chain, addr); ok {
			out[i] = t
			continue
		}
		out[i] = models.Token{Chain: chain, Address: addr, Decimals: 18}
	}
	return out
}

// CGIDFor implements priceoracle.AddressMap over the token roster.
func (r *Roster) CGIDFor(chain, address string) (string, bool) {
	t, ok := r.Token(chain, address)
	if !ok || t.CGID == "" {
		return "", false
	}
	return t.CGID, true
}

// TokensForChain returns every known token on chain, for views (e.g.
// treasury_balances) that must enumerate a chain's full token set rather
// than look one up by address.
func (r *Roster) TokensForChain(chain string) []models.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Token
	for _, t := range r.Tokens {
		if t.Chain == chain {
			out = append(out, t)
		}
	}
	return out
}

// AllTokens returns a snapshot of every known token across every chain, for
// callers (e.g. the update_prices job) that need to enumerate the whole
// roster rather than look up one chain or one address.
func (r *Roster) AllTokens() []models.Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Token, 0, len(r.Tokens))
	for _, t := range r.Tokens {
		out = append(out, t)
	}
	return out
}

// Learn memoizes a token discovered at runtime (e.g. via a bridge-config
// contract call). Concurrent chain scans (cmd/indexer's errgroup-based
// runAllChainsOnce) share one Roster, so two chains can race to learn an
// unknown token at the same instant — mu serializes the write.
func (r *Roster) Learn(t models.Token) {
	t.Address = lower(t.Address)
	r.mu.Lock()
	r.Tokens[t.Chain+":"+t.Address] = t
	r.mu.Unlock()
}

func lower(s string) string {
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

// GetEnvInt reads an integer environment variable, falling back to
// defaultVal on absence or parse failure. Mirrors the teacher's
// main.go getEnvInt helper.
func GetEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// GetEnvUint64 is the uint64 analog of GetEnvInt.
func GetEnvUint64(key string, defaultVal uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultVal
}
