// Package models holds the canonical types shared by every component of the
// bridge analytics pipeline: chains, tokens, decoded events, aggregate
// buckets and cursors.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is either IN (minted/released on this chain) or OUT (burned/locked
// on this chain).
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// PoolKind identifies which liquidity pool family an event belongs to.
type PoolKind string

const (
	PoolKindNUSD PoolKind = "nusd"
	PoolKindNETH PoolKind = "neth"
)

// PoolSubKind further classifies a PoolSwap event.
type PoolSubKind string

const (
	PoolSubKindSwapBase  PoolSubKind = "swap_base"
	PoolSubKindSwapNUSD  PoolSubKind = "swap_nusd"
	PoolSubKindAddRemove PoolSubKind = "add_remove"
)

// FeeKind identifies which of a pool's two fee knobs changed.
type FeeKind string

const (
	FeeKindSwap  FeeKind = "swap"
	FeeKindAdmin FeeKind = "admin"
)

// Chain is a roster entry, built once from static configuration at startup
// and immutable for the lifetime of a run.
type Chain struct {
	Name           string
	ChainID        uint64
	RPCURL         string
	BridgeAddress  string
	StablePool     string
	EthPool        string
	MaxBlocks      uint64
	BridgeStart    uint64
	StablePoolStart uint64
	EthPoolStart   uint64
	// RequiresPOA marks chains whose RPC needs a proof-of-authority (Clique-style)
	// extra-data middleware to decode block headers, e.g. BSC, Polygon PoS.
	RequiresPOA bool
	// Treasury is the protocol-owned address treasury_balances and
	// circulating_supply net out, lowercased. Empty when unconfigured.
	Treasury string
}

// Token is keyed by (chain, address); address is always lowercased.
type Token struct {
	Chain    string
	Address  string // lowercased
	Symbol   string
	Name     string
	Decimals uint8
	// Alias, when non-empty, names the canonical symbol this token's volume
	// should be folded into for per-address views (e.g. a wrapped variant
	// aliasing to its unwrapped symbol).
	Alias string
	// CGID is this token's Coingecko id, the PriceOracle's address->price
	// join key. Empty means the token has no price history and resolves to
	// zero unless pinned.
	CGID string
}

// Cursor marks the highest (block, tx_index) already merged for one
// (chain, namespace, contract address).
type Cursor struct {
	Chain          string
	Namespace      string // "logs" or "pool"
	Address        string
	MaxBlockStored uint64
	TxIndex        int64 // -1 if absent
}

// Before reports whether (block, txIndex) is at or behind this cursor, i.e.
// whether an event with those coordinates has already been merged.
func (c Cursor) Before(block uint64, txIndex int64) bool {
	if block < c.MaxBlockStored {
		return true
	}
	if block == c.MaxBlockStored && txIndex <= c.TxIndex {
		return true
	}
	return false
}

// EventKind tags the sum type below with an enum instead of dynamic dispatch
// by event name.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventBridgeOut
	EventBridgeIn
	EventPoolSwap
	EventPoolFeeChange
)

// Event is the canonical sum type every decoded log/tx resolves to. Only the
// fields relevant to Kind are populated; callers switch on Kind.
type Event struct {
	Kind  EventKind
	Chain string
	Date  string // UTC calendar date, "2006-01-02"
	Block uint64
	TxHash   string
	TxIndex  int64

	// BridgeOut / BridgeIn
	Asset             string // token address, lowercased
	ToChainID         uint64 // BridgeOut only
	Amount            decimal.Decimal
	Fee               decimal.Decimal // BridgeIn only
	ValidatorGasPaid  decimal.Decimal // BridgeIn only
	ValidatorGasPrice decimal.Decimal // BridgeIn only
	Airdrop           decimal.Decimal // BridgeIn only

	// PoolSwap
	PoolKind   PoolKind
	SubKind    PoolSubKind
	Volume     decimal.Decimal
	LPFees     decimal.Decimal
	AdminFees  decimal.Decimal

	// PoolFeeChange
	FeeKind  FeeKind
	NewValue uint64 // units of 10^-10
}

// BridgeInBucket is the value shape stored at {chain}:bridge:{date}:{asset}:IN.
type BridgeInBucket struct {
	Amount            decimal.Decimal `json:"amount"`
	TxCount           int64           `json:"tx_count"`
	Fees              decimal.Decimal `json:"fees"`
	Airdrops          decimal.Decimal `json:"airdrops"`
	ValidatorGasPaid  decimal.Decimal `json:"validator_gas_paid"`
	ValidatorGasPrice decimal.Decimal `json:"validator_gas_price"`
}

// BridgeOutBucket is the value shape stored at
// {chain}:bridge:{date}:{asset}:OUT:{to_chain_id}.
type BridgeOutBucket struct {
	Amount  decimal.Decimal `json:"amount"`
	TxCount int64           `json:"tx_count"`
}

// PoolSwapBucket is the value shape stored at
// {chain}:pool:{date}:{pool_kind}:{sub_kind}.
type PoolSwapBucket struct {
	Volume    decimal.Decimal `json:"volume"`
	LPFees    decimal.Decimal `json:"lp_fees"`
	AdminFees decimal.Decimal `json:"admin_fees"`
	TxCount   int64           `json:"tx_count"`
}

// PoolFeeBucket is the value shape stored at
// {chain}:pool:{date}:{pool_kind}:newfee_{swap|admin}; it does not accumulate,
// the latest write of the day wins.
type PoolFeeBucket struct {
	NewValue uint64    `json:"new_value"`
	Block    uint64    `json:"block"`
	SetAt    time.Time `json:"set_at"`
}

// DateAnchor is stored at {chain}:date2block:{date} — the first bridge event
// observed that day.
type DateAnchor struct {
	Block     uint64    `json:"block"`
	Timestamp time.Time `json:"timestamp"`
}

// AirdropRange is one entry of a chain's ordered airdrop table. Lo == nil
// means "from 0"; Hi == nil means "to infinity".
type AirdropRange struct {
	Lo    *uint64
	Hi    *uint64
	Value decimal.Decimal
}

// Contains reports whether block falls in [Lo, Hi] inclusive.
func (r AirdropRange) Contains(block uint64) bool {
	if r.Lo != nil && block < *r.Lo {
		return false
	}
	if r.Hi != nil && block > *r.Hi {
		return false
	}
	return true
}
