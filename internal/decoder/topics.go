// Package decoder parses a raw log or transaction input into a canonical
// models.Event. It never panics on unknown topics — those are ignored — and
// falls back across three historical bridge ABIs before giving up on a
// known topic. See spec.md §4.3.
package decoder

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/synindex/bridge-analytics/internal/models"
)

// Topic enumerates every known bridge/pool event plus Unknown, replacing
// dynamic dispatch by ABI event name (spec.md §9 "Dynamic dispatch by
// method name").
type Topic int

const (
	TopicUnknown Topic = iota

	// Bridge (OUT)
	TopicTokenRedeemAndSwap
	TopicTokenRedeemAndRemove
	TopicTokenRedeem
	TopicTokenDepositAndSwap
	TopicTokenDeposit

	// Bridge (IN)
	TopicTokenMintAndSwap
	TopicTokenMint
	TopicTokenWithdrawAndRemove
	TopicTokenWithdraw

	// Pool
	TopicTokenSwap
	TopicNewSwapFee
	TopicNewAdminFee
	TopicAddLiquidity
	TopicRemoveLiquidityOne
	TopicRemoveLiquidityImbalance
)

func (t Topic) Direction() models.Direction {
	switch t {
	case TopicTokenRedeemAndSwap, TopicTokenRedeemAndRemove, TopicTokenRedeem, TopicTokenDepositAndSwap, TopicTokenDeposit:
		return models.DirectionOut
	case TopicTokenMintAndSwap, TopicTokenMint, TopicTokenWithdrawAndRemove, TopicTokenWithdraw:
		return models.DirectionIn
	}
	return ""
}

// bridgeEventSignatures are the canonical Synapse bridge ABI event
// signatures ("current" ABI). See abiFallback.go for the older variants.
var bridgeEventSignatures = map[Topic]string{
	TopicTokenRedeemAndSwap:     "TokenRedeemAndSwap(address,uint256,address,uint256,uint8,uint8,uint256,uint256)",
	TopicTokenRedeemAndRemove:   "TokenRedeemAndRemove(address,uint256,address,uint256,uint8,uint256,uint256)",
	TopicTokenRedeem:            "TokenRedeem(address,uint256,address,uint256)",
	TopicTokenDepositAndSwap:    "TokenDepositAndSwap(address,uint256,address,uint256,uint8,uint8,uint256,uint256)",
	TopicTokenDeposit:           "TokenDeposit(address,uint256,address,uint256)",
	TopicTokenMintAndSwap:       "TokenMintAndSwap(address,address,uint256,uint256,uint8,uint8,uint256,uint256,bool,bytes32)",
	TopicTokenMint:              "TokenMint(address,address,uint256,uint256,bytes32)",
	TopicTokenWithdrawAndRemove: "TokenWithdrawAndRemove(address,address,uint256,uint256,uint8,uint256,uint256,bool,bytes32)",
	TopicTokenWithdraw:          "TokenWithdraw(address,address,uint256,uint256,bytes32)",
}

var poolEventSignatures = map[Topic]string{
	TopicTokenSwap:                "TokenSwap(address,uint256,uint256,uint128,uint128)",
	TopicNewSwapFee:               "NewSwapFee(uint256)",
	TopicNewAdminFee:              "NewAdminFee(uint256)",
	TopicAddLiquidity:             "AddLiquidity(address,uint256[],uint256[],uint256,uint256)",
	TopicRemoveLiquidityOne:       "RemoveLiquidityOne(address,uint256,uint256,uint256,uint256)",
	TopicRemoveLiquidityImbalance: "RemoveLiquidityImbalance(address,uint256[],uint256[],uint256,uint256)",
}

// topic0Table maps a hex-encoded topic0 to the Topic it names, built once at
// init from the signature tables above (current ABI only — abiFallback.go
// carries the old/older variants separately since they hash differently).
var topic0Table = buildTopic0Table()

func buildTopic0Table() map[string]Topic {
	out := make(map[string]Topic, len(bridgeEventSignatures)+len(poolEventSignatures))
	for topic, sig := range bridgeEventSignatures {
		out[signatureHash(sig)] = topic
	}
	for topic, sig := range poolEventSignatures {
		out[signatureHash(sig)] = topic
	}
	return out
}

func signatureHash(sig string) string {
	return crypto.Keccak256Hash([]byte(sig)).Hex()
}

// LookupTopic resolves a hex topic0 to a known Topic, or TopicUnknown. It
// never errors — unknown topics are ignored per spec.md §4.3.
func LookupTopic(topic0 string) Topic {
	if t, ok := topic0Table[topic0]; ok {
		return t
	}
	return TopicUnknown
}

func isBridgeTopic(t Topic) bool {
	_, ok := bridgeEventSignatures[t]
	return ok
}

func isPoolTopic(t Topic) bool {
	_, ok := poolEventSignatures[t]
	return ok
}

// BridgeTopicHashes returns every topic0 hash (current ABI plus both older
// generations) the Indexer should pass to ChainClient.GetLogs when
// scanning a bridge contract.
func BridgeTopicHashes() []string {
	var out []string
	for _, gt := range genTables {
		for _, sig := range gt.table {
			out = append(out, signatureHash(sig))
		}
	}
	return out
}

// PoolTopicHashes returns every pool event's topic0 hash, for scanning a
// stable/eth pool contract.
func PoolTopicHashes() []string {
	out := make([]string, 0, len(poolEventSignatures))
	for _, sig := range poolEventSignatures {
		out = append(out, signatureHash(sig))
	}
	return out
}
