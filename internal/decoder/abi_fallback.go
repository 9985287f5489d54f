package decoder

import "github.com/ethereum/go-ethereum/crypto"

// ABIGen tags which of the bridge contract's three historical ABIs produced
// a given topic0. Decode logic uses it to pick the right word layout.
// See spec.md §4.3 "Backward-compatible ABI fallback".
type ABIGen int

const (
	ABICurrent ABIGen = iota
	ABIOld
	ABIOlder
)

// oldBridgeEventSignatures drops the trailing deadline/minDy swap params the
// current ABI carries — an earlier bridge revision before slippage
// protection was added to the bridge's own swap variants.
var oldBridgeEventSignatures = map[Topic]string{
	TopicTokenRedeemAndSwap:     "TokenRedeemAndSwap(address,uint256,address,uint256,uint8,uint8)",
	TopicTokenRedeemAndRemove:   "TokenRedeemAndRemove(address,uint256,address,uint256,uint8)",
	TopicTokenMintAndSwap:       "TokenMintAndSwap(address,address,uint256,uint256,uint8,uint8,bool,bytes32)",
	TopicTokenWithdrawAndRemove: "TokenWithdrawAndRemove(address,address,uint256,uint256,uint8,bool,bytes32)",
}

// olderBridgeEventSignatures is the oldest bridge revision, predating the
// tokenIndexTo/swap-destination split — "…AndRemove" variants only ever
// named a single swapTokenIndex and packed the legacy swap amount ahead of
// it (see decodeTokenWithdrawAndRemove's legacy heuristic).
var olderBridgeEventSignatures = map[Topic]string{
	TopicTokenRedeemAndRemove:   "TokenRedeemAndRemove(address,uint256,address,uint256)",
	TopicTokenWithdrawAndRemove: "TokenWithdrawAndRemove(address,address,uint256,uint256,bytes32)",
}

var genTables = []struct {
	gen   ABIGen
	table map[Topic]string
}{
	{ABICurrent, bridgeEventSignatures},
	{ABIOld, oldBridgeEventSignatures},
	{ABIOlder, olderBridgeEventSignatures},
}

var topicByGenHash = buildGenIndex()

func buildGenIndex() map[string]struct {
	topic Topic
	gen   ABIGen
} {
	out := make(map[string]struct {
		topic Topic
		gen   ABIGen
	})
	for _, gt := range genTables {
		for topic, sig := range gt.table {
			hash := crypto.Keccak256Hash([]byte(sig)).Hex()
			// Never let an older generation's hash collide-override a
			// current-generation match; current is checked first below via
			// LookupTopicWithGen's iteration order, but the map itself is
			// keyed by hash so a collision would silently replace the
			// earlier entry — these signatures are hand-picked so it can't
			// happen in practice.
			if _, exists := out[hash]; !exists {
				out[hash] = struct {
					topic Topic
					gen   ABIGen
				}{topic, gt.gen}
			}
		}
	}
	return out
}

// LookupTopicWithGen resolves topic0 to a (Topic, ABIGen) pair, trying the
// current ABI, then old, then older. Returns (TopicUnknown, ABICurrent) if
// no generation recognizes the hash.
func LookupTopicWithGen(topic0 string) (Topic, ABIGen) {
	if m, ok := topicByGenHash[topic0]; ok {
		return m.topic, m.gen
	}
	return TopicUnknown, ABICurrent
}
