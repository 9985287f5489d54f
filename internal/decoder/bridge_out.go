package decoder

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/synindex/bridge-analytics/internal/models"
)

// decodeOut decodes an OUT bridge log (TokenRedeem*, TokenDeposit*) per
// spec.md §4.3: data is [chain_id | token_address | amount | ...]
// (32-byte words); the recipient address sits in topics[1] but isn't part
// of the canonical BridgeOut fields, so it is not extracted.
//
// gen only affects how many trailing words are expected — the three leading
// words (chain_id, token, amount) are stable across all three historical
// ABIs, so fallback across generations never changes the decoded amount.
func decodeOut(gen ABIGen, data []byte) (chainID uint64, token string, amountRaw decimal.Decimal, err error) {
	if wordCount(data) < 3 {
		return 0, "", decimal.Decimal{}, fmt.Errorf("%w: OUT log has %d words, need at least 3", ErrUnsupportedLog, wordCount(data))
	}
	chainIDWord, err := word32(data, 0)
	if err != nil {
		return 0, "", decimal.Decimal{}, err
	}
	tokenAddr, err := addressWord(data, 1)
	if err != nil {
		return 0, "", decimal.Decimal{}, err
	}
	amountWord, err := word32(data, 2)
	if err != nil {
		return 0, "", decimal.Decimal{}, err
	}
	return chainIDWord.Uint64(), tokenAddr, decimal.NewFromBigInt(amountWord, 0), nil
}

// buildBridgeOut assembles a canonical models.Event from decoded OUT fields,
// converting amountRaw (base units) to human units via decimals.
func buildBridgeOut(chain string, date string, block uint64, txHash string, txIndex int64, toChainID uint64, token string, amountRaw decimal.Decimal, decimals uint8) models.Event {
	return models.Event{
		Kind:      models.EventBridgeOut,
		Chain:     chain,
		Date:      date,
		Block:     block,
		TxHash:    txHash,
		TxIndex:   txIndex,
		Asset:     token,
		ToChainID: toChainID,
		Amount:    amountRaw.Shift(-int32(decimals)),
	}
}
