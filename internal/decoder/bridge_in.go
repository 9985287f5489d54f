package decoder

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var bigThree = big.NewInt(3)

// bridgeInFields is everything decodeIn extracts from the validator's call
// input before decimal conversion. Trailing swap/remove metadata
// (tokenIndexTo, swapSuccess, ...) is parsed for fidelity with spec.md §4.3
// but not retained — models.Event's BridgeIn fields don't carry it.
type bridgeInFields struct {
	To        string
	Token     string
	AmountRaw decimal.Decimal
	FeeRaw    decimal.Decimal
}

// decodeIn decodes an IN bridge call (TokenMint*, TokenWithdraw*) from the
// validator transaction's input, minus its 4-byte selector. Layout is
// [to | token | amount | fee | ...] per spec.md §4.3.
func decodeIn(topic Topic, input []byte) (bridgeInFields, error) {
	if len(input) < 4 {
		return bridgeInFields{}, fmt.Errorf("%w: tx input too short for a selector", ErrUnsupportedLog)
	}
	args := input[4:]
	if wordCount(args) < 4 {
		return bridgeInFields{}, fmt.Errorf("%w: IN call has %d words, need at least 4", ErrUnsupportedLog, wordCount(args))
	}

	to, err := addressWord(args, 0)
	if err != nil {
		return bridgeInFields{}, err
	}
	token, err := addressWord(args, 1)
	if err != nil {
		return bridgeInFields{}, err
	}
	amount, err := word32(args, 2)
	if err != nil {
		return bridgeInFields{}, err
	}
	fee, err := word32(args, 3)
	if err != nil {
		return bridgeInFields{}, err
	}

	fields := bridgeInFields{
		To:        to,
		Token:     token,
		AmountRaw: decimal.NewFromBigInt(amount, 0),
		FeeRaw:    decimal.NewFromBigInt(fee, 0),
	}

	switch topic {
	case TopicTokenMintAndSwap:
		// remainder: tokenIndexFrom, tokenIndexTo, minDy, deadline, swapSuccess
		// — present only for fidelity; not required to build the fields above.
		_ = args
	case TopicTokenWithdrawAndRemove:
		// Legacy heuristic (spec.md §4.3): if the first index word exceeds 3,
		// it's actually an older-ABI swapTokenAmount and tokenIndexTo lives in
		// the next word; otherwise it IS tokenIndexTo directly.
		if wordCount(args) > 4 {
			idxWord, err := word32(args, 4)
			if err == nil {
				if idxWord.Cmp(bigThree) > 0 {
					// older ABI: word4 is swapTokenAmount, tokenIndexTo is word5.
					_, _ = word32(args, 5)
				}
			}
		}
	}

	return fields, nil
}
