package decoder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// word32 reads the i-th 32-byte word from data as a big.Int.
func word32(data []byte, i int) (*big.Int, error) {
	start := i * 32
	end := start + 32
	if end > len(data) {
		return nil, fmt.Errorf("word %d out of range (len=%d)", i, len(data))
	}
	return new(big.Int).SetBytes(data[start:end]), nil
}

// addressWord reads the i-th 32-byte word from data as a left-padded address.
func addressWord(data []byte, i int) (string, error) {
	start := i * 32
	end := start + 32
	if end > len(data) {
		return "", fmt.Errorf("word %d out of range (len=%d)", i, len(data))
	}
	return common.BytesToAddress(data[start:end]).Hex(), nil
}

func wordCount(data []byte) int {
	return len(data) / 32
}
