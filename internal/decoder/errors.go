package decoder

import "errors"

// ErrUnsupportedLog marks a log/tx the Decoder could not parse under any of
// the three historical ABIs. Callers record it to the skipped list per
// spec.md §4.3 and continue — it must never crash the indexer.
var ErrUnsupportedLog = errors.New("decoder: unsupported log")

// ErrUnknownToken marks an event whose token address resolved to nothing,
// even after a bridge-config contract lookup.
var ErrUnknownToken = errors.New("decoder: unknown token")

var errNotBigIntSlice = errors.New("decoder: expected []*big.Int")
