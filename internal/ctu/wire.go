package ctu

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes info to the stable CTU summary wire form, using
// vmihailenco/msgpack rather than plain JSON: its struct-tag codec gives a
// serialize/parse round trip that yields structurally equal summaries for
// free, without hand-rolled field-order bookkeeping.
func Encode(info *FileInfo) ([]byte, error) {
	b, err := msgpack.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("ctu: failed to encode summary for %q: %w", info.Path, err)
	}
	return b, nil
}

// Decode parses a CTU summary previously produced by Encode. A malformed
// payload is the join pass's responsibility to turn into a ctuinfo-invalid
// diagnostic rather than this function's — it simply returns
// the error.
func Decode(b []byte) (*FileInfo, error) {
	var info FileInfo
	if err := msgpack.Unmarshal(b, &info); err != nil {
		return nil, fmt.Errorf("ctu: failed to decode summary: %w", err)
	}
	return &info, nil
}
