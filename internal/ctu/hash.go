package ctu

import "crypto/sha256"

// Digest is a content hash over a summary's wire form, letting a driver skip
// rebuilding CTU summaries for units that have not changed between runs —
// hashing a single summary's encoded bytes instead of a module graph.
type Digest [32]byte

// HashSummary hashes the wire form produced by Encode.
func HashSummary(wire []byte) Digest {
	return sha256.Sum256(wire)
}
