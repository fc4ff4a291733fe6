// Package poh implements the per-shard Proof-of-History chain: a
// deterministic hash-linked sequence of entries binding ordered batches of
// transaction IDs to a previous hash and a timestamp.
package poh

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

// ErrEmptyBatch is returned when a caller asks for an entry over an empty
// transaction ID batch.
var ErrEmptyBatch = errors.New("poh: empty transaction batch")

// ErrEmptyTransactionID is returned when any ID in a batch is empty.
var ErrEmptyTransactionID = errors.New("poh: empty transaction id")

// Entry is an immutable PoH record. Hash is a pure function of the other
// fields and is computed exactly once, at construction.
type Entry struct {
	TransactionIDs []string
	PreviousHash   string
	Timestamp      int64
	TimestampText  string
	Hash           string
}

// newEntry builds and hashes an Entry from tx IDs and the running previous
// hash. It does not validate IDs; callers validate before calling.
func newEntry(txIDs []string, previousHash string, now time.Time) Entry {
	ts := now.Unix()
	e := Entry{
		TransactionIDs: txIDs,
		PreviousHash:   previousHash,
		Timestamp:      ts,
		TimestampText:  now.UTC().Format(time.RFC3339),
	}
	e.Hash = computeHash(txIDs, previousHash, ts)
	return e
}

// computeHash is SHA-256 over the concatenation of every transaction ID, the
// previous hash, and the ASCII decimal timestamp, in that order. It is never
// invoked on an already-built Entry to recompute Hash; callers that need to
// verify purity call it directly against an Entry's own fields.
func computeHash(txIDs []string, previousHash string, timestamp int64) string {
	h := sha256.New()
	for _, id := range txIDs {
		h.Write([]byte(id))
	}
	h.Write([]byte(previousHash))
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the entry's hash from its own fields and reports whether
// it matches the stored Hash. Used by tests to check hash purity.
func (e Entry) Verify() bool {
	return computeHash(e.TransactionIDs, e.PreviousHash, e.Timestamp) == e.Hash
}
