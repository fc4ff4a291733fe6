// Package block implements the per-shard append-only block chain: an
// ordered sequence of blocks, each bundling one or more PoH entries and
// linked to its predecessor by a SHA-256 self-hash.
package block

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/shardpoh/ledger/internal/poh"
)

// GenesisPreviousHash is the previous-hash value carried by a shard's first
// block.
const GenesisPreviousHash = "0"

// ErrEmptyEntries is returned when a block is built with no PoH entries.
var ErrEmptyEntries = errors.New("block: no poh entries")

// Block is an immutable bundle of PoH entries with chain linkage.
type Block struct {
	Number       uint64
	Entries      []poh.Entry
	PreviousHash string
	Hash         string
	Timestamp    int64
}

// New builds a Block from an ordered, non-empty list of PoH entries.
func New(number uint64, entries []poh.Entry, previousHash string) (Block, error) {
	if len(entries) == 0 {
		return Block{}, ErrEmptyEntries
	}
	now := time.Now().Unix()
	b := Block{
		Number:       number,
		Entries:      entries,
		PreviousHash: previousHash,
		Timestamp:    now,
	}
	b.Hash = computeHash(number, entries, previousHash)
	return b, nil
}

// computeHash is hex SHA-256 of the block number (ASCII decimal), every
// entry's hash in order, and the previous hash.
func computeHash(number uint64, entries []poh.Entry, previousHash string) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatUint(number, 10)))
	for _, e := range entries {
		h.Write([]byte(e.Hash))
	}
	h.Write([]byte(previousHash))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes the block's hash from its own fields and reports
// whether it matches the stored Hash.
func (b Block) Verify() bool {
	return computeHash(b.Number, b.Entries, b.PreviousHash) == b.Hash
}

// TransactionCount returns the number of transaction IDs bundled across all
// of the block's PoH entries.
func (b Block) TransactionCount() int {
	n := 0
	for _, e := range b.Entries {
		n += len(e.TransactionIDs)
	}
	return n
}

// ValidChain reports whether blocks form an uninterrupted hash chain: the
// first block's PreviousHash is GenesisPreviousHash, and every subsequent
// block's PreviousHash equals its predecessor's Hash.
func ValidChain(blocks []Block) bool {
	if len(blocks) == 0 {
		return true
	}
	if blocks[0].PreviousHash != GenesisPreviousHash {
		return false
	}
	for i := 1; i < len(blocks); i++ {
		if blocks[i].PreviousHash != blocks[i-1].Hash {
			return false
		}
	}
	return true
}
