// Package checkpoint defines the per-epoch shard snapshot disseminated by
// gossip, plus a Merkle commitment over its processed-transaction set used
// as an additional integrity artifact.
package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/cbergoon/merkletree"
	"github.com/google/uuid"
)

// Checkpoint is an immutable snapshot of a shard's ledger, pool, and
// processed-transaction set, captured at an epoch transition.
type Checkpoint struct {
	ID                            string
	ShardID                       int
	BlockHeight                   int
	LedgerSnapshot                map[string]uint64
	TransactionPoolSnapshot       []PooledTransaction
	ProcessedTransactionsSnapshot []string
	MerkleRoot                    string
}

// PooledTransaction is the subset of transaction fields captured in a
// pool snapshot.
type PooledTransaction struct {
	ID        string
	Amount    uint64
	FromShard int
	ToShard   int
}

// idContent adapts a transaction ID to merkletree.Content.
type idContent string

func (c idContent) CalculateHash() ([]byte, error) {
	sum := sha256.Sum256([]byte(c))
	return sum[:], nil
}

func (c idContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(idContent)
	if !ok {
		return false, nil
	}
	return c == o, nil
}

// New captures a Checkpoint from the given snapshot data and computes its
// Merkle root over the sorted processed-transaction IDs. An empty
// processed set yields an empty MerkleRoot.
func New(shardID, blockHeight int, ledger map[string]uint64, pool []PooledTransaction, processed []string) (Checkpoint, error) {
	ledgerCopy := make(map[string]uint64, len(ledger))
	for k, v := range ledger {
		ledgerCopy[k] = v
	}
	poolCopy := make([]PooledTransaction, len(pool))
	copy(poolCopy, pool)
	processedCopy := make([]string, len(processed))
	copy(processedCopy, processed)
	sort.Strings(processedCopy)

	cp := Checkpoint{
		ID:                            uuid.NewString(),
		ShardID:                       shardID,
		BlockHeight:                   blockHeight,
		LedgerSnapshot:                ledgerCopy,
		TransactionPoolSnapshot:       poolCopy,
		ProcessedTransactionsSnapshot: processedCopy,
	}

	root, err := merkleRoot(processedCopy)
	if err != nil {
		return Checkpoint{}, err
	}
	cp.MerkleRoot = root
	return cp, nil
}

func merkleRoot(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	contents := make([]merkletree.Content, len(ids))
	for i, id := range ids {
		contents[i] = idContent(id)
	}
	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}
