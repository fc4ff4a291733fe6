// Package stats defines the typed, read-only snapshot types for the
// external stats boundary (spec.md §6). It replaces the dynamically-typed
// stats JSON spec.md §9 flags, with fixed record types; any HTTP or other
// external serving of these is out of this module's scope.
package stats

import (
	"github.com/shardpoh/ledger/internal/block"
	"github.com/shardpoh/ledger/internal/shard"
)

// BlockSummary is the read-only view of one committed block.
type BlockSummary struct {
	Number       uint64
	Hash         string
	PreviousHash string
	TxCount      int
	Timestamp    int64
}

// SummarizeBlock converts a block.Block into its external summary.
func SummarizeBlock(b block.Block) BlockSummary {
	return BlockSummary{
		Number:       b.Number,
		Hash:         b.Hash,
		PreviousHash: b.PreviousHash,
		TxCount:      b.TransactionCount(),
		Timestamp:    b.Timestamp,
	}
}

// ShardSummary is the read-only per-shard snapshot.
type ShardSummary struct {
	ID                   int
	BlockCount           int
	PoolSize             int
	ProcessedTxCount     int
	CompletedTxCount     int
	ValidatorIDs         []string
	HasPendingCheckpoint bool
}

// SummarizeShard converts a shard.Snapshot into its external summary.
func SummarizeShard(s shard.Snapshot) ShardSummary {
	return ShardSummary{
		ID:                   s.ID,
		BlockCount:           s.BlockCount,
		PoolSize:             s.PoolSize,
		ProcessedTxCount:     s.ProcessedTxCount,
		CompletedTxCount:     s.CompletedTxCount,
		ValidatorIDs:         s.ValidatorIDs,
		HasPendingCheckpoint: s.HasPendingCheckpoint,
	}
}

// NetworkSummary aggregates totals across every shard.
type NetworkSummary struct {
	ShardCount     int
	TotalBlocks    int
	TotalPoolSize  int
	TotalProcessed int
	TotalCompleted int
	Shards         []ShardSummary
}

// SummarizeNetwork aggregates per-shard summaries into network totals.
func SummarizeNetwork(shards []ShardSummary) NetworkSummary {
	n := NetworkSummary{ShardCount: len(shards), Shards: shards}
	for _, s := range shards {
		n.TotalBlocks += s.BlockCount
		n.TotalPoolSize += s.PoolSize
		n.TotalProcessed += s.ProcessedTxCount
		n.TotalCompleted += s.CompletedTxCount
	}
	return n
}
