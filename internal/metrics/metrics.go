// Package metrics replaces the block-generation-time histogram global
// state spec.md §9 calls out, with a dedicated, explicitly-passed
// component. The last-block timestamp is not kept here; each shard holds
// its own in Shard.LastBlockTime.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BlockMetrics is the ledger's only metrics surface. Its contract is
// RecordBlockCommit plus a handful of gauges/counters the shard and
// gossip layers update as they go.
type BlockMetrics struct {
	blockCommitDuration *prometheus.HistogramVec
	crossShardQueueDepth *prometheus.GaugeVec
	epochTransitions    *prometheus.CounterVec
	blocksRejected      *prometheus.CounterVec
}

// NewBlockMetrics constructs and registers the ledger's metrics on reg. If
// reg is nil, a fresh private registry is used (useful in tests).
func NewBlockMetrics(reg prometheus.Registerer) *BlockMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &BlockMetrics{
		blockCommitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "block_commit_duration_seconds",
			Help:      "Time to form and commit a block, per shard.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"shard_id"}),
		crossShardQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ledger",
			Name:      "cross_shard_queue_depth",
			Help:      "Pending cross-shard transactions awaiting gossip, per shard.",
		}, []string{"shard_id"}),
		epochTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "epoch_transitions_total",
			Help:      "Epoch transitions observed, per shard.",
		}, []string{"shard_id"}),
		blocksRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "blocks_rejected_total",
			Help:      "Blocks discarded by the weighted-vote rule, per shard.",
		}, []string{"shard_id"}),
	}
	reg.MustRegister(m.blockCommitDuration, m.crossShardQueueDepth, m.epochTransitions, m.blocksRejected)
	return m
}

// RecordBlockCommit records how long block formation took for shardID.
func (m *BlockMetrics) RecordBlockCommit(shardID int, d time.Duration) {
	if m == nil {
		return
	}
	m.blockCommitDuration.WithLabelValues(shardIDLabel(shardID)).Observe(d.Seconds())
}

// SetCrossShardQueueDepth reports the current pending cross-shard queue
// length for shardID.
func (m *BlockMetrics) SetCrossShardQueueDepth(shardID, depth int) {
	if m == nil {
		return
	}
	m.crossShardQueueDepth.WithLabelValues(shardIDLabel(shardID)).Set(float64(depth))
}

// RecordEpochTransition increments the epoch-transition counter for shardID.
func (m *BlockMetrics) RecordEpochTransition(shardID int) {
	if m == nil {
		return
	}
	m.epochTransitions.WithLabelValues(shardIDLabel(shardID)).Inc()
}

// RecordBlockRejected increments the rejected-block counter for shardID.
func (m *BlockMetrics) RecordBlockRejected(shardID int) {
	if m == nil {
		return
	}
	m.blocksRejected.WithLabelValues(shardIDLabel(shardID)).Inc()
}

func shardIDLabel(shardID int) string {
	return strconv.Itoa(shardID)
}
