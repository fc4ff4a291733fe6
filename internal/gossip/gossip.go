// Package gossip moves cross-shard transactions to their destination
// shard and broadcasts epoch checkpoints, per spec.md §4.4/§4.5. It is an
// in-process operation over a shared, locked vector of shards, not a
// networked protocol.
package gossip

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shardpoh/ledger/internal/checkpoint"
	"github.com/shardpoh/ledger/internal/shard"
)

// PeerDirectoryClient is the abstract contract spec.md §6 describes for
// the peer directory: register this node and addr, and receive back the
// directory's known (id, addr) pairs. No implementation is provided here;
// the peer directory is an external collaborator out of this module's
// scope.
type PeerDirectoryClient interface {
	Register(nodeID, addr string) (peers []string, err error)
}

// Gossip coordinates cross-shard forwarding and checkpoint dissemination
// across a fixed set of shards, serialized under its own lock so a single
// invocation observes a consistent snapshot of every shard's pending
// cross-shard queue, per spec.md §5.
type Gossip struct {
	mu     sync.Mutex
	shards []*shard.Shard
	log    zerolog.Logger
}

// New creates a Gossip over shards. Destinations are found by a linear
// scan of shards by ID, so the slice need not be sorted.
func New(shards []*shard.Shard, log zerolog.Logger) *Gossip {
	return &Gossip{shards: shards, log: log}
}

func (g *Gossip) lookup(id int) *shard.Shard {
	for _, s := range g.shards {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Drain drains every shard's pending cross-shard queue and routes each
// transaction to its destination shard by ToShard. Transactions whose
// destination shard does not exist are dropped with a log, per spec.md
// §4.4/§7.
func (g *Gossip) Drain(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var drained []shard.Transaction
	for _, s := range g.shards {
		drained = append(drained, s.DrainPendingCrossShardTxs()...)
	}

	for _, tx := range drained {
		dest := g.lookup(tx.ToShard)
		if dest == nil {
			g.log.Warn().Str("tx_id", tx.ID).Int("to_shard", tx.ToShard).Msg("cross-shard transaction dropped: no destination shard")
			continue
		}
		dest.ProcessCrossShardTransaction(tx, now)
	}
}

// Run invokes Drain on a timer until ctx-like stop is signaled via the
// returned stop function, mirroring periodic_gossip in spec.md §4.4.
func (g *Gossip) Run(interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				ticker.Stop()
				return
			case t := <-ticker.C:
				g.Drain(t)
				g.CollectAndBroadcastCheckpoints()
			}
		}
	}()
	return func() { close(done) }
}

// BroadcastCheckpoint sends cp to every shard whose ID differs from
// cp.ShardID, per spec.md §4.5.
func (g *Gossip) BroadcastCheckpoint(cp checkpoint.Checkpoint) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, s := range g.shards {
		if s.ID == cp.ShardID {
			continue
		}
		s.ReceiveCheckpoint(cp)
	}
	g.log.Info().Str("checkpoint_id", cp.ID).Int("from_shard", cp.ShardID).Msg("checkpoint broadcast")
}

// CollectAndBroadcastCheckpoints takes every shard's pending checkpoint,
// if any, and broadcasts it to the rest of the shard set. Called after
// each Drain cycle so epoch checkpoints disseminate promptly.
func (g *Gossip) CollectAndBroadcastCheckpoints() {
	g.mu.Lock()
	shards := append([]*shard.Shard(nil), g.shards...)
	g.mu.Unlock()

	for _, s := range shards {
		if cp := s.TakePendingCheckpoint(); cp != nil {
			g.BroadcastCheckpoint(*cp)
		}
	}
}
