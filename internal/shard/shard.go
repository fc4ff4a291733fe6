package shard

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shardpoh/ledger/internal/block"
	"github.com/shardpoh/ledger/internal/checkpoint"
	"github.com/shardpoh/ledger/internal/metrics"
	"github.com/shardpoh/ledger/internal/poh"
	"github.com/shardpoh/ledger/internal/validator"
)

// Config bundles the tunables a Shard needs, distinct from the wider
// process config so the package has no dependency on internal/config.
type Config struct {
	BatchSize               int
	MinTransactionsPerBlock int
	MaxTransactionsPerBlock int
	BlockTimeThreshold      time.Duration
	EpochThreshold          uint64
	EpochMaxDuration        time.Duration
}

// Shard owns one partition's transaction pool, cross-shard queue,
// validator set, PoH-backed chain, and epoch state. All mutating methods
// acquire Shard's own mutex; this is the "logically single-writer per
// shard" critical section spec.md §5 requires.
type Shard struct {
	mu sync.Mutex

	ID     int
	Config Config

	Epoch                 uint64
	EpochStartTime        time.Time
	TransactionCount      uint64
	TransactionPool       []Transaction
	PendingCrossShardTxs  []Transaction
	ProcessedTransactions map[string]struct{}
	CompletedTransactions map[string]Transaction
	Ledger                map[string]uint64
	Blocks                []block.Block
	Validators            []*validator.Validator
	LastBlockTime         time.Time
	PendingCheckpoint     *checkpoint.Checkpoint

	generator *poh.Generator
	metrics   *metrics.BlockMetrics
	log       zerolog.Logger
}

// New creates a Shard with the given id, validators, config, metrics
// sink, and logger. now seeds epoch_start_time and last_block_time.
func New(id int, validators []*validator.Validator, cfg Config, m *metrics.BlockMetrics, log zerolog.Logger, now time.Time) *Shard {
	return &Shard{
		ID:                     id,
		Config:                 cfg,
		EpochStartTime:         now,
		TransactionPool:        make([]Transaction, 0),
		PendingCrossShardTxs:   make([]Transaction, 0),
		ProcessedTransactions:  make(map[string]struct{}),
		CompletedTransactions:  make(map[string]Transaction),
		Ledger:                 make(map[string]uint64),
		Blocks:                 make([]block.Block, 0),
		Validators:             validators,
		LastBlockTime:          now,
		generator:              poh.NewGenerator(cfg.BatchSize, log),
		metrics:                m,
		log:                    log.With().Int("shard_id", id).Logger(),
	}
}

// Submit admits tx per the submission discipline in spec.md §4.4: direct
// same-shard admission, cross-shard enqueueing, or silent duplicate
// suppression. After admission it evaluates block formation and epoch
// transition.
func (s *Shard) Submit(tx Transaction, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitLocked(tx, now)
}

func (s *Shard) submitLocked(tx Transaction, now time.Time) {
	if _, dup := s.ProcessedTransactions[tx.ID]; dup {
		s.log.Debug().Str("tx_id", tx.ID).Msg("duplicate transaction ignored")
		return
	}

	switch {
	case tx.FromShard == s.ID && tx.ToShard == s.ID:
		tx.Status = Processing
		s.TransactionPool = append(s.TransactionPool, tx)
		s.ProcessedTransactions[tx.ID] = struct{}{}
	case tx.FromShard == s.ID && tx.ToShard != s.ID:
		s.PendingCrossShardTxs = append(s.PendingCrossShardTxs, tx)
	default:
		s.log.Warn().Str("tx_id", tx.ID).Int("from_shard", tx.FromShard).Msg("submit called on non-owning shard")
		return
	}

	s.afterPoolMutation(now)
}

// ProcessCrossShardTransaction admits tx at its destination shard,
// idempotent against ProcessedTransactions, then evaluates block
// formation and epoch transition. Called by Gossip.
func (s *Shard) ProcessCrossShardTransaction(tx Transaction, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ProcessedTransactions[tx.ID]; dup {
		s.log.Debug().Str("tx_id", tx.ID).Msg("duplicate cross-shard transaction ignored")
		return
	}

	tx.Status = Processing
	s.TransactionPool = append(s.TransactionPool, tx)
	s.ProcessedTransactions[tx.ID] = struct{}{}

	s.afterPoolMutation(now)
}

// DrainPendingCrossShardTxs atomically takes and clears the shard's
// pending cross-shard queue. Used by Gossip under its own multi-shard
// lock, per spec.md §5's "consistent snapshot" requirement.
func (s *Shard) DrainPendingCrossShardTxs() []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.PendingCrossShardTxs
	s.PendingCrossShardTxs = make([]Transaction, 0)
	if s.metrics != nil {
		s.metrics.SetCrossShardQueueDepth(s.ID, 0)
	}
	return drained
}

// afterPoolMutation runs the block-formation trigger followed by the
// epoch-transition check, as spec.md §4.2 requires after every pool
// mutation and every block-formation attempt.
func (s *Shard) afterPoolMutation(now time.Time) {
	if s.metrics != nil {
		s.metrics.SetCrossShardQueueDepth(s.ID, len(s.PendingCrossShardTxs))
	}
	s.checkAndCreateBlock(now)
	s.checkEpochTransition(now)
}

// dynamicMinTransactions implements spec.md §4.2's occupancy thresholds.
func dynamicMinTransactions(total, minTx, maxTx int) int {
	switch {
	case total > 1500:
		return 1500
	case total > 750:
		return maxTx / 2
	case total > 300:
		return maxTx * 2 / 10
	default:
		return minTx
	}
}

// performanceSnapshot builds the per-validator performance record the PoH
// generator folds into its hash perturbation, per spec.md §4.1's coupling
// between validator reputation and the chain. Honesty mirrors
// FinalVoteWeight's own honesty term (successful_votes/votes_cast,
// defaulting to 1.0 for a validator that has not yet voted).
func (s *Shard) performanceSnapshot() map[string]poh.Performance {
	if len(s.Validators) == 0 {
		return nil
	}
	snapshot := make(map[string]poh.Performance, len(s.Validators))
	for _, v := range s.Validators {
		honesty := 1.0
		if v.VotesCast != 0 {
			honesty = float64(v.SuccessfulVotes) / float64(v.VotesCast)
		}
		snapshot[v.ID] = poh.Performance{
			ValidatorID:    v.ID,
			HonestyScore:   honesty,
			ResponseTimeMs: v.AverageResponseTimeMs,
		}
	}
	return snapshot
}

// checkAndCreateBlock evaluates the dual time/occupancy trigger and, if
// met, forms a block from TransactionPool alone. PendingCrossShardTxs
// holds outbound transactions awaiting Gossip forwarding: to_shard !=
// self.id for every entry in that queue, so committing out of it here
// would violate the "no committed transaction has to_shard != self.id in
// the committing shard" invariant. Gossip.Drain is the only thing that
// ever removes entries from PendingCrossShardTxs.
func (s *Shard) checkAndCreateBlock(now time.Time) {
	total := len(s.TransactionPool) + len(s.PendingCrossShardTxs)

	timeTrigger := now.Sub(s.LastBlockTime) >= s.Config.BlockTimeThreshold
	occupancyThreshold := dynamicMinTransactions(total, s.Config.MinTransactionsPerBlock, s.Config.MaxTransactionsPerBlock)
	occupancyTrigger := total >= occupancyThreshold

	if !timeTrigger && !occupancyTrigger {
		return
	}
	if total < s.Config.MinTransactionsPerBlock {
		return
	}
	if len(s.TransactionPool) == 0 {
		return
	}

	selected := s.TransactionPool
	if len(selected) > s.Config.MaxTransactionsPerBlock {
		selected = selected[:s.Config.MaxTransactionsPerBlock]
	}
	consumedPool := len(selected)

	start := time.Now()
	ids := make([]string, len(selected))
	for i, tx := range selected {
		ids[i] = tx.ID
	}

	entries, err := s.generator.GenerateEntries(ids, s.performanceSnapshot())
	if err != nil {
		s.log.Error().Err(err).Msg("poh generation failed, restoring pool")
		return
	}

	number := uint64(len(s.Blocks)) + 1
	previousHash := block.GenesisPreviousHash
	if len(s.Blocks) > 0 {
		previousHash = s.Blocks[len(s.Blocks)-1].Hash
	}

	b, err := block.New(number, entries, previousHash)
	if err != nil {
		s.log.Error().Err(err).Msg("block construction failed, restoring pool")
		return
	}

	tally := validator.Vote(s.Validators, s.Epoch)
	if !tally.Accepted() {
		s.log.Warn().
			Float64("total_weight", tally.TotalWeight).
			Float64("positive_weight", tally.PositiveWeight).
			Msg("block rejected by weighted-vote consensus")
		if s.metrics != nil {
			s.metrics.RecordBlockRejected(s.ID)
		}
		return
	}

	s.TransactionPool = s.TransactionPool[consumedPool:]

	s.Blocks = append(s.Blocks, b)
	for _, tx := range selected {
		tx.Status = Completed
		s.ProcessedTransactions[tx.ID] = struct{}{}
		s.CompletedTransactions[tx.ID] = tx
		s.Ledger[tx.ID] = tx.Amount
	}
	s.TransactionCount += uint64(len(selected))
	s.LastBlockTime = now

	if s.metrics != nil {
		s.metrics.RecordBlockCommit(s.ID, time.Since(start))
	}
	s.log.Info().
		Uint64("block_number", b.Number).
		Int("tx_count", len(selected)).
		Str("block_hash", b.Hash).
		Msg("block committed")
}

// checkEpochTransition evaluates the count/duration trigger and, if met,
// runs the six ordered epoch-transition actions of spec.md §4.5.
func (s *Shard) checkEpochTransition(now time.Time) {
	countTrigger := s.TransactionCount >= s.Config.EpochThreshold
	durationTrigger := now.Sub(s.EpochStartTime) >= s.Config.EpochMaxDuration
	if !countTrigger && !durationTrigger {
		return
	}

	s.Epoch++
	s.EpochStartTime = now
	s.TransactionCount = 0

	validator.ByWeightDescending(s.Validators, s.Epoch)

	for _, v := range s.Validators {
		v.AdvanceEpoch()
	}

	pool := make([]checkpoint.PooledTransaction, len(s.TransactionPool))
	for i, tx := range s.TransactionPool {
		pool[i] = checkpoint.PooledTransaction{ID: tx.ID, Amount: tx.Amount, FromShard: tx.FromShard, ToShard: tx.ToShard}
	}
	processed := make([]string, 0, len(s.ProcessedTransactions))
	for id := range s.ProcessedTransactions {
		processed = append(processed, id)
	}
	cp, err := checkpoint.New(s.ID, len(s.Blocks), s.Ledger, pool, processed)
	if err != nil {
		s.log.Error().Err(err).Msg("checkpoint capture failed")
	} else {
		s.PendingCheckpoint = &cp
	}

	s.TransactionPool = make([]Transaction, 0)
	s.ProcessedTransactions = make(map[string]struct{})

	if s.metrics != nil {
		s.metrics.RecordEpochTransition(s.ID)
	}
	s.log.Info().Uint64("epoch", s.Epoch).Msg("epoch transition")
}

// TakePendingCheckpoint returns and clears the shard's pending checkpoint,
// if any. Used by Gossip to disseminate it exactly once.
func (s *Shard) TakePendingCheckpoint() *checkpoint.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.PendingCheckpoint
	s.PendingCheckpoint = nil
	return cp
}

// ReceiveCheckpoint overwrites this shard's ledger, processed-transaction
// set, and pool with cp's snapshot, and clears the local block chain.
// This is the trust-all checkpoint model spec.md §9 flags as a known
// simplification: it is implemented as stated, not "fixed".
func (s *Shard) ReceiveCheckpoint(cp checkpoint.Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Ledger = make(map[string]uint64, len(cp.LedgerSnapshot))
	for k, v := range cp.LedgerSnapshot {
		s.Ledger[k] = v
	}

	s.TransactionPool = make([]Transaction, len(cp.TransactionPoolSnapshot))
	for i, pt := range cp.TransactionPoolSnapshot {
		s.TransactionPool[i] = Transaction{ID: pt.ID, Amount: pt.Amount, FromShard: pt.FromShard, ToShard: pt.ToShard, Status: Processing}
	}

	s.ProcessedTransactions = make(map[string]struct{}, len(cp.ProcessedTransactionsSnapshot))
	for _, id := range cp.ProcessedTransactionsSnapshot {
		s.ProcessedTransactions[id] = struct{}{}
	}

	s.Blocks = make([]block.Block, 0)
	// The checkpoint snapshot carries ledger balances and the processed-ID
	// set but not per-transaction status history, so CompletedTransactions
	// is reset rather than guessed at, same as Blocks.
	s.CompletedTransactions = make(map[string]Transaction)

	s.log.Info().Str("checkpoint_id", cp.ID).Int("from_shard", cp.ShardID).Msg("checkpoint received, local blocks reset")
}

// Snapshot returns a read-only view of the shard's externally-observable
// state, matching the stats boundary of spec.md §6.
type Snapshot struct {
	ID                   int
	BlockCount           int
	PoolSize             int
	ProcessedTxCount     int
	CompletedTxCount     int
	ValidatorIDs         []string
	HasPendingCheckpoint bool
}

// Stats builds a Snapshot under the shard's lock.
func (s *Shard) Stats() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.Validators))
	for i, v := range s.Validators {
		ids[i] = v.ID
	}
	return Snapshot{
		ID:                   s.ID,
		BlockCount:           len(s.Blocks),
		PoolSize:             len(s.TransactionPool),
		ProcessedTxCount:     len(s.ProcessedTransactions),
		CompletedTxCount:     len(s.CompletedTransactions),
		ValidatorIDs:         ids,
		HasPendingCheckpoint: s.PendingCheckpoint != nil,
	}
}

func (s *Shard) String() string {
	return fmt.Sprintf("shard[%d]", s.ID)
}
