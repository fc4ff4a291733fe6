package shard

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shardpoh/ledger/internal/validator"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		BatchSize:               100,
		MinTransactionsPerBlock: 10,
		MaxTransactionsPerBlock: 1000,
		BlockTimeThreshold:      15 * time.Second,
		EpochThreshold:          100,
		EpochMaxDuration:        300 * time.Second,
	}
}

func newTestShard(id int, cfg Config, validators []*validator.Validator, now time.Time) *Shard {
	return New(id, validators, cfg, nil, zerolog.Nop(), now)
}

// S1: genesis block.
func TestGenesisBlock(t *testing.T) {
	now := time.Now()
	vs := []*validator.Validator{validator.New("v1", 1, 0.9), validator.New("v2", 1, 0.9)}
	s := newTestShard(1, testConfig(), vs, now)

	for i := 1; i <= 10; i++ {
		tx := Transaction{ID: idOf(i), Amount: 1, FromShard: 1, ToShard: 1}
		s.Submit(tx, now)
	}

	require.Len(t, s.Blocks, 1)
	require.EqualValues(t, 1, s.Blocks[0].Number)
	require.Equal(t, "0", s.Blocks[0].PreviousHash)
	require.Empty(t, s.TransactionPool)
}

// S2: cross-shard forwarding (manual two-shard wiring, gossip tested in
// internal/gossip).
func TestCrossShardEnqueueThenProcess(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	shard1 := newTestShard(1, cfg, []*validator.Validator{validator.New("v1", 1, 0.9)}, now)
	shard2 := newTestShard(2, cfg, []*validator.Validator{validator.New("v2", 2, 0.9)}, now)

	tx := Transaction{ID: "tx1", Amount: 5, FromShard: 1, ToShard: 2}
	shard1.Submit(tx, now)

	require.Len(t, shard1.PendingCrossShardTxs, 1)
	require.Empty(t, shard1.TransactionPool)

	drained := shard1.DrainPendingCrossShardTxs()
	require.Len(t, drained, 1)
	require.Empty(t, shard1.PendingCrossShardTxs)

	shard2.ProcessCrossShardTransaction(drained[0], now)
	require.Len(t, shard2.TransactionPool, 1)
	require.Equal(t, Processing, shard2.TransactionPool[0].Status)
}

// S3: duplicate suppression.
func TestDuplicateSuppression(t *testing.T) {
	now := time.Now()
	s := newTestShard(1, testConfig(), []*validator.Validator{validator.New("v1", 1, 0.9)}, now)

	tx := Transaction{ID: "tx1", Amount: 1, FromShard: 1, ToShard: 1}
	s.Submit(tx, now)
	s.Submit(tx, now)

	require.Len(t, s.TransactionPool, 1)
}

// S5: epoch transition on count.
func TestEpochTransitionOnCount(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.EpochThreshold = 3
	cfg.MinTransactionsPerBlock = 1
	vs := []*validator.Validator{validator.New("v1", 1, 0.9)}
	s := newTestShard(1, cfg, vs, now)

	for i := 1; i <= 3; i++ {
		s.Submit(Transaction{ID: idOf(i), Amount: 1, FromShard: 1, ToShard: 1}, now.Add(16*time.Second))
	}

	require.EqualValues(t, 1, s.Epoch)
	require.Empty(t, s.TransactionPool)
	require.Empty(t, s.ProcessedTransactions)
	require.EqualValues(t, 2, vs[0].EpochsActive)
	require.NotNil(t, s.PendingCheckpoint)
}

// S6: dynamic batch sizing. With max=1000 and total=760 pending, the
// dynamic occupancy threshold is 500 (see DESIGN.md for the resolved
// tension between this threshold and the separate max_transactions_per_block
// truncation rule: selection truncates to max, not to the dynamic
// threshold, so a pool already at 760 commits all 760, not 500).
func TestDynamicBatchSizing(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MaxTransactionsPerBlock = 1000
	cfg.MinTransactionsPerBlock = 10
	cfg.BlockTimeThreshold = time.Hour
	vs := []*validator.Validator{validator.New("v1", 1, 0.9)}
	s := newTestShard(1, cfg, vs, now)

	require.Equal(t, 500, dynamicMinTransactions(760, cfg.MinTransactionsPerBlock, cfg.MaxTransactionsPerBlock))

	for i := 1; i <= 759; i++ {
		s.mu.Lock()
		s.TransactionPool = append(s.TransactionPool, Transaction{ID: idOf(i), Amount: 1, FromShard: 1, ToShard: 1})
		s.ProcessedTransactions[idOf(i)] = struct{}{}
		s.mu.Unlock()
	}
	require.Equal(t, 759, len(s.TransactionPool))

	s.Submit(Transaction{ID: idOf(760), Amount: 1, FromShard: 1, ToShard: 1}, now)
	require.Len(t, s.Blocks, 1)
	require.Equal(t, 760, s.Blocks[0].TransactionCount())
	require.Empty(t, s.TransactionPool)
}

// A shard whose queue is entirely outbound cross-shard transactions must
// never commit them into its own block (spec.md §3 Shard invariant 2, §8
// property 4): PendingCrossShardTxs holds only to_shard != self.id
// entries, and only Gossip.Drain may remove them.
func TestCrossShardQueueNeverCommittedLocally(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinTransactionsPerBlock = 10
	cfg.BlockTimeThreshold = time.Hour
	s := newTestShard(1, cfg, []*validator.Validator{validator.New("v1", 1, 0.9)}, now)

	for i := 1; i <= 10; i++ {
		s.Submit(Transaction{ID: idOf(i), Amount: 1, FromShard: 1, ToShard: 2}, now)
	}

	require.Empty(t, s.Blocks)
	require.Len(t, s.PendingCrossShardTxs, 10)
	require.Empty(t, s.TransactionPool)
	for _, tx := range s.PendingCrossShardTxs {
		require.NotEqual(t, s.ID, tx.ToShard)
	}
}

// Committed transactions are marked Completed and retained in
// CompletedTransactions, per spec.md §4.2's "mark every included
// transaction Completed" and the §3 terminal-status lifecycle.
func TestCommittedTransactionsMarkedCompleted(t *testing.T) {
	now := time.Now()
	vs := []*validator.Validator{validator.New("v1", 1, 0.9)}
	s := newTestShard(1, testConfig(), vs, now)

	for i := 1; i <= 10; i++ {
		s.Submit(Transaction{ID: idOf(i), Amount: 1, FromShard: 1, ToShard: 1}, now)
	}

	require.Len(t, s.Blocks, 1)
	require.Len(t, s.CompletedTransactions, 10)
	for i := 1; i <= 10; i++ {
		tx, ok := s.CompletedTransactions[idOf(i)]
		require.True(t, ok)
		require.Equal(t, Completed, tx.Status)
	}
}

// A validator's voting history perturbs the PoH chain it helps commit
// (spec.md §4.1). The entry hash itself is time-seeded and so not
// reproducible across test runs, but perturb() appends the contribution
// factor as a deterministic suffix, so we assert on that suffix rather
// than the chain's unpredictable prefix.
func TestValidatorPerformancePerturbsCommittedChain(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.MinTransactionsPerBlock = 1
	cfg.BlockTimeThreshold = time.Hour

	honest := validator.New("v1", 1, 0.9)
	s1 := newTestShard(1, cfg, []*validator.Validator{honest}, now)
	s1.Submit(Transaction{ID: "tx1", Amount: 1, FromShard: 1, ToShard: 1}, now)
	require.Len(t, s1.Blocks, 1)
	require.True(t, strings.HasSuffix(s1.generator.PreviousHash(), "1.000000"))

	lagging := validator.New("v1", 1, 0.9)
	lagging.RecordVote(false, true, false, 500)
	s2 := newTestShard(1, cfg, []*validator.Validator{lagging}, now)
	s2.Submit(Transaction{ID: "tx1", Amount: 1, FromShard: 1, ToShard: 1}, now)
	require.Len(t, s2.Blocks, 1)
	require.True(t, strings.HasSuffix(s2.generator.PreviousHash(), "0.000000"))
}

func TestDynamicMinTransactionsBands(t *testing.T) {
	require.Equal(t, 1500, dynamicMinTransactions(1600, 10, 1000))
	require.Equal(t, 500, dynamicMinTransactions(760, 10, 1000))
	require.Equal(t, 200, dynamicMinTransactions(301, 10, 1000))
	require.Equal(t, 10, dynamicMinTransactions(50, 10, 1000))
}

func TestCheckpointRoundTrip(t *testing.T) {
	now := time.Now()
	cfg := testConfig()
	cfg.EpochThreshold = 1
	cfg.MinTransactionsPerBlock = 1
	source := newTestShard(1, cfg, []*validator.Validator{validator.New("v1", 1, 0.9)}, now)
	dest := newTestShard(2, testConfig(), []*validator.Validator{validator.New("v2", 2, 0.9)}, now)

	source.Submit(Transaction{ID: "tx1", Amount: 7, FromShard: 1, ToShard: 1}, now.Add(16*time.Second))
	cp := source.TakePendingCheckpoint()
	require.NotNil(t, cp)

	dest.ReceiveCheckpoint(*cp)
	require.Equal(t, cp.LedgerSnapshot, dest.Ledger)
	require.Empty(t, dest.Blocks)
}

func idOf(i int) string {
	return "tx" + strconv.Itoa(i)
}
