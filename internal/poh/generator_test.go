package poh

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(batchSize int) *Generator {
	return NewGenerator(batchSize, zerolog.Nop())
}

func TestGenerateEntryEmptyBatch(t *testing.T) {
	g := newTestGenerator(100)
	_, err := g.GenerateEntry(nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestGenerateEntryEmptyTransactionID(t *testing.T) {
	g := newTestGenerator(100)
	_, err := g.GenerateEntry([]string{"tx1", ""}, nil)
	require.ErrorIs(t, err, ErrEmptyTransactionID)
}

func TestGenerateEntriesChunking(t *testing.T) {
	g := newTestGenerator(3)
	txIDs := []string{"tx1", "tx2", "tx3", "tx4", "tx5"}
	entries, err := g.GenerateEntries(txIDs, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []string{"tx1", "tx2", "tx3"}, entries[0].TransactionIDs)
	require.Equal(t, []string{"tx4", "tx5"}, entries[1].TransactionIDs)
	require.Equal(t, "0", entries[0].PreviousHash)
}

func TestEntryHashIsPure(t *testing.T) {
	g := newTestGenerator(100)
	entry, err := g.GenerateEntry([]string{"tx1", "tx2"}, nil)
	require.NoError(t, err)
	require.True(t, entry.Verify())
}

func TestGenerateEntriesEmpty(t *testing.T) {
	g := newTestGenerator(100)
	_, err := g.GenerateEntries(nil, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestPerturbationIsDeterministicAndOrderIndependentOfMapIteration(t *testing.T) {
	perf := map[string]Performance{
		"v2": {ValidatorID: "v2", HonestyScore: 0.8, ResponseTimeMs: 10},
		"v1": {ValidatorID: "v1", HonestyScore: 0.9, ResponseTimeMs: 5},
	}
	a := perturb("deadbeef", perf)
	b := perturb("deadbeef", perf)
	require.Equal(t, a, b)
	require.Contains(t, a, perf["v1"].contributionFactor())
	require.Contains(t, a, perf["v2"].contributionFactor())
}

func TestPerturbationCarriesForwardToNextEntry(t *testing.T) {
	g := newTestGenerator(100)
	perf := map[string]Performance{
		"v1": {ValidatorID: "v1", HonestyScore: 1, ResponseTimeMs: 0},
	}
	first, err := g.GenerateEntry([]string{"tx1"}, perf)
	require.NoError(t, err)

	second, err := g.GenerateEntry([]string{"tx2"}, nil)
	require.NoError(t, err)

	require.NotEqual(t, first.Hash, second.PreviousHash)
	require.Equal(t, perturb(first.Hash, perf), second.PreviousHash)
}

func TestGenerateEntryWithoutPerformanceLeavesChainUnperturbed(t *testing.T) {
	g := newTestGenerator(100)
	first, err := g.GenerateEntry([]string{"tx1"}, nil)
	require.NoError(t, err)
	require.Equal(t, first.Hash, g.PreviousHash())
}
