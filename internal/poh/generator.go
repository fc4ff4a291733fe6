package poh

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Performance is one validator's observed behavior, used to perturb the
// running previous hash between entries. It is intentionally a small,
// opaque record: the PoH chain does not interpret these fields beyond
// folding a textual contribution factor into the hash input.
type Performance struct {
	ValidatorID     string
	HonestyScore    float64
	ResponseTimeMs  float64
}

// contributionFactor is honesty_score / (response_time + 1), rendered as
// text and appended to the running previous hash. The coupling is cosmetic
// reputation-to-chain binding, not a cryptographic commitment.
func (p Performance) contributionFactor() string {
	return fmt.Sprintf("%.6f", p.HonestyScore/(p.ResponseTimeMs+1))
}

// Generator is a per-shard, stateful producer of PoH entries. It owns the
// running previous-hash cursor; it is not safe for concurrent use from
// multiple goroutines without external synchronization (the owning shard
// provides that).
type Generator struct {
	BatchSize    int
	previousHash string
	log          zerolog.Logger
}

// NewGenerator creates a Generator seeded at the genesis hash "0" with the
// given batch size. A batchSize <= 0 is treated as 1.
func NewGenerator(batchSize int, log zerolog.Logger) *Generator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Generator{BatchSize: batchSize, previousHash: "0", log: log}
}

// PreviousHash returns the generator's current chain cursor.
func (g *Generator) PreviousHash() string {
	return g.previousHash
}

// GenerateEntries splits txIDs into successive chunks of at most BatchSize
// elements (the last chunk may be shorter) and produces one Entry per
// chunk, threading the previous hash across calls.
func (g *Generator) GenerateEntries(txIDs []string, performance map[string]Performance) ([]Entry, error) {
	if len(txIDs) == 0 {
		return nil, ErrEmptyBatch
	}
	entries := make([]Entry, 0, (len(txIDs)+g.BatchSize-1)/g.BatchSize)
	for start := 0; start < len(txIDs); start += g.BatchSize {
		end := start + g.BatchSize
		if end > len(txIDs) {
			end = len(txIDs)
		}
		entry, err := g.GenerateEntry(txIDs[start:end], performance)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GenerateEntry builds a single Entry from one chunk of transaction IDs,
// validates the chunk, perturbs the running previous hash with the supplied
// validator performance records (iterated in ascending validator ID order
// for determinism), and advances the generator's cursor to the perturbed
// value so the perturbation is visible to the next call.
func (g *Generator) GenerateEntry(txIDs []string, performance map[string]Performance) (Entry, error) {
	if len(txIDs) == 0 {
		return Entry{}, ErrEmptyBatch
	}
	for _, id := range txIDs {
		if id == "" {
			return Entry{}, ErrEmptyTransactionID
		}
	}

	entry := newEntry(txIDs, g.previousHash, time.Now())
	g.previousHash = perturb(entry.Hash, performance)

	g.log.Debug().
		Str("entry_hash", entry.Hash).
		Int("batch", len(txIDs)).
		Msg("poh entry generated")

	return entry, nil
}

// perturb extends a hash with the deterministic, ascending-validator-id
// ordered contribution factors derived from performance.
func perturb(hash string, performance map[string]Performance) string {
	if len(performance) == 0 {
		return hash
	}
	ids := make([]string, 0, len(performance))
	for id := range performance {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := hash
	for _, id := range ids {
		out += performance[id].contributionFactor()
	}
	return out
}
