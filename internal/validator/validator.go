// Package validator implements the reputation-weighted voter model: a
// Validator accumulates counters from observed behavior and derives a
// scalar vote weight used by the shard's consensus rule.
package validator

import "sort"

// MinFinalVoteWeight is the floor every computed weight is clamped to, so
// an honest, unused validator always clears the 0.2 positive-vote
// threshold and genesis blocks can pass.
const MinFinalVoteWeight = 0.3

// PositiveVoteThreshold is the per-validator weight above which a vote
// counts as positive.
const PositiveVoteThreshold = 0.2

// AcceptanceThreshold is the fraction of total weight that positive weight
// must exceed for a block to be accepted.
const AcceptanceThreshold = 0.3

// Validator is a reputation-bearing consensus participant.
type Validator struct {
	ID                        string
	ShardID                   int
	BaseFinalVoteWeight       float64
	VotesCast                 uint64
	SuccessfulVotes           uint64
	ParticipationCount        uint64
	ConsensusContributionCount uint64
	EpochsActive              uint64
	AverageResponseTimeMs     float64
	Penalized                 bool
}

// New creates a Validator with the given base weight and epochs_active
// seeded at 1, per the minimum-initial-value invariant.
func New(id string, shardID int, baseFinalVoteWeight float64) *Validator {
	return &Validator{
		ID:                  id,
		ShardID:             shardID,
		BaseFinalVoteWeight: baseFinalVoteWeight,
		EpochsActive:        1,
	}
}

// FinalVoteWeight computes this validator's scalar vote weight for the
// given epoch, per the weighted-vote formula: base weight scaled by
// honesty, responsiveness, participation, consensus contribution, and
// integrity, clamped to MinFinalVoteWeight.
func (v *Validator) FinalVoteWeight(epoch uint64) float64 {
	honesty := 1.0
	if v.VotesCast != 0 {
		honesty = float64(v.SuccessfulVotes) / float64(v.VotesCast)
	}

	timeWeight := 1.0 / (v.AverageResponseTimeMs + 1)

	var participation float64
	switch {
	case epoch == 0:
		participation = 1
	case v.ParticipationCount == 0:
		participation = 0.5
	default:
		participation = float64(v.ParticipationCount) / float64(epoch)
	}

	consensus := 1.0
	if v.ParticipationCount != 0 {
		consensus = float64(v.ConsensusContributionCount) / float64(v.ParticipationCount)
	}

	const longevity = 1.0
	const decay = 1.0

	integrity := 1.0
	if v.Penalized {
		integrity = 0.5
	}

	w := v.BaseFinalVoteWeight * honesty * timeWeight * participation * consensus * longevity * decay * integrity
	if w < MinFinalVoteWeight {
		w = MinFinalVoteWeight
	}
	return w
}

// IsPositiveVote reports whether weight w counts as a positive vote.
func IsPositiveVote(w float64) bool {
	return w > PositiveVoteThreshold
}

// ValidateTransaction reports whether this validator's current weight
// clears the epoch-dependent admission bar. The shard does not currently
// gate admission on this; it is exposed for callers that wish to.
func (v *Validator) ValidateTransaction(epoch uint64) bool {
	w := v.FinalVoteWeight(epoch)
	if epoch < 5 {
		return w > 0.3
	}
	return w > 0.5
}

// RecordVote updates the counters that feed FinalVoteWeight after a
// validator has cast a vote on a candidate block.
func (v *Validator) RecordVote(positive bool, participated, contributedToConsensus bool, responseTimeMs float64) {
	v.VotesCast++
	if positive {
		v.SuccessfulVotes++
	}
	if participated {
		v.ParticipationCount++
	}
	if contributedToConsensus {
		v.ConsensusContributionCount++
	}
	if v.VotesCast == 1 {
		v.AverageResponseTimeMs = responseTimeMs
		return
	}
	v.AverageResponseTimeMs += (responseTimeMs - v.AverageResponseTimeMs) / float64(v.VotesCast)
}

// AdvanceEpoch increments epochs_active by exactly one, as required once
// per epoch transition.
func (v *Validator) AdvanceEpoch() {
	v.EpochsActive++
}

// ByWeightDescending sorts validators by FinalVoteWeight(epoch) descending,
// breaking ties by ID ascending for stability.
func ByWeightDescending(validators []*Validator, epoch uint64) {
	weights := make(map[string]float64, len(validators))
	for _, v := range validators {
		weights[v.ID] = v.FinalVoteWeight(epoch)
	}
	sort.SliceStable(validators, func(i, j int) bool {
		wi, wj := weights[validators[i].ID], weights[validators[j].ID]
		if wi != wj {
			return wi > wj
		}
		return validators[i].ID < validators[j].ID
	})
}
