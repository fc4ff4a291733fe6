package validator

// Tally sums the final vote weights of a validator set for a given epoch
// and reports whether the resulting weighted vote accepts a candidate
// block.
type Tally struct {
	TotalWeight    float64
	PositiveWeight float64
}

// Accepted reports whether positive weight exceeds AcceptanceThreshold of
// total weight. An empty validator set has zero total weight and is never
// accepted.
func (t Tally) Accepted() bool {
	return t.TotalWeight > 0 && t.PositiveWeight > AcceptanceThreshold*t.TotalWeight
}

// Vote runs the weighted-vote rule over validators for epoch and returns
// the resulting Tally.
func Vote(validators []*Validator, epoch uint64) Tally {
	var t Tally
	for _, v := range validators {
		w := v.FinalVoteWeight(epoch)
		t.TotalWeight += w
		if IsPositiveVote(w) {
			t.PositiveWeight += w
		}
	}
	return t
}
