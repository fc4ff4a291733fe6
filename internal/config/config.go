// Package config loads the ledger's runtime configuration from a viper
// instance, which reads environment variables and an optional TOML file.
// No per-option command-line flags are bound.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every recognized option for a running node.
type Config struct {
	Port                    int
	BootstrapPort           int
	NumValidators           int
	NumShards               int
	BatchSize               int
	MinTransactionsPerBlock int
	MaxTransactionsPerBlock int
	BlockTimeThreshold      time.Duration
	EpochThreshold          uint64
	EpochMaxDuration        time.Duration
	FinalVoteWeightInitial  []float64
	GossipInterval          time.Duration
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Port:                    8080,
		BootstrapPort:           9090,
		NumValidators:           3,
		NumShards:               5,
		BatchSize:               100,
		MinTransactionsPerBlock: 10,
		MaxTransactionsPerBlock: 1000,
		BlockTimeThreshold:      15 * time.Second,
		EpochThreshold:          100,
		EpochMaxDuration:        300 * time.Second,
		FinalVoteWeightInitial:  []float64{0.9, 0.8, 0.7},
		GossipInterval:          2 * time.Second,
	}
}

// Load reads configuration from v, a viper instance already configured by
// the caller (config file path, environment lookup), falling back to
// Defaults for anything unset.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()

	setIfPresent(v, "port", &cfg.Port)
	setIfPresent(v, "bootstrap_port", &cfg.BootstrapPort)
	setIfPresent(v, "num_validators", &cfg.NumValidators)
	setIfPresent(v, "num_shards", &cfg.NumShards)
	setIfPresent(v, "batch_size", &cfg.BatchSize)
	setIfPresent(v, "min_transactions_per_block", &cfg.MinTransactionsPerBlock)
	setIfPresent(v, "max_transactions_per_block", &cfg.MaxTransactionsPerBlock)
	setIfPresent(v, "epoch_threshold", &cfg.EpochThreshold)

	if v.IsSet("block_time_threshold_seconds") {
		cfg.BlockTimeThreshold = time.Duration(v.GetInt64("block_time_threshold_seconds")) * time.Second
	}
	if v.IsSet("epoch_max_duration_seconds") {
		cfg.EpochMaxDuration = time.Duration(v.GetInt64("epoch_max_duration_seconds")) * time.Second
	}
	if v.IsSet("final_vote_weight_initial") {
		weights := v.GetStringSlice("final_vote_weight_initial")
		parsed := make([]float64, 0, len(weights))
		for _, w := range weights {
			var f float64
			if _, err := fmt.Sscanf(w, "%f", &f); err != nil {
				return Config{}, fmt.Errorf("config: parsing final_vote_weight_initial entry %q: %w", w, err)
			}
			parsed = append(parsed, f)
		}
		if len(parsed) > 0 {
			cfg.FinalVoteWeightInitial = parsed
		}
	}

	if cfg.NumShards <= 0 {
		return Config{}, fmt.Errorf("config: num_shards must be positive, got %d", cfg.NumShards)
	}
	if cfg.MaxTransactionsPerBlock <= 0 {
		return Config{}, fmt.Errorf("config: max_transactions_per_block must be positive, got %d", cfg.MaxTransactionsPerBlock)
	}

	return cfg, nil
}

func setIfPresent[T any](v *viper.Viper, key string, dst *T) {
	if !v.IsSet(key) {
		return
	}
	switch p := any(dst).(type) {
	case *int:
		*p = v.GetInt(key)
	case *uint64:
		*p = uint64(v.GetInt64(key))
	}
}

// WeightFor cycles FinalVoteWeightInitial across validator index i.
func (c Config) WeightFor(i int) float64 {
	if len(c.FinalVoteWeightInitial) == 0 {
		return 0.9
	}
	return c.FinalVoteWeightInitial[i%len(c.FinalVoteWeightInitial)]
}
