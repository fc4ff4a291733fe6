package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pyroscope-io/pyroscope/pkg/agent/profiler"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shardpoh/ledger/internal/config"
	"github.com/shardpoh/ledger/internal/gossip"
	"github.com/shardpoh/ledger/internal/identity"
	"github.com/shardpoh/ledger/internal/metrics"
	"github.com/shardpoh/ledger/internal/shard"
	"github.com/shardpoh/ledger/internal/stats"
	"github.com/shardpoh/ledger/internal/validator"
)

const (
	AppName = "ledgerd"
	Version = "0.1.0"
)

var (
	cfgFile       string
	logLevel      string
	enableProfile bool
	activeViper   *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "ledgerd - sharded Proof-of-History ledger core",
	Long: fmt.Sprintf(`
ledgerd v%s

A sharded ledger core: per-shard transaction pool, Proof-of-History
entry batching, weighted-vote block consensus, cross-shard gossip
forwarding, and per-shard epoch transitions with checkpoint
dissemination.

This is a research-grade simulator, not a production BFT protocol: no
signature verification, no balance conservation, no cross-restart
persistence.
`, Version),
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ledger node",
	RunE:  runNode,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot network status snapshot",
	RunE:  runStatus,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml",
	RunE:  runInit,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (TOML); defaults to ./config.toml if present")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&enableProfile, "profile", false, "enable continuous profiling via pyroscope")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command) error {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	activeViper = v
	return nil
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

// buildNetwork wires num_shards shards, each with num_validators
// validators cycling final_vote_weight_initial, behind a shared metrics
// registry and a single Gossip instance.
func buildNetwork(cfg config.Config, log zerolog.Logger) ([]*shard.Shard, *gossip.Gossip, *metrics.BlockMetrics) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBlockMetrics(reg)

	shardCfg := shard.Config{
		BatchSize:               cfg.BatchSize,
		MinTransactionsPerBlock: cfg.MinTransactionsPerBlock,
		MaxTransactionsPerBlock: cfg.MaxTransactionsPerBlock,
		BlockTimeThreshold:      cfg.BlockTimeThreshold,
		EpochThreshold:          cfg.EpochThreshold,
		EpochMaxDuration:        cfg.EpochMaxDuration,
	}

	now := time.Now()
	shards := make([]*shard.Shard, 0, cfg.NumShards)
	for id := 1; id <= cfg.NumShards; id++ {
		vs := make([]*validator.Validator, 0, cfg.NumValidators)
		for i := 0; i < cfg.NumValidators; i++ {
			vs = append(vs, validator.New(fmt.Sprintf("shard%d-validator%d", id, i+1), id, cfg.WeightFor(i)))
		}
		shards = append(shards, shard.New(id, vs, shardCfg, m, log, now))
	}

	g := gossip.New(shards, log)
	return shards, g, m
}

func runNode(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := config.Load(activeViper)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	id, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generating node identity: %w", err)
	}
	log.Info().Str("peer_id", id.PeerID.String()).Msg("node identity generated")

	if enableProfile {
		p, err := profiler.Start(profiler.Config{
			ApplicationName: AppName,
			ServerAddress:   "http://localhost:4040",
			Logger:          nil,
		})
		if err != nil {
			log.Warn().Err(err).Msg("continuous profiling bootstrap failed, continuing without it")
		} else {
			defer func() { _ = p.Stop() }()
		}
	}

	shards, g, _ := buildNetwork(cfg, log)
	log.Info().Int("num_shards", len(shards)).Int("num_validators", cfg.NumValidators).Msg("ledger network constructed")

	stop := g.Run(cfg.GossipInterval)
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("ledgerd running, send SIGINT/SIGTERM to stop")
	<-sigCh
	log.Info().Msg("shutting down")
	return nil
}

// runInit writes config.Defaults() out as TOML, to cfgFile if set or
// ./config.toml otherwise, refusing to overwrite an existing file.
func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = "config.toml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists, refusing to overwrite", path)
	}

	out, err := toml.Marshal(config.Defaults())
	if err != nil {
		return fmt.Errorf("marshaling default config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote default configuration to %s\n", path)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(activeViper)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := zerolog.Nop()
	shards, _, _ := buildNetwork(cfg, log)

	summaries := make([]stats.ShardSummary, 0, len(shards))
	for _, s := range shards {
		summaries = append(summaries, stats.SummarizeShard(s.Stats()))
	}
	network := stats.SummarizeNetwork(summaries)

	out, err := toml.Marshal(network)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
