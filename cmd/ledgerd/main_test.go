package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shardpoh/ledger/internal/config"
	"github.com/stretchr/testify/require"
)

func TestBuildNetworkWiresConfiguredShardsAndValidators(t *testing.T) {
	cfg := config.Defaults()
	cfg.NumShards = 3
	cfg.NumValidators = 2

	shards, g, m := buildNetwork(cfg, zerolog.Nop())
	require.Len(t, shards, 3)
	require.NotNil(t, g)
	require.NotNil(t, m)

	for i, s := range shards {
		require.Equal(t, i+1, s.ID)
		require.Len(t, s.Validators, 2)
	}
}

func TestRunInitWritesDefaultConfigAndRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	prevCfgFile := cfgFile
	cfgFile = filepath.Join(dir, "config.toml")
	defer func() { cfgFile = prevCfgFile }()

	require.NoError(t, runInit(nil, nil))
	require.FileExists(t, cfgFile)

	contents, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	require.Contains(t, string(contents), "NumShards")

	require.Error(t, runInit(nil, nil))
}
