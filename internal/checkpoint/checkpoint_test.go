package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAssignsIDAndRoot(t *testing.T) {
	cp, err := New(1, 10, map[string]uint64{"tx1": 5}, nil, []string{"tx1", "tx2"})
	require.NoError(t, err)
	require.NotEmpty(t, cp.ID)
	require.NotEmpty(t, cp.MerkleRoot)
	require.Equal(t, 1, cp.ShardID)
}

func TestNewEmptyProcessedHasEmptyRoot(t *testing.T) {
	cp, err := New(1, 0, nil, nil, nil)
	require.NoError(t, err)
	require.Empty(t, cp.MerkleRoot)
}

func TestNewIsDeterministicForSameInput(t *testing.T) {
	cp1, err := New(1, 0, nil, nil, []string{"a", "b", "c"})
	require.NoError(t, err)
	cp2, err := New(1, 0, nil, nil, []string{"c", "b", "a"})
	require.NoError(t, err)
	require.Equal(t, cp1.MerkleRoot, cp2.MerkleRoot)
}

func TestNewCopiesInputsDefensively(t *testing.T) {
	ledger := map[string]uint64{"tx1": 1}
	cp, err := New(1, 0, ledger, nil, nil)
	require.NoError(t, err)
	ledger["tx1"] = 99
	require.EqualValues(t, 1, cp.LedgerSnapshot["tx1"])
}
