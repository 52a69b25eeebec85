package consensus

import (
	"fmt"
	"testing"

	"chainbft_voting/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackProposerCapacity(t *testing.T) {
	var history []types.Address
	var err error
	for i := 1; i <= MaxRecentProposers+1; i++ {
		history, err = TrackProposer(history, types.Address(fmt.Sprintf("node-%02d", i)), MaxRecentProposers)
		require.NoError(t, err)
	}
	require.Len(t, history, MaxRecentProposers)
	assert.EqualValues(t, "node-02", history[0])
	assert.EqualValues(t, "node-21", history[MaxRecentProposers-1])
}

func TestTrackProposerReinsert(t *testing.T) {
	history := []types.Address{"a", "b", "c"}
	updated, err := TrackProposer(history, "a", MaxRecentProposers)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"b", "c", "a"}, updated)
	// 原来的history不变
	assert.Equal(t, []types.Address{"a", "b", "c"}, history)

	_, err = TrackProposer(nil, "a", 0)
	assert.Error(t, err)
}

func TestUpdateRecentProposers(t *testing.T) {
	s := newTestDBStore()
	rp := NewRecentProposers("alice", s, &mockTxBuilder{})

	tx, err := rp.UpdateRecentProposers()
	require.NoError(t, err)
	assert.Equal(t, types.PathRecentProposers, tx.Operation.Ref)
	assert.Equal(t, []types.Address{"alice"}, tx.Operation.Value)
	applyTx(t, s, tx)

	require.NoError(t, s.SetRecentProposers([]types.Address{"alice", "bob"}))
	tx, err = rp.UpdateRecentProposers()
	require.NoError(t, err)
	applyTx(t, s, tx)

	recent, err := s.GetRecentProposers()
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"bob", "alice"}, recent)
}
