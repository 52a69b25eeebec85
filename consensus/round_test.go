package consensus

import (
	"testing"

	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundEnv struct {
	state *state.DBStore
	chain *store.BlockStore
}

func newTestRoundManager(t *testing.T, self types.Address) (*RoundManager, *roundEnv, *mockTxBuilder) {
	s := newTestDBStore()
	chain := newTestChain(t)
	txs := &mockTxBuilder{}
	stakes := NewStakeLedger(self, s, txs, &seqIDGenerator{}, testClock)
	rm := NewRoundManager(self, s, chain, txs, testClock,
		stakes, NewQuorumEvaluator(s), NewProposerSelector(chain))
	return rm, &roundEnv{state: s, chain: chain}, txs
}

func roundOf(t *testing.T, tx *types.Tx) *types.RoundDescriptor {
	require.NotNil(t, tx)
	require.Equal(t, types.PathVotingRound, tx.Operation.Ref)
	round, ok := tx.Operation.Value.(*types.RoundDescriptor)
	require.True(t, ok)
	return round
}

func TestInstantiate(t *testing.T) {
	rm, env, _ := newTestRoundManager(t, "alice")

	tx, err := rm.Instantiate()
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, ErrNotStaked))

	stake(t, env.state, "alice", 10)
	tx, err = rm.Instantiate()
	require.NoError(t, err)
	assert.EqualValues(t, 1, tx.Nonce)

	round := roundOf(t, tx)
	assert.EqualValues(t, 1, round.Number)
	assert.EqualValues(t, "alice", round.Proposer)
	assert.Equal(t, types.StakeMap{"alice": 10}, round.Validators)
	assert.Equal(t, types.StakeMap{"alice": 10}, round.NextRoundValidators)
	assert.EqualValues(t, types.FirstRoundThreshold, round.Threshold)
	assert.Zero(t, round.PreVotes)
	assert.Zero(t, round.PreCommits)
	assert.Nil(t, round.BlockHash)
	assert.Equal(t, env.chain.LastBlock().Hash(), round.LastHash)
	assert.Equal(t, testNow, round.Time)

	applyTx(t, env.state, tx)
	number, exist, err := env.state.GetRoundNumber()
	require.NoError(t, err)
	assert.True(t, exist)
	assert.EqualValues(t, 1, number)
}

func TestStartNewRoundNoRound(t *testing.T) {
	rm, _, _ := newTestRoundManager(t, "alice")
	_, err := rm.StartNewRound()
	assert.True(t, errors.Is(err, ErrNoRound))
}

func TestStartNewRound(t *testing.T) {
	cases := []struct {
		name       string
		preCommits uint64
		number     int64
		lastHash   []byte
	}{
		{"quorum reached", 14, 6, []byte{0xBB}},
		{"no quorum", 13, 5, []byte{0xAA}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rm, env, _ := newTestRoundManager(t, "alice")
			last := testRound()
			last.PreVotes = 20
			last.PreCommits = tc.preCommits
			require.NoError(t, env.state.SetRound(last))

			tx, err := rm.StartNewRound()
			require.NoError(t, err)
			assert.EqualValues(t, -1, tx.Nonce)

			round := roundOf(t, tx)
			assert.Equal(t, tc.number, round.Number)
			assert.Equal(t, tc.lastHash, []byte(round.LastHash))
			assert.True(t, last.NextRoundValidators.Has(round.Proposer))
			assert.Equal(t, last.NextRoundValidators, round.Validators)
			assert.Empty(t, round.NextRoundValidators)
			assert.Equal(t, NextThreshold(last.NextRoundValidators, round.Proposer), round.Threshold)
			assert.Zero(t, round.PreVotes)
			assert.Zero(t, round.PreCommits)
			assert.Nil(t, round.BlockHash)

			// 同样的链和round在所有节点上得到同样的proposer
			again, err := rm.StartNewRound()
			require.NoError(t, err)
			assert.Equal(t, round.Proposer, roundOf(t, again).Proposer)
		})
	}
}

func TestStartNewRoundEmptyNextValidators(t *testing.T) {
	rm, env, _ := newTestRoundManager(t, "bob")
	last := testRound()
	last.NextRoundValidators = nil
	require.NoError(t, env.state.SetRound(last))

	tx, err := rm.StartNewRound()
	require.NoError(t, err)
	round := roundOf(t, tx)
	assert.EqualValues(t, "bob", round.Proposer)
	assert.Empty(t, round.Validators)
}

func TestRegisterForNextRound(t *testing.T) {
	rm, env, _ := newTestRoundManager(t, "alice")

	// 还没有round时只接受0
	_, err := rm.RegisterForNextRound(1)
	assert.True(t, errors.Is(err, ErrRoundMismatch))

	round := testRound()
	round.Number = 6
	require.NoError(t, env.state.SetRound(round))

	_, err = rm.RegisterForNextRound(5)
	assert.True(t, errors.Is(err, ErrRoundMismatch))
	assert.True(t, IsSoftError(err))

	_, err = rm.RegisterForNextRound(6)
	assert.True(t, errors.Is(err, ErrNotStaked))

	stake(t, env.state, "alice", 7)
	tx, err := rm.RegisterForNextRound(6)
	require.NoError(t, err)
	assert.Equal(t, types.SetValue, tx.Operation.Type)
	assert.Equal(t, types.NextRoundValidatorPath("alice"), tx.Operation.Ref)
	assert.EqualValues(t, 7, tx.Operation.Value)

	applyTx(t, env.state, tx)
	current, err := env.state.GetRound()
	require.NoError(t, err)
	assert.EqualValues(t, 7, current.NextRoundValidators["alice"])
}

// 第一个round写入之前可以用0注册
func TestRegisterForNextRoundWithoutRound(t *testing.T) {
	rm, env, _ := newTestRoundManager(t, "alice")
	stake(t, env.state, "alice", 5)

	round, err := env.state.GetRound()
	require.NoError(t, err)
	require.Nil(t, round)

	tx, err := rm.RegisterForNextRound(0)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, types.SetValue, tx.Operation.Type)
	assert.Equal(t, types.NextRoundValidatorPath("alice"), tx.Operation.Ref)
	assert.EqualValues(t, 5, tx.Operation.Value)
}
