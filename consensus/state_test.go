package consensus

import (
	"testing"

	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
)

func newTestVotingState(t *testing.T, self types.Address, options ...VotingOption) (*VotingState, *state.DBStore, *store.BlockStore) {
	s := newTestDBStore()
	chain := newTestChain(t)
	options = append([]VotingOption{WithClock(testClock), WithIDGenerator(&seqIDGenerator{})}, options...)
	vs := NewVotingState(self, s, chain, &mockTxBuilder{}, options...)
	vs.SetLogger(log.TestingLogger())
	return vs, s, chain
}

func TestVotingStateStartUp(t *testing.T) {
	vs, _, _ := newTestVotingState(t, "alice")
	status := vs.Status()
	assert.Equal(t, cstypes.StatusStartUp, status.Status)
	assert.EqualValues(t, 0, status.BlockNumber)
	assert.Empty(t, vs.Votes())
	assert.Empty(t, vs.LastVotes())
	assert.Nil(t, vs.Block())
	assert.EqualValues(t, "alice", vs.Self())
}

func TestPreVoteWithoutStake(t *testing.T) {
	vs, _, _ := newTestVotingState(t, "alice")
	tx, err := vs.PreVote()
	assert.Nil(t, tx)
	assert.True(t, errors.Is(err, ErrNotStaked))
	assert.Equal(t, cstypes.StatusStartUp, vs.Status().Status)
	assert.Empty(t, vs.Votes())
}

func TestPreVoteAndPreCommit(t *testing.T) {
	vs, s, _ := newTestVotingState(t, "bob")
	stake(t, s, "bob", 10)
	require.NoError(t, s.SetRound(testRound()))

	// 不在PRE_VOTE时pre-commit什么都不做
	tx, err := vs.PreCommit()
	require.NoError(t, err)
	assert.Nil(t, tx)

	vote, err := vs.PreVote()
	require.NoError(t, err)
	assert.Equal(t, types.NewIncOperation(types.PathVotingRoundPreVotes, 10), vote.Operation)
	assert.Equal(t, cstypes.StatusRecord{Status: cstypes.StatusPreVote, BlockNumber: 0, Setter: "preVote"}, vs.Status())
	assert.Equal(t, []*types.Tx{vote}, vs.Votes())

	applyTx(t, s, vote)
	preVotes, err := s.GetPreVotes()
	require.NoError(t, err)
	assert.EqualValues(t, 10, preVotes)

	commit, err := vs.PreCommit()
	require.NoError(t, err)
	assert.Equal(t, types.NewIncOperation(types.PathVotingRoundPreCommits, 10), commit.Operation)
	assert.Equal(t, cstypes.StatusPreCommit, vs.Status().Status)
	assert.Len(t, vs.Votes(), 2)

	// 已经是PRE_COMMIT，不会重复投票
	again, err := vs.PreCommit()
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSetBlockAndReset(t *testing.T) {
	vs, s, chain := newTestVotingState(t, "bob")
	stake(t, s, "bob", 10)
	require.NoError(t, s.SetRound(testRound()))

	vote, err := vs.PreVote()
	require.NoError(t, err)

	block := types.MakeBlock(chain.LastBlock(), "alice", nil, testNow)
	proposal := &types.Tx{Hash: []byte{0x01}, Operation: types.NewSetOperation("voting/round/block_hash", block.Hash())}
	// nil区块不改变状态
	vs.SetBlock(nil, proposal)
	assert.Equal(t, cstypes.StatusPreVote, vs.Status().Status)
	assert.Equal(t, []*types.Tx{vote}, vs.Votes())

	vs.SetBlock(block, proposal)
	assert.Equal(t, cstypes.StatusBlockReceived, vs.Status().Status)
	assert.Equal(t, "setBlock", vs.Status().Setter)
	assert.Equal(t, block, vs.Block())
	assert.Equal(t, []*types.Tx{proposal}, vs.Votes())
	assert.Equal(t, []*types.Tx{vote}, vs.LastVotes())

	// 重复的投票和nil都被忽略
	assert.False(t, vs.RegisterVote(proposal))
	assert.False(t, vs.RegisterVote(nil))
	assert.Len(t, vs.Votes(), 1)

	vs.Reset()
	assert.Equal(t, cstypes.StatusCommitted, vs.Status().Status)
	assert.Nil(t, vs.Block())
	assert.Empty(t, vs.Votes())
	assert.Equal(t, []*types.Tx{proposal}, vs.LastVotes())

	vs.SetBlock(block, nil)
	assert.Empty(t, vs.Votes())
}

func TestIsCommit(t *testing.T) {
	vs, s, _ := newTestVotingState(t, "bob")
	round := testRound()
	round.PreCommits = 14
	require.NoError(t, s.SetRound(round))

	commit, err := vs.IsCommit()
	require.NoError(t, err)
	assert.True(t, commit)

	vs.Reset()
	commit, err = vs.IsCommit()
	require.NoError(t, err)
	assert.False(t, commit)
}

func TestIsSyncedWithNetwork(t *testing.T) {
	vs, s, chain := newTestVotingState(t, "bob")

	// 没有round
	synced, err := vs.IsSyncedWithNetwork()
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, cstypes.StatusRecord{Status: cstypes.StatusSyncing, Setter: "isSyncedWithNetwork"}, vs.Status())

	round := testRound()
	round.Number = 1
	require.NoError(t, s.SetRound(round))
	vs.Reset()
	synced, err = vs.IsSyncedWithNetwork()
	require.NoError(t, err)
	assert.True(t, synced)
	assert.Equal(t, cstypes.StatusCommitted, vs.Status().Status)

	// 本地链落后
	round.Number = 3
	require.NoError(t, s.SetRound(round))
	synced, err = vs.IsSyncedWithNetwork()
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, cstypes.StatusSyncing, vs.Status().Status)

	// 高度一致但是还没有COMMITTED
	extendChain(t, chain, 2)
	synced, err = vs.IsSyncedWithNetwork()
	require.NoError(t, err)
	assert.False(t, synced)
	assert.EqualValues(t, 2, vs.Status().BlockNumber)
}

func TestIsProposerAndValidator(t *testing.T) {
	alice, s, _ := newTestVotingState(t, "alice")
	require.NoError(t, s.SetRound(testRound()))

	isProposer, err := alice.IsProposer()
	require.NoError(t, err)
	assert.True(t, isProposer)
	isValidator, err := alice.IsValidator()
	require.NoError(t, err)
	assert.True(t, isValidator)

	dave := NewVotingState("dave", s, newTestChain(t), &mockTxBuilder{})
	isProposer, err = dave.IsProposer()
	require.NoError(t, err)
	assert.False(t, isProposer)
	isValidator, err = dave.IsValidator()
	require.NoError(t, err)
	assert.False(t, isValidator)
}

func TestVotingStateEvents(t *testing.T) {
	evsw := events.NewEventSwitch()
	require.NoError(t, evsw.Start())
	defer evsw.Stop() //nolint:errcheck

	var changes []cstypes.RoundEvent
	var votes []*types.Tx
	require.NoError(t, evsw.AddListenerForEvent("test", EventStatusChanged, func(data events.EventData) {
		changes = append(changes, data.(cstypes.RoundEvent))
	}))
	require.NoError(t, evsw.AddListenerForEvent("test", EventNewVote, func(data events.EventData) {
		votes = append(votes, data.(*types.Tx))
	}))

	vs, s, _ := newTestVotingState(t, "bob", WithEventSwitch(evsw))
	stake(t, s, "bob", 10)
	require.NoError(t, s.SetRound(testRound()))

	vote, err := vs.PreVote()
	require.NoError(t, err)
	vs.Reset()

	require.Len(t, changes, 3)
	assert.Equal(t, cstypes.StatusStartUp, changes[0].Current.Status)
	assert.Equal(t, cstypes.StatusStartUp, changes[1].Previous.Status)
	assert.Equal(t, cstypes.StatusPreVote, changes[1].Current.Status)
	assert.Equal(t, cstypes.StatusCommitted, changes[2].Current.Status)
	assert.Equal(t, []*types.Tx{vote}, votes)
}

func TestVotingMetric(t *testing.T) {
	vs, s, _ := newTestVotingState(t, "bob", WithMetrics(NopMetrics()))
	stake(t, s, "bob", 10)
	require.NoError(t, s.SetRound(testRound()))

	_, err := vs.PreVote()
	require.NoError(t, err)
	_, err = vs.IsProposer()
	require.NoError(t, err)

	m := vs.metric
	assert.EqualValues(t, 1, m.Count("pre_votes"))
	assert.EqualValues(t, 1, m.Count("votes_registered"))
	js := vs.MetricItem().JSONString()
	assert.Contains(t, js, `"current_status":"PRE_VOTE"`)
	assert.Contains(t, js, `"proposer_address":"alice"`)
}
