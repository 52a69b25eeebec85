package types

import (
	"testing"

	"chainbft_voting/types"

	"github.com/stretchr/testify/assert"
)

func TestVoteSet_AddVote(t *testing.T) {
	vs := NewVoteSet()

	v1 := &types.Tx{Hash: []byte{0x01}}
	v2 := &types.Tx{Hash: []byte{0x02}}

	assert.True(t, vs.AddVote(v1))
	assert.True(t, vs.AddVote(v2))
	assert.Equal(t, 2, vs.Size())

	// 同一个hash重复添加，长度不变
	assert.False(t, vs.AddVote(&types.Tx{Hash: []byte{0x01}, Nonce: 9}))
	assert.Equal(t, 2, vs.Size())

	// nil直接忽略
	assert.False(t, vs.AddVote(nil))
	assert.Equal(t, 2, vs.Size())

	assert.True(t, vs.Has([]byte{0x02}))
	assert.False(t, vs.Has([]byte{0x03}))

	votes := vs.GetVotes()
	assert.Equal(t, []*types.Tx{v1, v2}, votes, "投票保持到达顺序")
}

func TestVotingStatus_String(t *testing.T) {
	assert.Equal(t, "START_UP", StatusStartUp.String())
	assert.Equal(t, "SYNCING", StatusSyncing.String())
	assert.Equal(t, "BLOCK_RECEIVED", StatusBlockReceived.String())
	assert.Equal(t, "PRE_VOTE", StatusPreVote.String())
	assert.Equal(t, "PRE_COMMIT", StatusPreCommit.String())
	assert.Equal(t, "COMMITTED", StatusCommitted.String())
	assert.Equal(t, "UNKNOWN", VotingStatus(0).String())

	rec := StatusRecord{Status: StatusPreVote, BlockNumber: 7, Setter: "preVote"}
	assert.Equal(t, "PRE_VOTE@7(preVote)", rec.String())
}
