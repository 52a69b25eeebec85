package types

import (
	"chainbft_voting/types"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// VoteSet - 当前round/区块收到的投票，按到达顺序保存，hash不重复
// NOTE: Not goroutine-safe.
type VoteSet struct {
	votes  []*types.Tx
	hashes map[string]struct{}
}

func NewVoteSet() *VoteSet {
	return &VoteSet{
		votes:  []*types.Tx{},
		hashes: make(map[string]struct{}),
	}
}

// AddVote 只有vote不为空并且hash没有出现过才会追加
// 级联调用时(例如收到proposed block顺带触发pre-vote)可能传入nil或者重复的投票，直接忽略
func (vs *VoteSet) AddVote(vote *types.Tx) bool {
	if vote == nil {
		return false
	}
	key := vote.Hash.String()
	if _, exist := vs.hashes[key]; exist {
		return false
	}
	vs.hashes[key] = struct{}{}
	vs.votes = append(vs.votes, vote)
	return true
}

func (vs *VoteSet) Has(hash []byte) bool {
	_, exist := vs.hashes[tmbytes.HexBytes(hash).String()]
	return exist
}

// GetVotes 返回投票的拷贝
func (vs *VoteSet) GetVotes() []*types.Tx {
	votes := make([]*types.Tx, len(vs.votes))
	copy(votes, vs.votes)
	return votes
}

func (vs *VoteSet) Size() int {
	return len(vs.votes)
}
