package types

import (
	"fmt"
	"time"

	tmbytes "github.com/tendermint/tendermint/libs/bytes"
)

// FirstRoundThreshold - 创世轮的threshold哨兵值，不参与任何判断
const FirstRoundThreshold = int64(-1)

// RoundDescriptor - voting/round 下保存的当前投票轮次的全部信息
// 每一轮结束后由下一轮的descriptor整体覆盖
type RoundDescriptor struct {
	Number   int64   `json:"number"`   // 本轮投票的区块高度
	Proposer Address `json:"proposer"` // 本轮选出的leader

	Validators          StakeMap `json:"validators"`            // 本轮的投票成员，由上一轮的next_round_validators决定
	NextRoundValidators StakeMap `json:"next_round_validators"` // 本轮内registerForNextRound累积的下一轮成员

	// 2/3 * (total - proposer) - 1，仅作为信息保存，quorum判断时总是重新计算
	Threshold int64 `json:"threshold"`

	PreVotes   uint64 `json:"pre_votes"`
	PreCommits uint64 `json:"pre_commits"`

	BlockHash tmbytes.HexBytes `json:"block_hash"` // 本轮投票的区块hash，收到区块前为空
	LastHash  tmbytes.HexBytes `json:"last_hash"`  // 上一个确认区块的hash

	Time time.Time `json:"time"`
}

// Copy 深拷贝，map和hash都不共享
func (rd *RoundDescriptor) Copy() *RoundDescriptor {
	if rd == nil {
		return nil
	}
	cp := *rd
	if rd.Validators != nil {
		cp.Validators = rd.Validators.Copy()
	}
	if rd.NextRoundValidators != nil {
		cp.NextRoundValidators = rd.NextRoundValidators.Copy()
	}
	cp.BlockHash = copyHash(rd.BlockHash)
	cp.LastHash = copyHash(rd.LastHash)
	return &cp
}

func (rd *RoundDescriptor) String() string {
	if rd == nil {
		return "nil-RoundDescriptor"
	}
	return fmt.Sprintf("Round{#%d proposer:%v validators:%v next:%v threshold:%d pre_votes:%d pre_commits:%d block:%v last:%v}",
		rd.Number,
		rd.Proposer,
		rd.Validators,
		rd.NextRoundValidators,
		rd.Threshold,
		rd.PreVotes,
		rd.PreCommits,
		rd.BlockHash,
		rd.LastHash)
}

func copyHash(h tmbytes.HexBytes) tmbytes.HexBytes {
	if h == nil {
		return nil
	}
	cp := make(tmbytes.HexBytes, len(h))
	copy(cp, h)
	return cp
}
