package consensus

import (
	"math"

	"chainbft_voting/state"
	"chainbft_voting/types"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

var (
	two   = uint256.NewInt(2)
	three = uint256.NewInt(3)
)

// HasTwoThirds proposer不对自己的提案投票，所以total中去掉proposer的权重
// accumulated * 3 > total * 2 时达成quorum；total为0时(只有proposer有质押)直接通过，避免死锁
// 全部在256位整数上比较，不会溢出也没有浮点误差
func HasTwoThirds(validators types.StakeMap, proposer types.Address, accumulated uint64) bool {
	total := validators.Without(proposer).Total()
	if total.IsZero() {
		return true
	}
	lhs := new(uint256.Int).Mul(uint256.NewInt(accumulated), three)
	rhs := new(uint256.Int).Mul(total, two)
	return lhs.Gt(rhs)
}

// NextThreshold round(total * 2/3) - 1，total不包含proposer
// 只作为round里的信息字段，quorum判断不使用
func NextThreshold(validators types.StakeMap, proposer types.Address) int64 {
	total := validators.Without(proposer).Total()
	// 2t/3的小数部分只可能是0、1/3、2/3，四舍五入等于(2t+1)/3
	rounded := new(uint256.Int).Mul(total, two)
	rounded.AddUint64(rounded, 1)
	rounded.Div(rounded, three)
	if rounded.GtUint64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(rounded.Uint64()) - 1
}

// QuorumEvaluator 从共享状态读取本轮的validators和投票累积值，判断是否达成quorum
type QuorumEvaluator struct {
	store state.Store

	logger log.Logger
}

func NewQuorumEvaluator(store state.Store) *QuorumEvaluator {
	return &QuorumEvaluator{store: store, logger: log.NewNopLogger()}
}

// CheckPreVotes pre_votes是否超过2/3
func (qe *QuorumEvaluator) CheckPreVotes() (bool, error) {
	votes, err := qe.store.GetPreVotes()
	if err != nil {
		return false, errors.Wrap(err, "get pre_votes")
	}
	return qe.check("pre_votes", votes)
}

// CheckPreCommits pre_commits是否超过2/3
func (qe *QuorumEvaluator) CheckPreCommits() (bool, error) {
	commits, err := qe.store.GetPreCommits()
	if err != nil {
		return false, errors.Wrap(err, "get pre_commits")
	}
	return qe.check("pre_commits", commits)
}

func (qe *QuorumEvaluator) check(phase string, accumulated uint64) (bool, error) {
	proposer, err := qe.store.GetProposer()
	if err != nil {
		return false, errors.Wrap(err, "get proposer")
	}
	validators, err := qe.store.GetValidators()
	if err != nil {
		return false, errors.Wrap(err, "get validators")
	}
	reached := HasTwoThirds(validators, proposer, accumulated)
	qe.logger.Debug("check quorum",
		"phase", phase,
		"total", validators.Without(proposer).Total().Dec(),
		"received", accumulated,
		"reached", reached)
	return reached, nil
}
