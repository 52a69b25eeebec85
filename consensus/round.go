package consensus

import (
	"time"

	"chainbft_voting/state"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// RoundManager 负责生成创世round和每一轮结束后的下一轮round
type RoundManager struct {
	self      types.Address
	store     state.Store
	chain     Chain
	txs       TxBuilder
	now       func() time.Time
	stakes    *StakeLedger
	quorum    *QuorumEvaluator
	proposers *ProposerSelector

	metrics *Metrics
	logger  log.Logger
}

func NewRoundManager(
	self types.Address,
	store state.Store,
	chain Chain,
	txs TxBuilder,
	now func() time.Time,
	stakes *StakeLedger,
	quorum *QuorumEvaluator,
	proposers *ProposerSelector,
) *RoundManager {
	return &RoundManager{
		self:      self,
		store:     store,
		chain:     chain,
		txs:       txs,
		now:       now,
		stakes:    stakes,
		quorum:    quorum,
		proposers: proposers,
		metrics:   NopMetrics(),
		logger:    log.NewNopLogger(),
	}
}

// Instantiate 只能由网络中的第一个节点调用：自己作为proposer写入第一个voting/round
func (rm *RoundManager) Instantiate() (*types.Tx, error) {
	rm.logger.Info("Initialising voting")
	stakes, err := rm.stakes.GetStakes(rm.self)
	if err != nil {
		return nil, err
	}
	if stakes == 0 {
		rm.logger.Info("Node should have staked by now but deposit was not made successfully.", "address", rm.self)
		return nil, ErrNotStaked
	}

	last := rm.chain.LastBlock()
	if last == nil {
		return nil, errors.New("no last block")
	}
	first := &types.RoundDescriptor{
		Number:              rm.chain.LastBlockNumber() + 1,
		Proposer:            rm.self,
		Validators:          types.StakeMap{rm.self: stakes},
		NextRoundValidators: types.StakeMap{rm.self: stakes},
		Threshold:           types.FirstRoundThreshold,
		PreVotes:            0,
		PreCommits:          0,
		BlockHash:           nil,
		LastHash:            last.Hash(),
		Time:                rm.now(),
	}
	return rm.txs.CreateTransaction(types.NewSetOperation(types.PathVotingRound, first), true)
}

// StartNewRound 根据刚结束的round生成下一轮
// 上一轮达成pre-commit quorum时高度+1并且last_hash换成上一轮的block_hash，否则用新的proposer重试同一高度
func (rm *RoundManager) StartNewRound() (*types.Tx, error) {
	last, err := rm.store.GetRound()
	if err != nil {
		return nil, errors.Wrap(err, "get round")
	}
	if last == nil {
		return nil, ErrNoRound
	}

	proposer := rm.self
	if len(last.NextRoundValidators) > 0 {
		proposer, err = rm.proposers.GetProposer(last.NextRoundValidators)
		if err != nil {
			return nil, err
		}
	}

	committed, err := rm.quorum.CheckPreCommits()
	if err != nil {
		return nil, err
	}

	next := &types.RoundDescriptor{
		Proposer:            proposer,
		Validators:          last.NextRoundValidators.Copy(),
		NextRoundValidators: types.StakeMap{},
		Threshold:           NextThreshold(last.NextRoundValidators, proposer),
		PreVotes:            0,
		PreCommits:          0,
		BlockHash:           nil,
		Time:                rm.now(),
	}
	if committed {
		next.Number = last.Number + 1
		next.LastHash = last.BlockHash
	} else {
		next.Number = last.Number
		next.LastHash = last.LastHash
		rm.logger.Info("round did not reach quorum, retry with new proposer", "number", last.Number, "proposer", proposer)
	}
	rm.metrics.RoundsStarted.Add(1)
	if !committed {
		rm.metrics.RoundsRetried.Add(1)
	}
	rm.logger.Debug("start new round", "round", next)

	return rm.txs.CreateTransaction(types.NewSetOperation(types.PathVotingRound, next), false)
}

// RegisterForNextRound 用本节点当前的有效质押注册下一轮
// number和共享状态里的round number不一致时拒绝，防止过期的注册
func (rm *RoundManager) RegisterForNextRound(number int64) (*types.Tx, error) {
	current, exist, err := rm.store.GetRoundNumber()
	if err != nil {
		return nil, errors.Wrap(err, "get round number")
	}
	if (!exist && number != 0) || (exist && current != number) {
		rm.logger.Info("[registerForNextRound] Invalid block number.", "expected", number, "actual", current, "round", exist)
		return nil, errors.Wrapf(ErrRoundMismatch, "expected %d, actual %d", number, current)
	}

	stakes, err := rm.stakes.GetStakes(rm.self)
	if err != nil {
		return nil, err
	}
	// 0权重的注册会让下一轮的选举集合总权重为0
	if stakes == 0 {
		rm.logger.Info("[registerForNextRound] no active stake, skip", "address", rm.self)
		return nil, ErrNotStaked
	}
	return rm.txs.CreateTransaction(types.NewSetOperation(types.NextRoundValidatorPath(rm.self), stakes), true)
}
