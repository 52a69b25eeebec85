package consensus

import (
	"time"

	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/libs/metric"
	"chainbft_voting/state"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	tmtime "github.com/tendermint/tendermint/types/time"
)

// ------ Event ------
// 通过EventSwitch通知外部(reactor/rpc)的事件
const (
	EventStatusChanged = "StatusChanged"
	EventNewVote       = "NewVote"
)

// VotingState - 投票状态机，单线程调用，内部不加锁
// 由外部的事件循环在收到区块、投票、定时器时同步调用 PreVote/PreCommit/SetBlock/Reset
type VotingState struct {
	*StakeLedger
	*QuorumEvaluator
	*ProposerSelector
	*RoundManager
	*RecentProposers

	self  types.Address
	store state.Store
	chain Chain
	txs   TxBuilder
	ids   IDGenerator
	now   func() time.Time

	// 共识内部状态
	status    cstypes.StatusRecord
	block     *types.Block
	votes     *cstypes.VoteSet
	lastVotes *cstypes.VoteSet

	eventSwitch events.EventSwitch
	metrics     *Metrics
	metric      *votingMetric

	logger log.Logger
}

type VotingOption func(*VotingState)

// WithClock 替换判断质押是否过期、round创建时间使用的时钟
func WithClock(now func() time.Time) VotingOption {
	return func(vs *VotingState) {
		vs.now = now
	}
}

func WithIDGenerator(ids IDGenerator) VotingOption {
	return func(vs *VotingState) {
		vs.ids = ids
	}
}

func WithEventSwitch(evsw events.EventSwitch) VotingOption {
	return func(vs *VotingState) {
		vs.eventSwitch = evsw
	}
}

func WithMetrics(metrics *Metrics) VotingOption {
	return func(vs *VotingState) {
		vs.metrics = metrics
	}
}

func NewVotingState(
	self types.Address,
	store state.Store,
	chain Chain,
	txs TxBuilder,
	options ...VotingOption,
) *VotingState {
	vs := &VotingState{
		self:      self,
		store:     store,
		chain:     chain,
		txs:       txs,
		now:       tmtime.Now,
		votes:     cstypes.NewVoteSet(),
		lastVotes: cstypes.NewVoteSet(),
		metrics:   NopMetrics(),
		metric:    newVotingMetric(),
		logger:    log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(vs)
	}

	vs.StakeLedger = NewStakeLedger(self, store, txs, vs.ids, vs.now)
	vs.QuorumEvaluator = NewQuorumEvaluator(store)
	vs.ProposerSelector = NewProposerSelector(chain)
	vs.RoundManager = NewRoundManager(self, store, chain, txs, vs.now,
		vs.StakeLedger, vs.QuorumEvaluator, vs.ProposerSelector)
	vs.RoundManager.metrics = vs.metrics
	vs.RecentProposers = NewRecentProposers(self, store, txs)

	vs.SetStatus(cstypes.StatusStartUp, "")
	return vs
}

func (vs *VotingState) SetLogger(logger log.Logger) {
	vs.logger = logger
	vs.StakeLedger.logger = logger.With("component", "stake")
	vs.QuorumEvaluator.logger = logger.With("component", "quorum")
	vs.ProposerSelector.logger = logger.With("component", "proposer")
	vs.RoundManager.logger = logger.With("component", "round")
	vs.RecentProposers.logger = logger.With("component", "recent_proposers")
}

// SetStatus 切换状态，同时记录切换时的区块高度和设置者
func (vs *VotingState) SetStatus(status cstypes.VotingStatus, setter string) {
	prev := vs.status
	vs.status = cstypes.StatusRecord{
		Status:      status,
		BlockNumber: vs.chain.LastBlockNumber(),
		Setter:      setter,
	}
	vs.metrics.Status.Set(float64(status))
	vs.metric.MarkStatus(vs.status)
	vs.logger.Debug("update status", "prev", prev, "current", vs.status)

	if vs.eventSwitch != nil {
		vs.eventSwitch.FireEvent(EventStatusChanged, cstypes.RoundEvent{Previous: prev, Current: vs.status})
	}
}

// RegisterVote nil和重复的投票直接忽略
func (vs *VotingState) RegisterVote(vote *types.Tx) bool {
	added := vs.votes.AddVote(vote)
	if added {
		vs.metrics.VotesRegistered.Add(1)
		vs.metric.MarkCounter("votes_registered")
	} else {
		vs.metrics.VotesIgnored.Add(1)
		vs.metric.MarkCounter("votes_ignored")
	}
	return added
}

// PreVote 有有效质押时进入PRE_VOTE，生成给pre_votes累加本节点质押的交易
func (vs *VotingState) PreVote() (*types.Tx, error) {
	stakes, err := vs.GetStakes(vs.self)
	if err != nil {
		return nil, err
	}
	if stakes == 0 {
		vs.logger.Info("no active stake, skip pre-vote", "address", vs.self)
		return nil, ErrNotStaked
	}

	vs.SetStatus(cstypes.StatusPreVote, "preVote")
	if current, err := vs.store.GetPreVotes(); err == nil {
		vs.logger.Info("Current prevotes", "pre_votes", current, "stakes", stakes)
	}

	tx, err := vs.txs.CreateTransaction(types.NewIncOperation(types.PathVotingRoundPreVotes, stakes), true)
	if err != nil {
		return nil, errors.Wrap(err, "create pre-vote")
	}
	vs.RegisterVote(tx)
	vs.metrics.PreVotes.Add(1)
	vs.metric.MarkCounter("pre_votes")
	vs.fireVote(tx)
	return tx, nil
}

// PreCommit 只有处于PRE_VOTE时才会投pre-commit，否则什么都不做
func (vs *VotingState) PreCommit() (*types.Tx, error) {
	if vs.status.Status != cstypes.StatusPreVote {
		vs.logger.Debug("not in pre-vote, skip pre-commit", "status", vs.status)
		return nil, nil
	}
	stakes, err := vs.GetStakes(vs.self)
	if err != nil {
		return nil, err
	}
	if stakes == 0 {
		vs.logger.Info("no active stake, skip pre-commit", "address", vs.self)
		return nil, ErrNotStaked
	}

	if current, err := vs.store.GetPreCommits(); err == nil {
		vs.logger.Info("Current precommits", "pre_commits", current, "stakes", stakes)
	}
	vs.SetStatus(cstypes.StatusPreCommit, "preCommit")

	tx, err := vs.txs.CreateTransaction(types.NewIncOperation(types.PathVotingRoundPreCommits, stakes), true)
	if err != nil {
		return nil, errors.Wrap(err, "create pre-commit")
	}
	vs.RegisterVote(tx)
	vs.metrics.PreCommits.Add(1)
	vs.metric.MarkCounter("pre_commits")
	vs.fireVote(tx)
	return tx, nil
}

// SetBlock 收到本轮的区块，上一轮的投票移到lastVotes，提案作为新一轮的第一张票
func (vs *VotingState) SetBlock(block *types.Block, proposal *types.Tx) {
	if block == nil {
		vs.logger.Error("ignore nil block", "status", vs.status)
		return
	}
	vs.logger.Info("Setting block", "hash", block.Hash(), "number", block.Number)
	vs.block = block
	vs.SetStatus(cstypes.StatusBlockReceived, "setBlock")
	vs.lastVotes = vs.votes
	vs.votes = cstypes.NewVoteSet()
	vs.RegisterVote(proposal)
}

// Reset 本轮结束，无条件进入COMMITTED
func (vs *VotingState) Reset() {
	vs.SetStatus(cstypes.StatusCommitted, "reset")
	vs.block = nil
	vs.lastVotes = vs.votes
	vs.votes = cstypes.NewVoteSet()
}

// IsCommit 还没有提交并且pre-commit达成quorum，外部据此最终确认区块
func (vs *VotingState) IsCommit() (bool, error) {
	vs.logger.Debug("Checking status", "status", vs.status)
	if vs.status.Status == cstypes.StatusCommitted {
		return false, nil
	}
	return vs.CheckPreCommits()
}

// IsSyncedWithNetwork 处于COMMITTED并且本地最后的区块高度+1等于共享的round number
// 不同步时切换到SYNCING，由外部负责重新同步
// NOTE: 没有考虑未达成共识时round number不变的情况
func (vs *VotingState) IsSyncedWithNetwork() (bool, error) {
	number, exist, err := vs.store.GetRoundNumber()
	if err != nil {
		return false, errors.Wrap(err, "get round number")
	}
	synced := vs.status.Status == cstypes.StatusCommitted &&
		exist &&
		vs.chain.LastBlockNumber()+1 == number
	if !synced {
		vs.metrics.Desyncs.Add(1)
		vs.metric.MarkCounter("desyncs")
		vs.SetStatus(cstypes.StatusSyncing, "isSyncedWithNetwork")
	}
	return synced, nil
}

// IsProposer 本节点是否是当前round的proposer
func (vs *VotingState) IsProposer() (bool, error) {
	proposer, err := vs.store.GetProposer()
	if err != nil {
		return false, err
	}
	isProposer := proposer == vs.self
	vs.metric.MarkProposer(proposer.String(), isProposer)
	return isProposer, nil
}

// IsValidator 本节点是否在当前round的validators中
func (vs *VotingState) IsValidator() (bool, error) {
	validators, err := vs.store.GetValidators()
	if err != nil {
		return false, err
	}
	return validators.Has(vs.self), nil
}

func (vs *VotingState) fireVote(tx *types.Tx) {
	if vs.eventSwitch != nil {
		vs.eventSwitch.FireEvent(EventNewVote, tx)
	}
}

func (vs *VotingState) Self() types.Address {
	return vs.self
}

func (vs *VotingState) Status() cstypes.StatusRecord {
	return vs.status
}

func (vs *VotingState) Block() *types.Block {
	return vs.block
}

func (vs *VotingState) Votes() []*types.Tx {
	return vs.votes.GetVotes()
}

func (vs *VotingState) LastVotes() []*types.Tx {
	return vs.lastVotes.GetVotes()
}

// MetricItem 返回可以注册到MetricSet里的json metric
func (vs *VotingState) MetricItem() metric.MetricItem {
	return vs.metric
}
