package consensus

import (
	"time"

	"chainbft_voting/state"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// StakeLedger 读取质押记录，判断是否有效
type StakeLedger struct {
	self  types.Address
	store state.Store
	txs   TxBuilder
	ids   IDGenerator
	now   func() time.Time

	logger log.Logger
}

func NewStakeLedger(self types.Address, store state.Store, txs TxBuilder, ids IDGenerator, now func() time.Time) *StakeLedger {
	return &StakeLedger{
		self:   self,
		store:  store,
		txs:    txs,
		ids:    ids,
		now:    now,
		logger: log.NewNopLogger(),
	}
}

// GetStakes 返回addr的有效质押，没有记录、value不大于0或者已经过期都返回0
// addr为空时查询本节点
func (sl *StakeLedger) GetStakes(addr types.Address) (uint64, error) {
	record, err := sl.stakeRecord(addr)
	if err != nil {
		return 0, err
	}
	if !record.IsActive(sl.now()) {
		return 0, nil
	}
	return record.Value, nil
}

// NeedRestaking 质押value大于0但是已经过期，需要外部重新质押
func (sl *StakeLedger) NeedRestaking(addr types.Address) (bool, error) {
	record, err := sl.stakeRecord(addr)
	if err != nil {
		return false, err
	}
	return record.NeedsRestaking(sl.now()), nil
}

// CreateStakeTransaction 生成一笔新的质押记录，key的唯一性交给IDGenerator
func (sl *StakeLedger) CreateStakeTransaction(amount uint64) (*types.Tx, error) {
	if sl.ids == nil {
		return nil, errors.New("no id generator")
	}
	ref := types.DepositPath(sl.self, sl.ids.Generate())
	sl.logger.Info("create stake transaction", "ref", ref, "amount", amount)
	return sl.txs.CreateTransaction(types.NewSetOperation(ref, amount), true)
}

func (sl *StakeLedger) stakeRecord(addr types.Address) (*types.StakeRecord, error) {
	if addr.IsEmpty() {
		addr = sl.self
	}
	record, err := sl.store.GetStake(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "get stake of %v", addr)
	}
	return record, nil
}
