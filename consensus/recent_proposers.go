package consensus

import (
	"chainbft_voting/state"
	"chainbft_voting/types"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// MaxRecentProposers 最近提案者历史的容量
const MaxRecentProposers = 20

// RecentProposers 维护一个按插入顺序排列、有容量上限的地址集合
// 重复插入的地址移到最新的位置，超出容量时淘汰最早插入的地址
type RecentProposers struct {
	self  types.Address
	store state.Store
	txs   TxBuilder

	capacity int
	logger   log.Logger
}

func NewRecentProposers(self types.Address, store state.Store, txs TxBuilder) *RecentProposers {
	return &RecentProposers{
		self:     self,
		store:    store,
		txs:      txs,
		capacity: MaxRecentProposers,
		logger:   log.NewNopLogger(),
	}
}

// TrackProposer 在history后追加addr，返回从旧到新的结果
func TrackProposer(history []types.Address, addr types.Address, capacity int) ([]types.Address, error) {
	lru, err := simplelru.NewLRU(capacity, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new recent proposer set")
	}
	for _, h := range history {
		lru.Add(h, struct{}{})
	}
	lru.Add(addr, struct{}{})

	keys := lru.Keys()
	result := make([]types.Address, 0, len(keys))
	for _, k := range keys {
		result = append(result, k.(types.Address))
	}
	return result, nil
}

// UpdateRecentProposers 把本节点记为最新的提案者，生成写recent_proposers的交易
func (rp *RecentProposers) UpdateRecentProposers() (*types.Tx, error) {
	history, err := rp.store.GetRecentProposers()
	if err != nil {
		return nil, errors.Wrap(err, "get recent proposers")
	}
	updated, err := TrackProposer(history, rp.self, rp.capacity)
	if err != nil {
		return nil, err
	}
	rp.logger.Debug("update recent proposers", "size", len(updated))
	return rp.txs.CreateTransaction(types.NewSetOperation(types.PathRecentProposers, updated), true)
}
