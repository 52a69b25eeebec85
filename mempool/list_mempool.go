package mempool

import (
	"sync"
	"sync/atomic"

	cfg "chainbft_voting/config"
	"chainbft_voting/libs/metric"
	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/libs/clist"
	"github.com/tendermint/tendermint/libs/log"
)

var _ Mempool = (*ListMempool)(nil)

func NewListMempool(config *cfg.MempoolConfig, height int64, options ...ListMempoolOption) *ListMempool {
	mem := &ListMempool{
		height: height,
		config: config,
		txs:    clist.New(),
		logger: log.NewNopLogger(),
		metric: newMemMetric(),
	}

	mem.txsAvailable = make(chan struct{}, 1)

	for _, option := range options {
		option(mem)
	}

	return mem
}

// ListMempool - 双向链表保存交易的顺序，txsMap按hash快速查询
type ListMempool struct {
	// Atomic integers
	height   int64 // the last block Update()'d to
	txsBytes int64 // total size of mempool, in bytes

	txsAvailable chan struct{} // fires once when the mempool becomes not empty

	config *cfg.MempoolConfig

	updateMtx sync.RWMutex
	preCheck  PreCheckFunc

	txs    *clist.CList
	txsMap sync.Map

	metric *memMetric
	logger log.Logger
}

type ListMempoolOption func(mem *ListMempool)

func SetPreCheck(precheck PreCheckFunc) ListMempoolOption {
	return func(mem *ListMempool) {
		mem.preCheck = precheck
	}
}

func (mem *ListMempool) SetLogger(logger log.Logger) {
	mem.logger = logger
}

func (mem *ListMempool) CheckTx(tx *types.Tx, txinfo TxInfo) error {
	if tx == nil {
		return ErrNilTx
	}
	if mem.preCheck != nil {
		if err := mem.preCheck(tx); err != nil {
			return ErrPreCheck{err}
		}
	}

	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	// 先判断tx是否已经在mempool中
	if _, ok := mem.txsMap.Load(TxKey(tx)); ok {
		return ErrTxInMap
	}
	if size := mem.Size(); size >= mem.config.Size {
		return ErrMempoolIsFull{numTxs: size, maxTxs: mem.config.Size}
	}

	memTx := &mempoolTx{
		height: atomic.LoadInt64(&mem.height),
		tx:     tx,
		size:   txSize(tx),
	}
	memTx.senders.Store(txinfo.SenderID, struct{}{})

	mem.logger.Debug("added tx", "tx", tx, "sender", txinfo.SenderID)
	mem.addTx(memTx)
	mem.notifyTxsAvailable()
	return nil
}

// ReapMaxTxs 按照加入的顺序取出最多max个交易，不会从mempool中删除
func (mem *ListMempool) ReapMaxTxs(max int) types.Txs {
	mem.updateMtx.RLock()
	defer mem.updateMtx.RUnlock()

	if max < 0 || max > mem.txs.Len() {
		max = mem.txs.Len()
	}
	txs := make(types.Txs, 0, max)
	for e := mem.txs.Front(); e != nil && len(txs) < max; e = e.Next() {
		memTx := e.Value.(*mempoolTx)
		txs = append(txs, memTx.tx)
	}
	return txs
}

// Lock 锁定mempool的updateMtx读写锁的写锁
func (mem *ListMempool) Lock() {
	mem.updateMtx.Lock()
}

// Unlock 释放mempool的updateMtx读写锁的写锁
func (mem *ListMempool) Unlock() {
	mem.updateMtx.Unlock()
}

func (mem *ListMempool) Update(number int64, txs types.Txs) error {
	atomic.StoreInt64(&mem.height, number)
	for _, tx := range txs {
		if e, ok := mem.txsMap.Load(TxKey(tx)); ok {
			mem.removeTx(e.(*clist.CElement))
		}
	}
	mem.logger.Debug("mempool updated", "number", number, "committed", len(txs), "remaining", mem.Size())
	return nil
}

func (mem *ListMempool) Flush() {
	mem.updateMtx.Lock()
	defer mem.updateMtx.Unlock()

	for e := mem.txs.Front(); e != nil; e = e.Next() {
		mem.removeTx(e)
	}
}

func (mem *ListMempool) TxsAvailable() <-chan struct{} {
	return mem.txsAvailable
}

func (mem *ListMempool) Size() int {
	return mem.txs.Len()
}

func (mem *ListMempool) TxsBytes() int64 {
	return atomic.LoadInt64(&mem.txsBytes)
}

func (mem *ListMempool) TxsFront() *clist.CElement {
	return mem.txs.Front()
}

// MetricItem 返回mempool的json metric
func (mem *ListMempool) MetricItem() metric.MetricItem {
	return mem.metric
}

// addTx 将tx加入到mempool的双向链表；
// 并且更新快速查询表txMap和mempool的tx总大小
func (mem *ListMempool) addTx(memTx *mempoolTx) {
	e := mem.txs.PushBack(memTx)
	mem.txsMap.Store(TxKey(memTx.tx), e)
	bytes := atomic.AddInt64(&mem.txsBytes, memTx.size)
	mem.metric.MarkTxsNum(mem.txs.Len())
	mem.metric.MarkTotalTxsBytes(bytes)
}

func (mem *ListMempool) removeTx(e *clist.CElement) {
	memTx := e.Value.(*mempoolTx)
	mem.txs.Remove(e)
	e.DetachPrev()
	mem.txsMap.Delete(TxKey(memTx.tx))
	bytes := atomic.AddInt64(&mem.txsBytes, -memTx.size)
	mem.metric.MarkTxsNum(mem.txs.Len())
	mem.metric.MarkTotalTxsBytes(bytes)
	mem.metric.MarkCommittedTxs(1)
}

func (mem *ListMempool) notifyTxsAvailable() {
	select {
	case mem.txsAvailable <- struct{}{}:
	default:
	}
}

// ------------------------------

type mempoolTx struct {
	height int64
	size   int64

	tx      *types.Tx
	senders sync.Map
}

// Height returns the height for this transaction
func (memTx *mempoolTx) Height() int64 {
	return atomic.LoadInt64(&memTx.height)
}

// ------------------------------
// TxKey is the hex hash used as the key in maps.
func TxKey(tx *types.Tx) string {
	return tx.Hash.String()
}

func txSize(tx *types.Tx) int64 {
	bz, err := jsoniter.Marshal(tx)
	if err != nil {
		return 0
	}
	return int64(len(bz))
}
