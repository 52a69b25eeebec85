package mempool

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

func newMemMetric() *memMetric {
	return &memMetric{}
}

type memMetric struct {
	mtx          sync.RWMutex
	TxsNum       int   `json:"txs_num"`         // mempool中所有的交易总数
	TotalTxBytes int64 `json:"total_txs_bytes"` // 目前mempool所有的交易的大小
	CommittedTxs int64 `json:"committed_txs"`   // 已经打包提交、从mempool移除的交易总数
}

func (mm *memMetric) JSONString() string {
	mm.mtx.RLock()
	defer mm.mtx.RUnlock()
	s, _ := jsoniter.MarshalToString(mm)
	return s
}

func (mm *memMetric) MarkTxsNum(txsnum int) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.TxsNum = txsnum
}

func (mm *memMetric) MarkTotalTxsBytes(totalTxsBytes int64) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.TotalTxBytes = totalTxsBytes
}

func (mm *memMetric) MarkCommittedTxs(n int64) {
	mm.mtx.Lock()
	defer mm.mtx.Unlock()
	mm.CommittedTxs += n
}
