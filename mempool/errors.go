package mempool

import (
	"errors"
	"fmt"
)

var (
	ErrTxInMap  = errors.New("tx already exists in map")
	ErrTxNoHash = errors.New("tx has no hash")
	ErrNilTx    = errors.New("nil tx")
)

// ErrMempoolIsFull means Tendermint & an application can't handle that much load
type ErrMempoolIsFull struct {
	numTxs int
	maxTxs int
}

func (e ErrMempoolIsFull) Error() string {
	return fmt.Sprintf("mempool is full: number of txs %d (max: %d)", e.numTxs, e.maxTxs)
}

// ErrPreCheck is returned when tx is failed by the pre check.
type ErrPreCheck struct {
	Reason error
}

func (e ErrPreCheck) Error() string {
	return e.Reason.Error()
}
