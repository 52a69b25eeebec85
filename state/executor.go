package state

import (
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// TxExecutor 把交易里的Operation写入共享状态
type TxExecutor interface {
	// ApplyTx 执行单笔交易，nil交易直接忽略
	ApplyTx(tx *types.Tx) error

	// ApplyBlock 按顺序执行区块内的交易，单笔失败只记录日志，不影响后续交易
	ApplyBlock(block *types.Block) (applied int, err error)

	SetLogger(logger log.Logger)
}

func NewTxExecutor(store Store) TxExecutor {
	return &txExecutor{
		store:  store,
		logger: log.NewNopLogger(),
	}
}

type txExecutor struct {
	store Store

	logger log.Logger
}

// SetLogger implements TxExecutor
func (exec *txExecutor) SetLogger(logger log.Logger) {
	exec.logger = logger
}

// ApplyTx implements TxExecutor
func (exec *txExecutor) ApplyTx(tx *types.Tx) error {
	if tx == nil {
		return nil
	}
	if err := exec.store.Apply(tx.Operation); err != nil {
		return errors.Wrapf(err, "apply tx %v", tx.Hash)
	}
	exec.logger.Debug("tx applied", "hash", tx.Hash, "op", tx.Operation)
	return nil
}

// ApplyBlock implements TxExecutor
func (exec *txExecutor) ApplyBlock(block *types.Block) (int, error) {
	if err := block.ValidateBasic(); err != nil {
		return 0, errors.Wrap(err, "invalid block")
	}

	applied := 0
	for idx, tx := range block.Txs {
		if err := exec.ApplyTx(tx); err != nil {
			exec.logger.Error("exec tx failed.", "idx", idx, "err", err)
			continue
		}
		applied++
	}
	return applied, nil
}
