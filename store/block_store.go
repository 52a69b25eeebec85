package store

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"

	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/log"
	tmdb "github.com/tendermint/tm-db"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tableBlock  = "block/"
	keyHeight   = "block_height"
	emptyHeight = int64(-1)
)

var (
	ErrBlockNotFound = errors.New("block not found")
	ErrWrongNumber   = errors.New("block number is not next height")
	ErrWrongParent   = errors.New("block does not follow last block")
)

// NewBlockStore 打开一个区块存储，空库时写入genesis
func NewBlockStore(db tmdb.DB, genesis *types.Block, logger log.Logger) (*BlockStore, error) {
	bs := &BlockStore{db: db, logger: logger, height: emptyHeight}

	bz, err := db.Get([]byte(keyHeight))
	if err != nil {
		return nil, errors.Wrap(err, "load block height")
	}
	if len(bz) > 0 {
		bs.height, err = strconv.ParseInt(string(bz), 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "decode block height")
		}
		first := bs.BlockAt(0)
		if first == nil || (genesis != nil && !bytes.Equal(first.Hash(), genesis.Hash())) {
			return nil, errors.New("stored genesis block does not match")
		}
		return bs, nil
	}

	if genesis == nil {
		return nil, errors.New("empty block store needs a genesis block")
	}
	if genesis.Number != 0 {
		return nil, errors.Errorf("genesis block number must be 0, got %d", genesis.Number)
	}
	if err := bs.writeBlock(genesis); err != nil {
		return nil, err
	}
	return bs, nil
}

// BlockStore - 基于tm-db的本地链存储，区块按照高度连续保存
type BlockStore struct {
	mtx    sync.RWMutex
	db     tmdb.DB
	height int64

	logger log.Logger
}

// SaveBlock 只接受高度为height+1并且指向最后一个区块的区块
func (bs *BlockStore) SaveBlock(block *types.Block) error {
	if err := block.ValidateBasic(); err != nil {
		return err
	}
	last := bs.LastBlock()
	if block.Number != bs.LastBlockNumber()+1 {
		return errors.Wrapf(ErrWrongNumber, "expected %d, got %d", bs.LastBlockNumber()+1, block.Number)
	}
	if last != nil && !bytes.Equal(block.LastBlockHash, last.Hash()) {
		return errors.Wrapf(ErrWrongParent, "expected %v, got %v", last.Hash(), block.LastBlockHash)
	}
	return bs.writeBlock(block)
}

func (bs *BlockStore) writeBlock(block *types.Block) error {
	bz, err := json.Marshal(block)
	if err != nil {
		return errors.Wrap(err, "marshal block")
	}

	bs.mtx.Lock()
	defer bs.mtx.Unlock()

	batch := bs.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(genKey(block.Number), bz); err != nil {
		return err
	}
	if err := batch.Set([]byte(keyHeight), []byte(strconv.FormatInt(block.Number, 10))); err != nil {
		return err
	}
	if err := batch.WriteSync(); err != nil {
		return errors.Wrap(err, "write block batch")
	}
	bs.height = block.Number
	bs.logger.Debug("block saved", "number", block.Number, "hash", block.Hash())
	return nil
}

// LoadBlock 返回对应高度的区块
func (bs *BlockStore) LoadBlock(number int64) (*types.Block, error) {
	bz, err := bs.db.Get(genKey(number))
	if err != nil {
		return nil, errors.Wrapf(err, "load block %d", number)
	}
	if len(bz) == 0 {
		return nil, errors.Wrapf(ErrBlockNotFound, "number %d", number)
	}
	block := &types.Block{}
	if err := json.Unmarshal(bz, block); err != nil {
		return nil, errors.Wrapf(err, "unmarshal block %d", number)
	}
	return block, nil
}

// LastBlockNumber 最后一个提交区块的高度，只有genesis时为0
func (bs *BlockStore) LastBlockNumber() int64 {
	bs.mtx.RLock()
	defer bs.mtx.RUnlock()
	return bs.height
}

func (bs *BlockStore) LastBlock() *types.Block {
	return bs.BlockAt(int(bs.LastBlockNumber()))
}

// Length 链上区块的个数(包含genesis)
func (bs *BlockStore) Length() int {
	return int(bs.LastBlockNumber() + 1)
}

// BlockAt 按下标读取，读失败时记录日志并返回nil
func (bs *BlockStore) BlockAt(i int) *types.Block {
	block, err := bs.LoadBlock(int64(i))
	if err != nil {
		bs.logger.Error("load block failed.", "index", i, "err", err)
		return nil
	}
	return block
}

func (bs *BlockStore) GetDB() tmdb.DB {
	return bs.db
}

func genKey(number int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", tableBlock, number))
}
