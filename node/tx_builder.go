package node

import (
	"strings"
	"sync"
	"time"

	"chainbft_voting/consensus"
	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/tendermint/tendermint/crypto/tmhash"
	tmrand "github.com/tendermint/tendermint/libs/rand"
	tmtime "github.com/tendermint/tendermint/types/time"
)

var (
	_ consensus.TxBuilder   = (*LocalTxBuilder)(nil)
	_ consensus.IDGenerator = (*PushIDGenerator)(nil)
)

// LocalTxBuilder - 本地交易层，不签名
// hash = tmhash(json{operation, nonce, timestamp})
type LocalTxBuilder struct {
	mtx   sync.Mutex
	nonce int64
	now   func() time.Time
}

func NewLocalTxBuilder(now func() time.Time) *LocalTxBuilder {
	if now == nil {
		now = tmtime.Now
	}
	return &LocalTxBuilder{now: now}
}

func (b *LocalTxBuilder) CreateTransaction(op types.Operation, nonced bool) (*types.Tx, error) {
	if err := op.ValidateBasic(); err != nil {
		return nil, err
	}

	b.mtx.Lock()
	tx := &types.Tx{Operation: op, Nonce: -1, Timestamp: b.now().UnixNano()}
	if nonced {
		b.nonce++
		tx.Nonce = b.nonce
	}
	b.mtx.Unlock()

	bz, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(struct {
		Operation types.Operation `json:"operation"`
		Nonce     int64           `json:"nonce"`
		Timestamp int64           `json:"timestamp"`
	}{tx.Operation, tx.Nonce, tx.Timestamp})
	if err != nil {
		return nil, err
	}
	tx.Hash = tmhash.Sum(bz)
	return tx, nil
}

// Nonce 最后一次使用的nonce
func (b *LocalTxBuilder) Nonce() int64 {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.nonce
}

//-----------------------------------------------------------------------------

const pushChars = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// PushIDGenerator 生成20个字符、按时间有序的id：8个字符的毫秒时间戳 + 12个随机字符
// 同一毫秒内的id在上一个随机部分的基础上+1，保证严格递增
type PushIDGenerator struct {
	mtx      sync.Mutex
	lastTime int64
	lastRand [12]int
	now      func() time.Time
}

func NewPushIDGenerator(now func() time.Time) *PushIDGenerator {
	if now == nil {
		now = tmtime.Now
	}
	return &PushIDGenerator{now: now}
}

func (g *PushIDGenerator) Generate() string {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	now := g.now().UnixNano() / int64(time.Millisecond)
	duplicate := now == g.lastTime
	g.lastTime = now

	var sb strings.Builder
	sb.Grow(20)

	timeChars := make([]byte, 8)
	ts := now
	for i := 7; i >= 0; i-- {
		timeChars[i] = pushChars[ts%64]
		ts /= 64
	}
	sb.Write(timeChars)

	if !duplicate {
		for i := range g.lastRand {
			g.lastRand[i] = tmrand.Intn(64)
		}
	} else {
		// 进位
		i := len(g.lastRand) - 1
		for ; i >= 0 && g.lastRand[i] == 63; i-- {
			g.lastRand[i] = 0
		}
		if i >= 0 {
			g.lastRand[i]++
		}
	}
	for _, r := range g.lastRand {
		sb.WriteByte(pushChars[r])
	}
	return sb.String()
}
