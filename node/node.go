package node

import (
	"net"
	"net/http"
	"sync"
	"time"

	cfg "chainbft_voting/config"
	"chainbft_voting/consensus"
	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/libs/metric"
	"chainbft_voting/mempool"
	"chainbft_voting/rpc"
	"chainbft_voting/state"
	"chainbft_voting/store"
	"chainbft_voting/types"
	"chainbft_voting/version"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendermint/tendermint/libs/events"
	"github.com/tendermint/tendermint/libs/log"
	"github.com/tendermint/tendermint/libs/service"
	rpcserver "github.com/tendermint/tendermint/rpc/jsonrpc/server"
	tmtime "github.com/tendermint/tendermint/types/time"
	tmdb "github.com/tendermint/tm-db"
)

const (
	stateDBName = "state"
	blockDBName = "blockstore"
)

type Provider func(*cfg.Config, log.Logger) (*Node, error)

// DefaultNewNode 从config中的genesis文件创建节点
func DefaultNewNode(config *cfg.Config, logger log.Logger) (*Node, error) {
	return NewNode(config, logger)
}

// proposal - 从网络收到的本轮区块和提案交易
type proposal struct {
	block *types.Block
	tx    *types.Tx
}

// Node - 单节点的事件循环
// 所有对VotingState的调用都在run goroutine中串行执行，rpc只读取快照和共享状态
type Node struct {
	service.BaseService

	// config
	config   *cfg.Config
	genesis  *types.GenesisDoc
	nodeInfo types.NodeInfo
	self     types.Address
	now      func() time.Time

	// storage
	stateDB tmdb.DB
	blockDB tmdb.DB
	store   *state.DBStore
	blocks  *store.BlockStore

	// services
	exec    state.TxExecutor
	mempool *mempool.ListMempool
	txs     *LocalTxBuilder
	voting  *consensus.VotingState
	evsw    events.EventSwitch

	metrics   *consensus.Metrics
	metricSet *metric.MetricSet

	// 事件循环
	proposalCh  chan proposal
	voteCh      chan *types.Tx
	stop        chan struct{}
	wg          sync.WaitGroup
	statusSince time.Time

	mtx      sync.RWMutex
	snapshot cstypes.VotingSnapshot
	fatalErr error

	rpcListener   net.Listener
	prometheusSrv *http.Server
}

type Option func(*Node)

// WithGenesisDoc 不从文件读取genesis
func WithGenesisDoc(genDoc *types.GenesisDoc) Option {
	return func(n *Node) {
		n.genesis = genDoc
	}
}

// WithNodeClock 替换质押过期判断、round时间、交易时间戳使用的时钟
func WithNodeClock(now func() time.Time) Option {
	return func(n *Node) {
		n.now = now
	}
}

func NewNode(config *cfg.Config, logger log.Logger, options ...Option) (*Node, error) {
	if err := config.ValidateBasic(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	node := &Node{
		config:     config,
		self:       config.Voting.NodeAddress(),
		now:        tmtime.Now,
		proposalCh: make(chan proposal, 16),
		voteCh:     make(chan *types.Tx, 256),
		metricSet:  metric.NewMetricSet(),
	}
	for _, option := range options {
		option(node)
	}

	if node.genesis == nil {
		genDoc, err := types.GenesisDocFromFile(config.GenesisFile())
		if err != nil {
			return nil, err
		}
		node.genesis = genDoc
	}
	if err := node.genesis.ValidateAndComplete(); err != nil {
		return nil, err
	}
	if node.genesis.ChainID != config.Voting.ChainID {
		return nil, errors.Errorf("genesis chain_id %q doesn't match config chain_id %q",
			node.genesis.ChainID, config.Voting.ChainID)
	}

	nodeInfo, err := types.NewNodeInfo(config.Moniker, node.self, config.Voting.ChainID,
		version.Version, config.RPC.ListenAddress)
	if err != nil {
		return nil, err
	}
	node.nodeInfo = nodeInfo

	// setup storage
	if node.stateDB, err = store.NewDB(stateDBName, config.DBBackend, config.DBDir()); err != nil {
		return nil, errors.Wrap(err, "open state db")
	}
	if node.blockDB, err = store.NewDB(blockDBName, config.DBBackend, config.DBDir()); err != nil {
		node.stateDB.Close()
		return nil, errors.Wrap(err, "open block db")
	}

	node.store = state.NewDBStore(node.stateDB,
		state.WithStakeLockup(config.Voting.StakeLockup),
		state.WithClock(node.now))
	node.store.SetLogger(logger.With("module", "state"))

	node.blocks, err = store.NewBlockStore(node.blockDB, node.genesis.Block(), logger.With("module", "store"))
	if err != nil {
		node.closeDBs()
		return nil, err
	}

	node.exec = state.NewTxExecutor(node.store)
	node.exec.SetLogger(logger.With("module", "executor"))

	node.mempool = mempool.NewListMempool(config.Mempool, node.blocks.LastBlockNumber(),
		mempool.SetPreCheck(mempool.PreCheckOperation()))
	node.mempool.SetLogger(logger.With("module", "mempool"))

	// metrics
	if config.Instrumentation.Prometheus {
		node.metrics = consensus.PrometheusMetrics(config.Instrumentation.Namespace, "chain_id", config.Voting.ChainID)
	} else {
		node.metrics = consensus.NopMetrics()
	}

	node.evsw = events.NewEventSwitch()
	node.txs = NewLocalTxBuilder(node.now)
	node.voting = consensus.NewVotingState(node.self, node.store, node.blocks, node.txs,
		consensus.WithClock(node.now),
		consensus.WithIDGenerator(NewPushIDGenerator(node.now)),
		consensus.WithEventSwitch(node.evsw),
		consensus.WithMetrics(node.metrics),
	)
	node.voting.SetLogger(logger.With("module", "voting"))

	if err := node.metricSet.SetMetrics("voting", node.voting.MetricItem()); err != nil {
		node.closeDBs()
		return nil, err
	}
	if err := node.metricSet.SetMetrics("mempool", node.mempool.MetricItem()); err != nil {
		node.closeDBs()
		return nil, err
	}

	node.BaseService = *service.NewBaseService(logger, "Node", node)
	return node, nil
}

func (n *Node) OnStart() error {
	if err := n.replay(); err != nil {
		return err
	}

	n.evsw.SetLogger(n.Logger.With("module", "events"))
	if err := n.evsw.Start(); err != nil {
		return err
	}
	if err := n.evsw.AddListenerForEvent("node", consensus.EventStatusChanged, n.onStatusChanged); err != nil {
		return err
	}
	if err := n.evsw.AddListenerForEvent("node", consensus.EventNewVote, func(data events.EventData) {
		n.Logger.Debug("new vote", "vote", data)
	}); err != nil {
		return err
	}

	if n.config.RPC.ListenAddress != "" {
		if err := n.startRPC(); err != nil {
			return err
		}
	}
	if n.config.Instrumentation.Prometheus {
		n.prometheusSrv = n.startPrometheusServer(n.config.Instrumentation.PrometheusListenAddr)
	}

	n.statusSince = n.now()
	n.updateSnapshot()
	n.stop = make(chan struct{})
	n.wg.Add(1)
	go n.run()

	n.Logger.Info("node started", "address", n.self, "chain_id", n.genesis.ChainID,
		"last_block", n.blocks.LastBlockNumber())
	return nil
}

func (n *Node) OnStop() {
	close(n.stop)
	n.wg.Wait()

	if n.rpcListener != nil {
		if err := n.rpcListener.Close(); err != nil {
			n.Logger.Error("Error closing listener", "err", err)
		}
	}
	if n.prometheusSrv != nil {
		if err := n.prometheusSrv.Close(); err != nil {
			n.Logger.Error("Prometheus HTTP server Shutdown", "err", err)
		}
	}
	if err := n.evsw.Stop(); err != nil {
		n.Logger.Error("Error stopping event switch", "err", err)
	}
	n.closeDBs()
}

func (n *Node) closeDBs() {
	if n.stateDB != nil {
		n.stateDB.Close()
	}
	if n.blockDB != nil {
		n.blockDB.Close()
	}
}

// replay 共享状态为空而本地链上有区块时，按顺序重新执行区块中的交易
func (n *Node) replay() error {
	round, err := n.store.GetRound()
	if err != nil {
		return err
	}
	last := n.blocks.LastBlockNumber()
	if round != nil || last == 0 {
		return nil
	}
	n.Logger.Info("replay blocks into state", "blocks", last)
	for i := int64(1); i <= last; i++ {
		block, err := n.blocks.LoadBlock(i)
		if err != nil {
			return err
		}
		if _, err := n.exec.ApplyBlock(block); err != nil {
			return errors.Wrapf(err, "replay block %d", i)
		}
	}
	return nil
}

func (n *Node) startRPC() error {
	rpc.SetEnvironment(&rpc.Environment{
		NodeInfo:  n.nodeInfo,
		Voting:    n,
		Store:     n.store,
		Blocks:    n.blocks,
		Mempool:   n.mempool,
		MetricSet: n.metricSet,
		Now:       n.now,
	})

	config := rpcserver.DefaultConfig()
	config.MaxOpenConnections = n.config.RPC.MaxOpenConnections
	rpcLogger := n.Logger.With("module", "rpc-server")

	mux := http.NewServeMux()
	rpcserver.RegisterRPCFuncs(mux, rpc.Routes, rpcLogger)
	listener, err := rpcserver.Listen(n.config.RPC.ListenAddress, config)
	if err != nil {
		return err
	}
	go func() {
		if err := rpcserver.Serve(listener, mux, rpcLogger, config); err != nil {
			rpcLogger.Debug("rpc server stopped", "err", err)
		}
	}()
	n.rpcListener = listener
	return nil
}

// startPrometheusServer starts a Prometheus HTTP server, listening for metrics
// collectors on addr.
func (n *Node) startPrometheusServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			// Error starting or closing listener:
			n.Logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()
	return srv
}

//-----------------------------------------------------------------------------
// 外部输入，由网络层调用

// ReceiveProposal 收到proposer广播的区块和提案交易
func (n *Node) ReceiveProposal(block *types.Block, tx *types.Tx) {
	select {
	case n.proposalCh <- proposal{block: block, tx: tx}:
	case <-n.Quit():
	}
}

// ReceiveVote 收到其他节点的投票
func (n *Node) ReceiveVote(vote *types.Tx) {
	select {
	case n.voteCh <- vote:
	case <-n.Quit():
	}
}

//-----------------------------------------------------------------------------
// accessors

func (n *Node) Config() *cfg.Config {
	return n.config
}

func (n *Node) NodeInfo() types.NodeInfo {
	return n.nodeInfo
}

func (n *Node) Store() *state.DBStore {
	return n.store
}

func (n *Node) BlockStore() *store.BlockStore {
	return n.blocks
}

func (n *Node) Mempool() mempool.Mempool {
	return n.mempool
}

func (n *Node) MetricSet() *metric.MetricSet {
	return n.metricSet
}

func (n *Node) EventSwitch() events.EventSwitch {
	return n.evsw
}

// Snapshot 最近一次事件循环结束时的状态
func (n *Node) Snapshot() cstypes.VotingSnapshot {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.snapshot
}

// Err 事件循环因为不可恢复的错误退出时返回该错误
func (n *Node) Err() error {
	n.mtx.RLock()
	defer n.mtx.RUnlock()
	return n.fatalErr
}
