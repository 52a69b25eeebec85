package node

import (
	"time"

	"chainbft_voting/consensus"
	cstypes "chainbft_voting/consensus/types"
	"chainbft_voting/mempool"
	"chainbft_voting/types"

	"github.com/pkg/errors"
	"github.com/tendermint/tendermint/libs/events"
)

func (n *Node) run() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.config.Voting.ProposeInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-n.stop:
			return
		case msg := <-n.proposalCh:
			err = n.handleProposal(msg)
		case vote := <-n.voteCh:
			err = n.handleVote(vote)
		case <-ticker.C:
			err = n.step()
		}
		if err != nil && n.handleError(err) {
			return
		}
		n.updateSnapshot()
	}
}

// handleError 返回true时事件循环退出
func (n *Node) handleError(err error) bool {
	switch {
	case consensus.IsSoftError(err), errors.Is(err, consensus.ErrNoRound):
		n.Logger.Debug("skip", "err", err)
		return false
	case consensus.IsSelectionError(err):
		n.Logger.Error("proposer selection failed, stop node", "err", err)
		n.mtx.Lock()
		n.fatalErr = err
		n.mtx.Unlock()
		go func() {
			if err := n.Stop(); err != nil {
				n.Logger.Error("Error stopping node", "err", err)
			}
		}()
		return true
	default:
		n.Logger.Error("voting step failed.", "err", err)
		return false
	}
}

// step 定时推进状态机
func (n *Node) step() error {
	round, err := n.store.GetRound()
	if err != nil {
		return err
	}
	if round == nil {
		return n.bootstrap()
	}
	if err := n.restakeIfNeeded(); err != nil {
		return err
	}

	status := n.voting.Status().Status
	switch status {
	case cstypes.StatusStartUp, cstypes.StatusSyncing, cstypes.StatusCommitted:
		synced, err := n.voting.IsSyncedWithNetwork()
		if err != nil {
			return err
		}
		if !synced {
			if n.blocks.LastBlockNumber()+1 != round.Number {
				n.Logger.Info("waiting for blocks", "last_block", n.blocks.LastBlockNumber(), "round", round.Number)
				return nil
			}
			// 本地链已经追上共享的round
			n.voting.Reset()
		}
		return n.enterRound(round)
	}

	if n.now().Sub(n.statusSince) > n.config.Voting.RoundTimeout {
		return n.timeoutRound(status)
	}

	switch status {
	case cstypes.StatusBlockReceived:
		isProposer, err := n.voting.IsProposer()
		if err != nil {
			return err
		}
		// proposer不给自己的区块投票
		if isProposer {
			return n.tryCommit()
		}
		vote, err := n.voting.PreVote()
		if err != nil {
			return err
		}
		return n.submit(vote)

	case cstypes.StatusPreVote:
		reached, err := n.voting.CheckPreVotes()
		if err != nil || !reached {
			return err
		}
		commit, err := n.voting.PreCommit()
		if err != nil {
			return err
		}
		return n.submit(commit)

	case cstypes.StatusPreCommit:
		return n.tryCommit()
	}
	return nil
}

// bootstrap 还没有任何round，只有bootstrap节点写入第一个round
func (n *Node) bootstrap() error {
	if !n.config.Voting.Bootstrap {
		n.Logger.Debug("waiting for the first round")
		return nil
	}
	stakes, err := n.voting.GetStakes(n.self)
	if err != nil {
		return err
	}
	if stakes == 0 && n.config.Voting.InitialStake > 0 {
		tx, err := n.voting.CreateStakeTransaction(n.config.Voting.InitialStake)
		if err != nil {
			return err
		}
		if err := n.submit(tx); err != nil {
			return err
		}
	}
	tx, err := n.voting.Instantiate()
	if err != nil {
		return err
	}
	return n.submit(tx)
}

func (n *Node) restakeIfNeeded() error {
	if n.config.Voting.InitialStake == 0 {
		return nil
	}
	need, err := n.voting.NeedRestaking(n.self)
	if err != nil || !need {
		return err
	}
	n.Logger.Info("stake expired, restaking", "amount", n.config.Voting.InitialStake)
	tx, err := n.voting.CreateStakeTransaction(n.config.Voting.InitialStake)
	if err != nil {
		return err
	}
	return n.submit(tx)
}

// enterRound 注册下一轮，是proposer时提出区块
func (n *Node) enterRound(round *types.RoundDescriptor) error {
	if !round.NextRoundValidators.Has(n.self) {
		tx, err := n.voting.RegisterForNextRound(round.Number)
		if err != nil && !consensus.IsSoftError(err) {
			return err
		}
		if err := n.submit(tx); err != nil {
			return err
		}
	}

	isProposer, err := n.voting.IsProposer()
	if err != nil || !isProposer {
		return err
	}
	// 本轮已经提出过区块
	if len(round.BlockHash) > 0 {
		return nil
	}
	return n.propose()
}

func (n *Node) propose() error {
	txs := n.mempool.ReapMaxTxs(n.config.Mempool.MaxBlockTxs)
	block := types.MakeBlock(n.blocks.LastBlock(), n.self, txs, n.now())

	tx, err := n.txs.CreateTransaction(types.NewSetOperation(types.PathVotingRoundBlockHash, block.Hash()), true)
	if err != nil {
		return err
	}
	if err := n.submit(tx); err != nil {
		return err
	}
	recent, err := n.voting.UpdateRecentProposers()
	if err != nil {
		return err
	}
	if err := n.submit(recent); err != nil {
		return err
	}

	n.voting.SetBlock(block, tx)
	n.Logger.Info("proposed block", "number", block.Number, "hash", block.Hash(), "txs", len(txs))
	return nil
}

// tryCommit pre-commit达成quorum时保存区块，proposer负责开始下一轮
func (n *Node) tryCommit() error {
	commit, err := n.voting.IsCommit()
	if err != nil || !commit {
		return err
	}
	block := n.voting.Block()
	if block == nil {
		return errors.New("commit without block")
	}
	if err := n.blocks.SaveBlock(block); err != nil {
		return err
	}

	n.mempool.Lock()
	err = n.mempool.Update(block.Number, block.Txs)
	n.mempool.Unlock()
	if err != nil {
		return err
	}
	n.Logger.Info("committed block", "number", block.Number, "hash", block.Hash())

	isProposer, err := n.voting.IsProposer()
	if err != nil {
		return err
	}
	if isProposer {
		tx, err := n.voting.StartNewRound()
		if err != nil {
			return err
		}
		if err := n.submit(tx); err != nil {
			return err
		}
	}
	n.voting.Reset()
	return nil
}

// timeoutRound 本轮没有在RoundTimeout内提交，proposer以同一高度重新开始一轮
func (n *Node) timeoutRound(status cstypes.VotingStatus) error {
	n.Logger.Info("round timeout", "status", status)
	isProposer, err := n.voting.IsProposer()
	if err != nil {
		return err
	}
	if isProposer {
		tx, err := n.voting.StartNewRound()
		if err != nil {
			return err
		}
		if err := n.submit(tx); err != nil {
			return err
		}
	}
	n.voting.Reset()
	return nil
}

func (n *Node) handleProposal(msg proposal) error {
	if msg.block == nil {
		return errors.New("nil proposal block")
	}
	if err := msg.block.ValidateBasic(); err != nil {
		return err
	}
	n.voting.SetBlock(msg.block, msg.tx)
	return n.submit(msg.tx)
}

func (n *Node) handleVote(vote *types.Tx) error {
	if !n.voting.RegisterVote(vote) {
		return nil
	}
	return n.submit(vote)
}

// submit 写入本地共享状态并放入mempool等待打包
func (n *Node) submit(tx *types.Tx) error {
	if tx == nil {
		return nil
	}
	if err := n.mempool.CheckTx(tx, mempool.TxInfo{SenderID: mempool.UnknownPeerID}); err != nil {
		if err == mempool.ErrTxInMap {
			return nil
		}
		return errors.Wrap(err, "check tx")
	}
	return n.exec.ApplyTx(tx)
}

func (n *Node) onStatusChanged(data events.EventData) {
	ev, ok := data.(cstypes.RoundEvent)
	if !ok {
		return
	}
	n.statusSince = n.now()
	n.Logger.Debug("status changed", "prev", ev.Previous, "current", ev.Current)
}

func (n *Node) updateSnapshot() {
	status := n.voting.Status()
	snapshot := cstypes.VotingSnapshot{
		Address:           n.self.String(),
		Status:            status.Status.String(),
		StatusBlockNumber: status.BlockNumber,
		StatusSetter:      status.Setter,
		LastBlockNumber:   n.blocks.LastBlockNumber(),
		Votes:             len(n.voting.Votes()),
		PendingTxs:        n.mempool.Size(),
	}
	if last := n.blocks.LastBlock(); last != nil {
		snapshot.LastBlockHash = last.Hash()
	}
	if number, exist, err := n.store.GetRoundNumber(); err == nil && exist {
		snapshot.RoundNumber = number
		n.metrics.RoundNumber.Set(float64(number))
	}
	if stakes, err := n.voting.GetStakes(n.self); err == nil {
		snapshot.Stakes = stakes
	}
	if proposer, err := n.store.GetProposer(); err == nil {
		snapshot.IsProposer = proposer == n.self
	}

	n.mtx.Lock()
	n.snapshot = snapshot
	n.mtx.Unlock()
}
