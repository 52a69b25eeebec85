package consensus

//
//              +------------+   Reset / 同步完成
//   启动 ----> |  START_UP  +---------------------------+
//              +-----+------+                           |
//                    | IsSyncedWithNetwork = false      v
//                    v                            +-----------+
//              +------------+  Reset              | COMMITTED |<-----------------+
//              |  SYNCING   +-------------------->+-----+-----+                  |
//              +------------+                           | SetBlock(block, proposal)
//                    ^                                  v                        |
//                    |                          +----------------+               |
//                    +--------------------------+ BLOCK_RECEIVED |               |
//                      IsSyncedWithNetwork      +-------+--------+               |
//                                                       | PreVote                |
//                                                       v                        |
//                                                 +-----------+                  |
//                                                 | PRE_VOTE  |                  |
//                                                 +-----+-----+                  |
//                                                       | PreCommit              |
//                                                       v                        |
//                                                 +------------+  IsCommit       |
//                                                 | PRE_COMMIT +-----------------+
//                                                 +------------+  Reset

//VotingState - 单个节点的投票状态机，不做任何网络IO/签名/广播
//	- StakeLedger - 读取质押记录，有效质押决定投票权重
//	- QuorumEvaluator - pre_votes/pre_commits是否超过validators(不含proposer)的2/3
//	- ProposerSelector - 以链上历史区块hash为种子、按质押加权的确定性选举
//	- RoundManager - 创世round、下一轮round、注册下一轮validators
//	- RecentProposers - 最近20个提案者
//	- VoteSet - 当前/上一轮收到的投票，按hash去重
//
//所有的输出都是交易(*types.Tx)，由调用方广播并写入共享状态(state.Store)
//调用方必须在一个goroutine中串行调用
