package state

import (
	"math/bits"
	"strconv"
	"sync"
	"time"

	"chainbft_voting/types"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	tmbytes "github.com/tendermint/tendermint/libs/bytes"
	"github.com/tendermint/tendermint/libs/log"
	tmtime "github.com/tendermint/tendermint/types/time"
	tmdb "github.com/tendermint/tm-db"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrUnsupportedRef = errors.New("unsupported state ref")
	ErrNoRound        = errors.New("voting round not found")
	ErrOverflow       = errors.New("value overflows uint64")
)

// DefaultStakeLockup 质押的默认锁定时间
const DefaultStakeLockup = 24 * time.Hour

var _ Store = (*DBStore)(nil)

// DBStore - 基于tm-db的Store实现
// key直接使用共享状态的路径：
//	voting/round                           -> RoundDescriptor(不含next_round_validators)
//	voting/next_round_validators/<address> -> weight
//	deposit_accounts/consensus/<address>   -> StakeRecord
//	deposit/consensus/<address>/<id>/value -> amount
//	recent_proposers                       -> []Address
type DBStore struct {
	mtx sync.RWMutex
	db  tmdb.DB

	stakeLockup time.Duration
	now         func() time.Time

	logger log.Logger
}

type DBStoreOption func(*DBStore)

func WithStakeLockup(d time.Duration) DBStoreOption {
	return func(s *DBStore) {
		s.stakeLockup = d
	}
}

func WithClock(now func() time.Time) DBStoreOption {
	return func(s *DBStore) {
		s.now = now
	}
}

func NewDBStore(db tmdb.DB, options ...DBStoreOption) *DBStore {
	s := &DBStore{
		db:          db,
		stakeLockup: DefaultStakeLockup,
		now:         tmtime.Now,
		logger:      log.NewNopLogger(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *DBStore) SetLogger(logger log.Logger) {
	s.logger = logger
}

func (s *DBStore) GetDB() tmdb.DB {
	return s.db
}

// ----- round -----

func (s *DBStore) GetRound() (*types.RoundDescriptor, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.loadRound(true)
}

func (s *DBStore) GetProposer() (types.Address, error) {
	round, err := s.getRoundOnly()
	if err != nil || round == nil {
		return "", err
	}
	return round.Proposer, nil
}

func (s *DBStore) GetValidators() (types.StakeMap, error) {
	round, err := s.getRoundOnly()
	if err != nil || round == nil {
		return types.StakeMap{}, err
	}
	if round.Validators == nil {
		return types.StakeMap{}, nil
	}
	return round.Validators, nil
}

func (s *DBStore) GetPreVotes() (uint64, error) {
	round, err := s.getRoundOnly()
	if err != nil || round == nil {
		return 0, err
	}
	return round.PreVotes, nil
}

func (s *DBStore) GetPreCommits() (uint64, error) {
	round, err := s.getRoundOnly()
	if err != nil || round == nil {
		return 0, err
	}
	return round.PreCommits, nil
}

func (s *DBStore) GetRoundNumber() (int64, bool, error) {
	round, err := s.getRoundOnly()
	if err != nil || round == nil {
		return 0, false, err
	}
	return round.Number, true, nil
}

// SetRound 整体覆盖当前round，旧的next_round_validators一并清掉
func (s *DBStore) SetRound(round *types.RoundDescriptor) error {
	if round == nil {
		return errors.New("nil round")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := s.clearNextRound(batch); err != nil {
		return err
	}
	for addr, w := range round.NextRoundValidators {
		if err := batch.Set([]byte(types.NextRoundValidatorPath(addr)), uintToBytes(w)); err != nil {
			return errors.Wrapf(err, "set next round validator %v", addr)
		}
	}

	stored := round.Copy()
	stored.NextRoundValidators = nil
	bz, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "marshal round")
	}
	if err := batch.Set([]byte(types.PathVotingRound), bz); err != nil {
		return errors.Wrap(err, "set round")
	}
	if err := batch.WriteSync(); err != nil {
		return errors.Wrap(err, "write round batch")
	}
	s.logger.Debug("round saved", "round", round)
	return nil
}

func (s *DBStore) IncPreVotes(delta uint64) error {
	return s.updateRound(func(round *types.RoundDescriptor) (err error) {
		round.PreVotes, err = addUint64(round.PreVotes, delta)
		return errors.Wrap(err, "inc pre_votes")
	})
}

func (s *DBStore) IncPreCommits(delta uint64) error {
	return s.updateRound(func(round *types.RoundDescriptor) (err error) {
		round.PreCommits, err = addUint64(round.PreCommits, delta)
		return errors.Wrap(err, "inc pre_commits")
	})
}

func (s *DBStore) SetBlockHash(hash []byte) error {
	return s.updateRound(func(round *types.RoundDescriptor) error {
		round.BlockHash = append(tmbytes.HexBytes{}, hash...)
		return nil
	})
}

func (s *DBStore) SetNextRoundValidator(addr types.Address, weight uint64) error {
	if addr.IsEmpty() {
		return errors.New("empty next round validator address")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return errors.Wrapf(s.db.SetSync([]byte(types.NextRoundValidatorPath(addr)), uintToBytes(weight)),
		"set next round validator %v", addr)
}

// ----- stake -----

func (s *DBStore) GetStake(addr types.Address) (*types.StakeRecord, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.loadStake(addr)
}

func (s *DBStore) SetStake(addr types.Address, record *types.StakeRecord) error {
	if record == nil {
		return errors.New("nil stake record")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.saveStake(s.db, addr, record)
}

func (s *DBStore) AddDeposit(addr types.Address, id string, amount uint64, expireAt time.Time) error {
	if addr.IsEmpty() || id == "" {
		return errors.Errorf("invalid deposit address(%v) id(%v)", addr, id)
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()

	key := []byte(types.DepositPath(addr, id))
	exist, err := s.db.Has(key)
	if err != nil {
		return errors.Wrap(err, "load deposit")
	}
	if exist {
		return errors.Errorf("deposit %v already exists", string(key))
	}

	record, err := s.loadStake(addr)
	if err != nil {
		return err
	}
	if record == nil {
		record = &types.StakeRecord{}
	}
	if record.Value, err = addUint64(record.Value, amount); err != nil {
		return errors.Wrapf(err, "deposit %d to %v", amount, addr)
	}
	record.ExpireAt = expireAt

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(key, uintToBytes(amount)); err != nil {
		return errors.Wrap(err, "set deposit")
	}
	if err := s.saveStake(batch, addr, record); err != nil {
		return err
	}
	return errors.Wrap(batch.WriteSync(), "write deposit batch")
}

// ----- recent proposers -----

func (s *DBStore) GetRecentProposers() ([]types.Address, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	bz, err := s.db.Get([]byte(types.PathRecentProposers))
	if err != nil {
		return nil, errors.Wrap(err, "load recent proposers")
	}
	addrs := []types.Address{}
	if len(bz) == 0 {
		return addrs, nil
	}
	if err := json.Unmarshal(bz, &addrs); err != nil {
		return nil, errors.Wrap(err, "unmarshal recent proposers")
	}
	return addrs, nil
}

func (s *DBStore) SetRecentProposers(addrs []types.Address) error {
	if addrs == nil {
		addrs = []types.Address{}
	}
	bz, err := json.Marshal(addrs)
	if err != nil {
		return errors.Wrap(err, "marshal recent proposers")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return errors.Wrap(s.db.SetSync([]byte(types.PathRecentProposers), bz), "set recent proposers")
}

// ----- apply -----

// Apply 根据Ref把Operation分发到对应的类型化写操作
func (s *DBStore) Apply(op types.Operation) error {
	if err := op.ValidateBasic(); err != nil {
		return err
	}

	switch {
	case op.Ref == types.PathVotingRound && op.Type == types.SetValue:
		round := &types.RoundDescriptor{}
		if err := decodeValue(op.Value, round); err != nil {
			return err
		}
		return s.SetRound(round)

	case op.Ref == types.PathVotingRoundPreVotes && op.Type == types.IncValue:
		var delta uint64
		if err := decodeValue(op.Value, &delta); err != nil {
			return err
		}
		return s.IncPreVotes(delta)

	case op.Ref == types.PathVotingRoundPreCommits && op.Type == types.IncValue:
		var delta uint64
		if err := decodeValue(op.Value, &delta); err != nil {
			return err
		}
		return s.IncPreCommits(delta)

	case op.Ref == types.PathVotingRoundBlockHash && op.Type == types.SetValue:
		var hash tmbytes.HexBytes
		if err := decodeValue(op.Value, &hash); err != nil {
			return err
		}
		return s.SetBlockHash(hash)

	case op.Ref == types.PathRecentProposers && op.Type == types.SetValue:
		addrs := []types.Address{}
		if err := decodeValue(op.Value, &addrs); err != nil {
			return err
		}
		return s.SetRecentProposers(addrs)
	}

	if addr, ok := types.ParseNextRoundValidatorPath(op.Ref); ok && op.Type == types.SetValue {
		var weight uint64
		if err := decodeValue(op.Value, &weight); err != nil {
			return err
		}
		return s.SetNextRoundValidator(addr, weight)
	}

	if addr, id, ok := types.ParseDepositPath(op.Ref); ok && op.Type == types.SetValue {
		var amount uint64
		if err := decodeValue(op.Value, &amount); err != nil {
			return err
		}
		return s.AddDeposit(addr, id, amount, s.now().Add(s.stakeLockup))
	}

	return errors.Wrapf(ErrUnsupportedRef, "%v %s", op.Type, op.Ref)
}

// ----- internal -----

// getRoundOnly 读取round本身，不需要合并next_round_validators
func (s *DBStore) getRoundOnly() (*types.RoundDescriptor, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.loadRound(false)
}

func (s *DBStore) loadRound(withNext bool) (*types.RoundDescriptor, error) {
	bz, err := s.db.Get([]byte(types.PathVotingRound))
	if err != nil {
		return nil, errors.Wrap(err, "load round")
	}
	if len(bz) == 0 {
		return nil, nil
	}
	round := &types.RoundDescriptor{}
	if err := json.Unmarshal(bz, round); err != nil {
		return nil, errors.Wrap(err, "unmarshal round")
	}
	if round.Validators == nil {
		round.Validators = types.StakeMap{}
	}
	if !withNext {
		return round, nil
	}

	next, err := s.loadNextRound()
	if err != nil {
		return nil, err
	}
	round.NextRoundValidators = next
	return round, nil
}

func (s *DBStore) loadNextRound() (types.StakeMap, error) {
	it, err := s.db.Iterator(nextRoundPrefix(), nextRoundPrefixEnd())
	if err != nil {
		return nil, errors.Wrap(err, "iterate next round validators")
	}
	defer it.Close()

	next := types.StakeMap{}
	for ; it.Valid(); it.Next() {
		addr, ok := types.ParseNextRoundValidatorPath(string(it.Key()))
		if !ok {
			continue
		}
		w, err := bytesToUint(it.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "decode next round weight of %v", addr)
		}
		next[addr] = w
	}
	return next, errors.Wrap(it.Error(), "iterate next round validators")
}

func (s *DBStore) clearNextRound(batch tmdb.Batch) error {
	it, err := s.db.Iterator(nextRoundPrefix(), nextRoundPrefixEnd())
	if err != nil {
		return errors.Wrap(err, "iterate next round validators")
	}
	keys := [][]byte{}
	for ; it.Valid(); it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		keys = append(keys, key)
	}
	if err := it.Close(); err != nil {
		return err
	}
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) updateRound(fn func(round *types.RoundDescriptor) error) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	round, err := s.loadRound(false)
	if err != nil {
		return err
	}
	if round == nil {
		return ErrNoRound
	}
	if err := fn(round); err != nil {
		return err
	}
	bz, err := json.Marshal(round)
	if err != nil {
		return errors.Wrap(err, "marshal round")
	}
	return errors.Wrap(s.db.SetSync([]byte(types.PathVotingRound), bz), "update round")
}

func (s *DBStore) loadStake(addr types.Address) (*types.StakeRecord, error) {
	bz, err := s.db.Get([]byte(types.StakeAccountPath(addr)))
	if err != nil {
		return nil, errors.Wrapf(err, "load stake of %v", addr)
	}
	if len(bz) == 0 {
		return nil, nil
	}
	record := &types.StakeRecord{}
	if err := json.Unmarshal(bz, record); err != nil {
		return nil, errors.Wrapf(err, "unmarshal stake of %v", addr)
	}
	return record, nil
}

type setter interface {
	Set([]byte, []byte) error
}

func (s *DBStore) saveStake(w setter, addr types.Address, record *types.StakeRecord) error {
	bz, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal stake")
	}
	return errors.Wrapf(w.Set([]byte(types.StakeAccountPath(addr)), bz), "set stake of %v", addr)
}

func nextRoundPrefix() []byte {
	return []byte(types.PathVotingNextRoundVals + "/")
}

// nextRoundPrefixEnd 前缀最后一个字节是'/'，加一即为区间的开区间终点
func nextRoundPrefixEnd() []byte {
	end := nextRoundPrefix()
	end[len(end)-1]++
	return end
}

// decodeValue Operation里的value可能是原始类型，也可能是经过json解码后的map/float64
func decodeValue(src interface{}, dst interface{}) error {
	switch d := dst.(type) {
	case *uint64:
		switch v := src.(type) {
		case uint64:
			*d = v
			return nil
		case int:
			if v < 0 {
				return errors.Errorf("negative value %d", v)
			}
			*d = uint64(v)
			return nil
		case int64:
			if v < 0 {
				return errors.Errorf("negative value %d", v)
			}
			*d = uint64(v)
			return nil
		}
	case *types.RoundDescriptor:
		if v, ok := src.(*types.RoundDescriptor); ok && v != nil {
			*d = *v.Copy()
			return nil
		}
	case *[]types.Address:
		if v, ok := src.([]types.Address); ok {
			*d = append([]types.Address{}, v...)
			return nil
		}
	}

	bz, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "marshal operation value")
	}
	return errors.Wrap(json.Unmarshal(bz, dst), "decode operation value")
}

// addUint64 回绕时返回ErrOverflow，原值不变
func addUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return a, ErrOverflow
	}
	return sum, nil
}

func uintToBytes(v uint64) []byte {
	return []byte(strconv.FormatUint(v, 10))
}

func bytesToUint(bz []byte) (uint64, error) {
	return strconv.ParseUint(string(bz), 10, 64)
}
