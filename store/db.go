package store

import (
	"github.com/pkg/errors"
	tmdb "github.com/tendermint/tm-db"
	leveldb "github.com/tendermint/tm-db/goleveldb"
	"github.com/tendermint/tm-db/memdb"
)

// db_backend支持的后端
const (
	GoLevelDBBackend = "goleveldb"
	MemDBBackend     = "memdb"
)

// NewDB 按照db_backend打开数据库，goleveldb保存在dir/name.db
func NewDB(name, backend, dir string) (tmdb.DB, error) {
	switch backend {
	case GoLevelDBBackend:
		levelDB, err := leveldb.NewDB(name, dir)
		if err != nil {
			return nil, errors.Wrapf(err, "open goleveldb %v", name)
		}
		return levelDB, nil
	case MemDBBackend:
		return memdb.NewDB(), nil
	default:
		return nil, errors.Errorf("unknown db_backend %q", backend)
	}
}
