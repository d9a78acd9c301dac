package app

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Novip1906/tasks-api/internal/config"
	"github.com/Novip1906/tasks-api/internal/storage"
	"github.com/Novip1906/tasks-api/internal/storage/ldbstore"
	"github.com/Novip1906/tasks-api/internal/storage/sqlstore"
)

// openStorage opens the configured backend. The returned func releases
// the underlying database.
func openStorage(ctx context.Context, cfg *config.Config) (storage.TasksStorage, func() error, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		dsn := cfg.Storage.DSN
		if dsn == "" {
			p := cfg.DB
			dsn = sqlstore.PostgresDSN(p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
		}
		db, err := sqlstore.Connect(ctx, sqlstore.DriverPostgres, dsn)
		if err != nil {
			return nil, nil, err
		}
		return sqlstore.NewTasksStore(db), db.Close, nil

	case config.DriverSqlite:
		db, err := sqlstore.Connect(ctx, sqlstore.DriverSqlite, cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewTasksStorageSync(sqlstore.NewTasksStore(db)), db.Close, nil

	case config.DriverLevelDB:
		var (
			db  *leveldb.DB
			err error
		)
		if cfg.Storage.Path == "" {
			db, err = ldbstore.OpenMemory()
		} else {
			db, err = ldbstore.Open(cfg.Storage.Path)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open leveldb: %w", err)
		}
		return ldbstore.NewTasksStore(db), db.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
