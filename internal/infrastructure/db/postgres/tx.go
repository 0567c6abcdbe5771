package postgres

import (
	"context"
	"database/sql"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// TxManager runs account mutations in a database/sql transaction.
type TxManager struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{
		db:   db,
		opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

// WithTx commits when fn returns nil and rolls back on error or panic.
// Panics are rethrown after the rollback.
func (m *TxManager) WithTx(ctx context.Context, fn func(tx account.UserRepo) error) (err error) {
	tx, err := m.db.BeginTx(ctx, m.opts)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = domain.ErrDBUnavailable(cerr)
		}
	}()

	err = fn(NewUserRepo(tx))
	return err
}
