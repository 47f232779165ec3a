package store

import (
	"context"
	"database/sql"
)

// MakeTx is a function that creates a db transaction
type MakeTx = func(ctx context.Context) (tx *sql.Tx, discard, commit func() error, err error)

func NewMakeTx(dbtx *sql.DB) MakeTx {
	return func(ctx context.Context) (tx *sql.Tx, discard, commit func() error, err error) {
		sqltx, err := dbtx.BeginTx(ctx, nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqltx,
			func() error {
				return sqltx.Rollback()
			},
			func() error {
				return sqltx.Commit()
			},
			nil
	}
}
