// Package sqlxrepos implements the domain repositories on top of sqlx. Queries are written with `?`
// placeholders and rebound for the driver in use, so the same code serves PostgreSQL and SQLite.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/storage/database"
)

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo baseRepository) get(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	return sqlx.GetContext(ctx, exec, dest, exec.Rebind(q), args...)
}

func (repo baseRepository) selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, exec, dest, exec.Rebind(q), args...)
}

func (repo baseRepository) execute(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) (sql.Result, error) {
	return exec.ExecContext(ctx, exec.Rebind(q), args...)
}

// insert runs an INSERT ... RETURNING id statement and returns the new id.
func (repo baseRepository) insert(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) (int, error) {
	var id int
	if err := exec.QueryRowxContext(ctx, exec.Rebind(q), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// count runs a COUNT query.
func (repo baseRepository) count(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) (int, error) {
	var n int
	err := repo.get(ctx, exec, &n, q, args...)
	return n, err
}

// deleteByID deletes one row and returns notFound when there was none.
func (repo baseRepository) deleteByID(ctx context.Context, exec core.DBExecutor, table string, id int, notFound error) error {
	res, err := repo.execute(ctx, exec, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// mapErr turns "no rows" into notFound and unique violations into conflict.
func mapErr(err, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows) && notFound != nil:
		return notFound
	case conflict != nil && database.IsUniqueViolation(err):
		return conflict
	}
	return err
}
