package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	execs      []string
	failOn     string
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	f.execs = append(f.execs, query)
	if query == f.failOn {
		return nil, stderrors.New("syntax error")
	}
	return nil, nil
}

func (f *fakeTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, stderrors.New("not supported")
}

func (f *fakeTx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (f *fakeTx) Commit() error   { f.committed = true; return nil }
func (f *fakeTx) Rollback() error { f.rolledBack = true; return nil }

type fakeDB struct {
	DB
	tx *fakeTx
}

func (f *fakeDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	return f.tx, nil
}

func TestMigrate_RunsStatementsUnderLock(t *testing.T) {
	d := &fakeDB{tx: &fakeTx{}}

	err := Migrate(context.Background(), d, "CREATE TABLE a", "CREATE INDEX b")
	require.NoError(t, err)

	assert.Equal(t, []string{"SELECT pg_advisory_xact_lock($1)", "CREATE TABLE a", "CREATE INDEX b"}, d.tx.execs)
	assert.True(t, d.tx.committed)
	assert.False(t, d.tx.rolledBack)
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	d := &fakeDB{tx: &fakeTx{failOn: "CREATE INDEX b"}}

	err := Migrate(context.Background(), d, "CREATE TABLE a", "CREATE INDEX b", "CREATE TABLE c")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2")
	assert.True(t, d.tx.rolledBack)
	assert.False(t, d.tx.committed)
	assert.NotContains(t, d.tx.execs, "CREATE TABLE c")
}
