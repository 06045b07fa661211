package history

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/db"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

const schema = `CREATE TABLE IF NOT EXISTS processing_history (
	id            UUID PRIMARY KEY,
	owner         TEXT        NOT NULL,
	file_name     TEXT        NOT NULL,
	tool          TEXT        NOT NULL,
	tool_name     TEXT        NOT NULL,
	processed_at  TIMESTAMPTZ NOT NULL,
	original_size BIGINT      NOT NULL DEFAULT 0,
	result_size   BIGINT      NOT NULL DEFAULT 0,
	status        TEXT        NOT NULL,
	error_message TEXT        NOT NULL DEFAULT ''
)`

const ownerIndex = `CREATE INDEX IF NOT EXISTS processing_history_owner_idx
	ON processing_history (owner, processed_at DESC)`

const columns = `id, owner, file_name, tool, tool_name, processed_at, original_size, result_size, status, error_message`

// PostgresStore keeps history in the processing_history table.
type PostgresStore struct {
	db    db.DB
	limit int
}

// NewPostgresStore creates the table if needed and returns the store.
func NewPostgresStore(ctx context.Context, d db.DB, limit int) (*PostgresStore, error) {
	if limit < 1 {
		limit = DefaultLimit
	}
	if err := db.Migrate(ctx, d, schema, ownerIndex); err != nil {
		return nil, err
	}
	return &PostgresStore{db: d, limit: limit}, nil
}

func (p *PostgresStore) Add(ctx context.Context, e Entry) (Entry, error) {
	if err := validate(e); err != nil {
		return Entry{}, err
	}
	if e.ID == "" {
		e.ID = utils.GenerateUUID()
	}
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now().UTC()
	}

	err := db.WithTx(ctx, p.db, func(tx db.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO processing_history (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.Owner, e.FileName, e.Tool, e.ToolName, e.ProcessedAt,
			e.OriginalSize, e.ResultSize, string(e.Status), e.ErrorMessage)
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
		_, err = tx.Exec(ctx, `DELETE FROM processing_history
			WHERE owner = $1 AND id NOT IN (
				SELECT id FROM processing_history WHERE owner = $1
				ORDER BY processed_at DESC LIMIT $2)`,
			e.Owner, p.limit)
		if err != nil {
			return fmt.Errorf("trim history: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (p *PostgresStore) Get(ctx context.Context, owner, id string) (Entry, error) {
	// ids are UUIDs in the table; anything else cannot match a row.
	if !utils.IsValidUUID(id) {
		return Entry{}, notFound(id)
	}
	row := p.db.QueryRow(ctx,
		`SELECT `+columns+` FROM processing_history WHERE owner = $1 AND id = $2`, owner, id)
	e, err := scan(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Entry{}, notFound(id)
	}
	return e, err
}

func (p *PostgresStore) List(ctx context.Context, owner string, f Filter) ([]Entry, error) {
	query, args := listQuery(owner, f, p.limit)
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func listQuery(owner string, f Filter, limit int) (string, []interface{}) {
	where := []string{"owner = $1"}
	args := []interface{}{owner}
	if f.Tool != "" {
		args = append(args, f.Tool)
		where = append(where, fmt.Sprintf("tool = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM processing_history WHERE %s ORDER BY processed_at DESC LIMIT $%d`,
		columns, strings.Join(where, " AND "), len(args))
	return query, args
}

func (p *PostgresStore) Remove(ctx context.Context, owner, id string) error {
	if !utils.IsValidUUID(id) {
		return notFound(id)
	}
	res, err := p.db.Exec(ctx, `DELETE FROM processing_history WHERE owner = $1 AND id = $2`, owner, id)
	if err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context, owner string) (int, error) {
	res, err := p.db.Exec(ctx, `DELETE FROM processing_history WHERE owner = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *PostgresStore) Stats(ctx context.Context, owner string) (Stats, error) {
	var s Stats
	err := p.db.QueryRow(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COALESCE(SUM(original_size), 0)
		FROM processing_history WHERE owner = $1`, owner).
		Scan(&s.Total, &s.Successful, &s.TotalBytesProcessed)
	if err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	s.Failed = s.Total - s.Successful
	s.SuccessRate = successRate(s.Successful, s.Total)
	return s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(s scanner) (Entry, error) {
	var (
		e      Entry
		status string
	)
	err := s.Scan(&e.ID, &e.Owner, &e.FileName, &e.Tool, &e.ToolName, &e.ProcessedAt,
		&e.OriginalSize, &e.ResultSize, &status, &e.ErrorMessage)
	if err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	return e, nil
}
