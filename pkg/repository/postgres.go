package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

const defaultPostgresTable = "elements"

// Postgres implements Repository with a single PostgreSQL table
type Postgres struct {
	db    *sql.DB
	table string
}

type PostgresOption func(*Postgres)

// WithTable overrides the table name (default "elements")
func WithTable(table string) PostgresOption {
	return func(p *Postgres) {
		if table != "" {
			p.table = table
		}
	}
}

// NewPostgres connects to dsn and creates the table if it does not exist
func NewPostgres(ctx context.Context, dsn string, opts ...PostgresOption) (*Postgres, error) {
	if dsn == "" {
		return nil, goerr.New("postgres dsn is required")
	}

	p := &Postgres{table: defaultPostgresTable}
	for _, opt := range opts {
		opt(p)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to connect to database")
	}
	p.db = db

	if _, err := db.ExecContext(ctx, p.query(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			emoji      TEXT,
			element_a  TEXT,
			element_b  TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to apply schema", goerr.V("table", p.table))
	}

	return p, nil
}

// query fills the quoted table name into a statement
func (p *Postgres) query(format string) string {
	return fmt.Sprintf(format, pq.QuoteIdentifier(p.table))
}

func (p *Postgres) GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error) {
	row := p.db.QueryRowContext(ctx, p.query(`
		SELECT id, name, emoji, element_a, element_b, created_at
		FROM %s
		WHERE id = $1
	`), string(key))

	c, err := scanCombination(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get combination", goerr.V("key", key))
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (p *Postgres) PutCombination(ctx context.Context, c *model.Combination) error {
	if err := validateCombination(c); err != nil {
		return err
	}

	createdAt := c.CreatedAt.UTC()
	result, err := p.db.ExecContext(ctx, p.query(`
		INSERT INTO %s (id, name, emoji, element_a, element_b, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`),
		string(c.Key),
		c.Name,
		c.Emoji,
		c.SourceA,
		c.SourceB,
		createdAt,
		createdAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to put combination", goerr.V("key", c.Key))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows", goerr.V("key", c.Key))
	}
	if affected == 0 {
		return goerr.Wrap(ErrAlreadyExists, "failed to put combination", goerr.V("key", c.Key))
	}

	return nil
}

func (p *Postgres) ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error) {
	if offset < 0 {
		offset = 0
	}

	rows, err := p.db.QueryContext(ctx, p.query(`
		SELECT id, name, emoji, element_a, element_b, created_at
		FROM %s
		ORDER BY created_at DESC, id ASC
		LIMIT $1 OFFSET $2
	`), normalizeLimit(limit), offset)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list combinations")
	}
	defer rows.Close()

	var combinations []*model.Combination
	for rows.Next() {
		c, err := scanCombination(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan combination")
		}
		c.CreatedAt = c.CreatedAt.UTC()
		combinations = append(combinations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate combinations")
	}

	return combinations, nil
}

// DropTable removes the table. Used to clean up test tables.
func (p *Postgres) DropTable(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, p.query(`DROP TABLE IF EXISTS %s`)); err != nil {
		return goerr.Wrap(err, "failed to drop table", goerr.V("table", p.table))
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
