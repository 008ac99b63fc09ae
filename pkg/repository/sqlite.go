package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SQLite implements Repository with a single SQLite table
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and bootstraps the schema.
// Opening an existing database is safe; the schema is only created when missing.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", path))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to connect to database", goerr.V("path", path))
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to apply pragma", goerr.V("pragma", pragma))
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to apply schema")
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, emoji, element_a, element_b, created_at
		FROM elements
		WHERE id = ?
	`, string(key))

	c, err := scanCombination(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get combination", goerr.V("key", key))
	}
	return c, nil
}

func (s *SQLite) PutCombination(ctx context.Context, c *model.Combination) error {
	if err := validateCombination(c); err != nil {
		return err
	}

	createdAt := c.CreatedAt.UTC()
	// ON CONFLICT DO NOTHING leaves the first record in place; zero affected
	// rows tells the caller another writer got there first.
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO elements (id, name, emoji, element_a, element_b, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
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

func (s *SQLite) ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error) {
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, emoji, element_a, element_b, created_at
		FROM elements
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`, normalizeLimit(limit), offset)
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
		combinations = append(combinations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate combinations")
	}

	return combinations, nil
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCombination(row rowScanner) (*model.Combination, error) {
	var (
		c         model.Combination
		key       string
		emoji     sql.NullString
		sourceA   sql.NullString
		sourceB   sql.NullString
		createdAt time.Time
	)
	if err := row.Scan(&key, &c.Name, &emoji, &sourceA, &sourceB, &createdAt); err != nil {
		return nil, err
	}

	c.Key = model.CombinationKey(key)
	c.Emoji = emoji.String
	c.SourceA = sourceA.String
	c.SourceB = sourceB.String
	c.CreatedAt = createdAt
	return &c, nil
}
