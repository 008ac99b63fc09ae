package export

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/adapter"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/repository"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
)

const defaultPageSize = 500

// UseCase copies every stored combination to an external sink
type UseCase struct {
	repo     repository.Repository
	pageSize int
}

type Option func(*UseCase)

// WithPageSize sets how many combinations are read from the repository at once
func WithPageSize(size int) Option {
	return func(u *UseCase) {
		if size > 0 {
			u.pageSize = size
		}
	}
}

// New creates a new export UseCase instance
func New(repo repository.Repository, opts ...Option) *UseCase {
	u := &UseCase{
		repo:     repo,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Row is the exported form of a combination
type Row struct {
	ID        string    `json:"id" bigquery:"id"`
	Name      string    `json:"name" bigquery:"name"`
	Emoji     string    `json:"emoji" bigquery:"emoji"`
	ElementA  string    `json:"element_a" bigquery:"element_a"`
	ElementB  string    `json:"element_b" bigquery:"element_b"`
	CreatedAt time.Time `json:"created_at" bigquery:"created_at"`
}

func newRow(c *model.Combination) *Row {
	return &Row{
		ID:        string(c.Key),
		Name:      c.Name,
		Emoji:     c.Emoji,
		ElementA:  c.SourceA,
		ElementB:  c.SourceB,
		CreatedAt: c.CreatedAt,
	}
}

// eachPage walks the repository newest first and calls fn for every non-empty page.
// A combination stored during the walk pushes older rows to later offsets, so
// rows already delivered are skipped by key.
func (u *UseCase) eachPage(ctx context.Context, fn func(rows []*Row) error) (int, error) {
	total := 0
	seen := make(map[model.CombinationKey]struct{})
	for offset := 0; ; offset += u.pageSize {
		combinations, err := u.repo.ListCombinations(ctx, offset, u.pageSize)
		if err != nil {
			return total, goerr.Wrap(err, "failed to list combinations", goerr.V("offset", offset))
		}
		if len(combinations) == 0 {
			return total, nil
		}

		rows := make([]*Row, 0, len(combinations))
		for _, c := range combinations {
			if _, ok := seen[c.Key]; ok {
				continue
			}
			seen[c.Key] = struct{}{}
			rows = append(rows, newRow(c))
		}
		if len(rows) > 0 {
			if err := fn(rows); err != nil {
				return total, err
			}
			total += len(rows)
		}

		if len(combinations) < u.pageSize {
			return total, nil
		}
	}
}

// ToStorage writes all combinations as JSON lines into one object
func (u *UseCase) ToStorage(ctx context.Context, storage adapter.Storage, key string) (int, error) {
	if key == "" {
		return 0, goerr.New("object key is required")
	}

	w, err := storage.Put(ctx, key)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open object", goerr.V("key", key))
	}

	encoder := json.NewEncoder(w)
	total, err := u.eachPage(ctx, func(rows []*Row) error {
		for _, row := range rows {
			if err := encoder.Encode(row); err != nil {
				return goerr.Wrap(err, "failed to write row", goerr.V("id", row.ID))
			}
		}
		return nil
	})
	if err != nil {
		w.Close()
		return total, err
	}

	if err := w.Close(); err != nil {
		return total, goerr.Wrap(err, "failed to finish object", goerr.V("key", key))
	}

	logging.From(ctx).Info("exported combinations to storage", "key", key, "count", total)
	return total, nil
}

// ToBigQuery inserts all combinations into a table, creating it when missing
func (u *UseCase) ToBigQuery(ctx context.Context, bq adapter.BigQuery, datasetID, tableID string) (int, error) {
	if datasetID == "" || tableID == "" {
		return 0, goerr.New("dataset and table are required",
			goerr.V("dataset", datasetID),
			goerr.V("table", tableID))
	}

	schema, err := bigquery.InferSchema(Row{})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to infer schema")
	}
	if err := bq.EnsureTable(ctx, datasetID, tableID, schema); err != nil {
		return 0, err
	}

	total, err := u.eachPage(ctx, func(rows []*Row) error {
		return bq.Insert(ctx, datasetID, tableID, rows)
	})
	if err != nil {
		return total, err
	}

	logging.From(ctx).Info("exported combinations to bigquery",
		"dataset", datasetID,
		"table", tableID,
		"count", total)
	return total, nil
}
