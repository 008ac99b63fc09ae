package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

var (
	// ErrAlreadyExists is returned by PutCombination when the key is already stored
	ErrAlreadyExists = goerr.New("combination already exists")
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// Repository defines the interface for combination persistence.
// Records are insert-only: nothing is ever updated or deleted.
type Repository interface {
	// GetCombination retrieves a combination by key. Returns nil without error when absent.
	GetCombination(ctx context.Context, key model.CombinationKey) (*model.Combination, error)

	// PutCombination inserts a new combination. It never overwrites an existing
	// record and returns ErrAlreadyExists instead.
	PutCombination(ctx context.Context, c *model.Combination) error

	// ListCombinations retrieves combinations, newest first
	ListCombinations(ctx context.Context, offset, limit int) ([]*model.Combination, error)

	// Close releases the underlying connection
	Close() error
}

func validateCombination(c *model.Combination) error {
	if c == nil {
		return goerr.New("combination is nil")
	}
	if c.Key == "" {
		return goerr.New("combination key is empty")
	}
	if c.Name == "" {
		return goerr.New("combination name is empty", goerr.V("key", c.Key))
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
