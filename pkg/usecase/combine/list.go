package combine

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
)

// ListOptions contains options for listing combinations
type ListOptions struct {
	Offset int
	Limit  int
}

// List retrieves stored combinations, newest first
func (u *UseCase) List(
	ctx context.Context,
	opts ListOptions,
) ([]*model.Combination, error) {
	combinations, err := u.repo.ListCombinations(ctx, opts.Offset, opts.Limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list combinations",
			goerr.V("offset", opts.Offset),
			goerr.V("limit", opts.Limit))
	}
	return combinations, nil
}
