package combine

import (
	"time"

	"github.com/m-mizutani/plenty/pkg/repository"
)

const defaultGenerationTimeout = 30 * time.Second

// UseCase resolves element pairs: cached combinations come from the
// repository, new ones from the generator.
type UseCase struct {
	repo              repository.Repository
	generator         Generator
	policy            *Policy
	now               func() time.Time
	generationTimeout time.Duration
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithPolicy sets a policy that can veto pairs and generated results
func WithPolicy(policy *Policy) Option {
	return func(uc *UseCase) {
		uc.policy = policy
	}
}

// WithClock replaces the time source used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// WithGenerationTimeout bounds a single generator call. Non-positive values keep the default.
func WithGenerationTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		if d > 0 {
			uc.generationTimeout = d
		}
	}
}

// New creates a new combine UseCase instance
func New(
	repo repository.Repository,
	generator Generator,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:              repo,
		generator:         generator,
		now:               time.Now,
		generationTimeout: defaultGenerationTimeout,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
