package combine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/repository"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
)

// Resolve returns the combination of a and b.
//
//  1. Derive the key from the trimmed pair
//  2. Ask the policy whether the pair may be combined at all
//  3. Return the stored combination if there is one
//  4. Otherwise generate a new one and check the result against the policy
//  5. Insert it; if another resolver inserted the same key first, return theirs
//
// Every failure is reported as an Outcome, nothing is retried. Two concurrent
// calls for the same new pair may both generate; only one insert wins.
func (u *UseCase) Resolve(ctx context.Context, a, b string) *model.Outcome {
	outcome := u.resolve(ctx, a, b)
	logOutcome(ctx, outcome)
	return outcome
}

func (u *UseCase) resolve(ctx context.Context, a, b string) *model.Outcome {
	pair, err := model.NewElementPair(a, b)
	if err != nil {
		return model.Rejected(model.ElementPair{A: a, B: b}, model.ReasonInvalidInput, err)
	}
	key := pair.Key()

	if reasons, err := u.policy.CheckPair(ctx, pair); err != nil {
		return model.Failed(pair, model.ReasonPolicyFailure, err)
	} else if len(reasons) > 0 {
		return model.Rejected(pair, model.ReasonNotCombinable,
			goerr.New("pair denied by policy", goerr.V("reasons", reasons)))
	}

	existing, err := u.repo.GetCombination(ctx, key)
	if err != nil {
		return model.Failed(pair, model.ReasonPersistenceFailure, err)
	}
	if existing != nil {
		return model.Resolved(pair, existing, false)
	}

	// Generation and persistence outlive the caller: if the request is
	// abandoned, the result is still stored for the next player.
	work := context.WithoutCancel(ctx)

	result, err := u.generate(work, pair)
	if err != nil {
		return model.Failed(pair, model.GenerationFailureReason(err), err)
	}
	if !result.Accepted {
		return model.Rejected(pair, model.ReasonNotCombinable, nil)
	}

	if reasons, err := u.policy.CheckResult(work, pair, result); err != nil {
		return model.Failed(pair, model.ReasonPolicyFailure, err)
	} else if len(reasons) > 0 {
		return model.Rejected(pair, model.ReasonNotCombinable,
			goerr.New("result denied by policy",
				goerr.V("result", result.Name),
				goerr.V("reasons", reasons)))
	}

	combination := &model.Combination{
		Key:       key,
		Name:      result.Name,
		Emoji:     result.Emoji,
		SourceA:   pair.A,
		SourceB:   pair.B,
		CreatedAt: u.now().UTC(),
	}

	err = u.repo.PutCombination(work, combination)
	switch {
	case err == nil:
		return model.Resolved(pair, combination, true)

	case errors.Is(err, repository.ErrAlreadyExists):
		// Lost the race against a concurrent resolver; its record is the answer
		winner, getErr := u.repo.GetCombination(work, key)
		if getErr != nil {
			return model.Failed(pair, model.ReasonPersistenceFailure, getErr)
		}
		if winner == nil {
			return model.Failed(pair, model.ReasonRaceInconsistency,
				goerr.New("combination exists but cannot be read", goerr.V("key", key)))
		}
		return model.Resolved(pair, winner, false)

	default:
		return model.Failed(pair, model.ReasonPersistenceFailure, err)
	}
}

func (u *UseCase) generate(ctx context.Context, pair model.ElementPair) (*model.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, u.generationTimeout)
	defer cancel()

	result, err := u.generator.Generate(ctx, pair.A, pair.B)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, goerr.Wrap(model.ErrMalformedResponse, "generator returned no result")
	}
	return result, nil
}

func logOutcome(ctx context.Context, outcome *model.Outcome) {
	logger := logging.From(ctx).With(
		"a", outcome.Pair.A,
		"b", outcome.Pair.B,
		"outcome", outcome.Kind,
	)

	switch outcome.Kind {
	case model.OutcomeResolved:
		logger.Info("combination resolved",
			"key", outcome.Combination.Key,
			"name", outcome.Combination.Name,
			"is_new", outcome.IsNew,
		)
	case model.OutcomeRejected:
		attrs := []any{"reason", outcome.Reason}
		if outcome.Err != nil {
			attrs = append(attrs, "error", outcome.Err)
		}
		logger.Info("combination rejected", attrs...)
	default:
		level := slog.LevelError
		if outcome.Reason == model.ReasonMalformedResponse || outcome.Reason == model.ReasonIncompleteResponse {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "combination failed",
			"reason", outcome.Reason,
			"error", outcome.Err,
		)
	}
}
