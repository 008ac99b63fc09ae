package combine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

const policyQuery = "data.combine.deny"

// Policy vetoes element pairs and generated results with Rego rules in
// package "combine". Every message in the deny set rejects the combination.
//
// Input is {"a": ..., "b": ...} before generation and additionally
// {"result": {"object": ..., "emoji": ...}} after generation.
type Policy struct {
	query *rego.PreparedEvalQuery
}

// regoPrintHook routes Rego print() statements to the context logger
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// LoadPolicy loads all .rego files from policyDir. Returns nil when the
// directory has no policy files.
func LoadPolicy(ctx context.Context, policyDir string) (*Policy, error) {
	if policyDir == "" {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", policyDir))
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+2)
	options = append(options, rego.Query(policyQuery), rego.EnablePrintStatements(true))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare policy query", goerr.V("query", policyQuery))
	}

	return &Policy{query: &prepared}, nil
}

// CheckPair evaluates the policy before any generation happens
func (p *Policy) CheckPair(ctx context.Context, pair model.ElementPair) ([]string, error) {
	return p.eval(ctx, map[string]any{
		"a": pair.A,
		"b": pair.B,
	})
}

// CheckResult evaluates the policy against a generated result
func (p *Policy) CheckResult(ctx context.Context, pair model.ElementPair, result *model.GenerationResult) ([]string, error) {
	return p.eval(ctx, map[string]any{
		"a": pair.A,
		"b": pair.B,
		"result": map[string]any{
			"object": result.Name,
			"emoji":  result.Emoji,
		},
	})
}

func (p *Policy) eval(ctx context.Context, input map[string]any) ([]string, error) {
	if p == nil || p.query == nil {
		return nil, nil
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate policy")
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	values, ok := rs[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, goerr.New("deny must be a set",
			goerr.V("value", rs[0].Expressions[0].Value))
	}

	reasons := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			reasons = append(reasons, s)
		} else {
			reasons = append(reasons, fmt.Sprint(v))
		}
	}
	return reasons, nil
}
