package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/usecase/combine"
	"github.com/m-mizutani/plenty/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// slowRequestThreshold is the duration above which requests are logged at WARN level
const slowRequestThreshold = 5 * time.Second

// Combiner is the part of the combine use case exposed as tools
type Combiner interface {
	Resolve(ctx context.Context, a, b string) *model.Outcome
	List(ctx context.Context, opts combine.ListOptions) ([]*model.Combination, error)
}

// Server exposes combinations as MCP tools
type Server struct {
	server   *mcp.Server
	combiner Combiner
}

// combineParams defines the parameters for the combine_elements tool
type combineParams struct {
	A string `json:"a" jsonschema:"Name of the first element"`
	B string `json:"b" jsonschema:"Name of the second element"`
}

// listParams defines the parameters for the list_combinations tool
type listParams struct {
	Offset int `json:"offset,omitempty" jsonschema:"Number of combinations to skip"`
	Limit  int `json:"limit,omitempty" jsonschema:"Maximum number of combinations to return (default 100)"`
}

// New creates an MCP server with the combine_elements and list_combinations tools
func New(combiner Combiner, version string) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "plenty",
			Version: version,
		}, nil),
		combiner: combiner,
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "combine_elements",
		Description: "Combine two elements into a new one. Returns the resulting element with its emoji, or success=false when they cannot be combined.",
	}, s.combineElements)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_combinations",
		Description: "List discovered combinations, newest first",
	}, s.listCombinations)

	s.server.AddReceivingMiddleware(loggingMiddleware)

	return s
}

// Run serves on stdio and blocks until the client disconnects or ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	logging.From(ctx).Info("starting MCP server", "transport", "stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// Handler returns a streamable HTTP handler serving the same tools
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) combineElements(ctx context.Context, req *mcp.CallToolRequest, params *combineParams) (*mcp.CallToolResult, any, error) {
	outcome := s.combiner.Resolve(ctx, params.A, params.B)

	raw, err := json.Marshal(model.NewEnvelope(params.A, params.B, outcome))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal envelope")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

func (s *Server) listCombinations(ctx context.Context, req *mcp.CallToolRequest, params *listParams) (*mcp.CallToolResult, any, error) {
	combinations, err := s.combiner.List(ctx, combine.ListOptions{
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		return nil, nil, err
	}
	if combinations == nil {
		combinations = []*model.Combination{}
	}

	raw, err := json.Marshal(combinations)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal combinations")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}

// loggingMiddleware logs every request with its duration
func loggingMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		result, err := next(ctx, method, req)
		duration := time.Since(start)

		logger := logging.From(ctx)
		attrs := []any{
			"method", method,
			"duration_ms", duration.Milliseconds(),
		}

		if err != nil {
			attrs = append(attrs, "error", err)
			logger.Error("MCP request failed", attrs...)
		} else if duration > slowRequestThreshold {
			logger.Warn("slow MCP request", attrs...)
		} else {
			logger.Debug("MCP request completed", attrs...)
		}

		return result, err
	}
}
