package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/plenty/pkg/model"
	"github.com/m-mizutani/plenty/pkg/repository"
	"github.com/m-mizutani/plenty/pkg/server"
	"github.com/m-mizutani/plenty/pkg/service/mcp"
	"github.com/m-mizutani/plenty/pkg/usecase/combine"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// mockGenerator is a mock implementation of combine.Generator for testing
type mockGenerator struct {
	generateFunc func(ctx context.Context, a, b string) (*model.GenerationResult, error)
}

func (m *mockGenerator) Generate(ctx context.Context, a, b string) (*model.GenerationResult, error) {
	return m.generateFunc(ctx, a, b)
}

func steamGenerator() *mockGenerator {
	return &mockGenerator{
		generateFunc: func(ctx context.Context, a, b string) (*model.GenerationResult, error) {
			if a == "Fire" && b == "Ice" || a == "Ice" && b == "Fire" {
				return &model.GenerationResult{Accepted: false}, nil
			}
			return &model.GenerationResult{Name: "Steam", Emoji: "💨", Accepted: true}, nil
		},
	}
}

func getEnvelope(t *testing.T, srv http.Handler, a, b string) (*model.Envelope, map[string]any) {
	t.Helper()
	query := url.Values{}
	query.Set("a", a)
	query.Set("b", b)

	req := httptest.NewRequest(http.MethodGet, "/element?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Header().Get("Content-Type"), "application/json")
	gt.True(t, w.Header().Get("X-Request-Id") != "")

	var envelope model.Envelope
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	var raw map[string]any
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	return &envelope, raw
}

func TestElement(t *testing.T) {
	uc := combine.New(repository.NewMemory(), steamGenerator())
	srv := server.New(uc)

	first, _ := getEnvelope(t, srv, "Water", "Fire")
	gt.True(t, first.Success)
	gt.Equal(t, first.A, "Water")
	gt.Equal(t, first.B, "Fire")
	gt.Equal(t, first.Element.Object, "Steam")
	gt.Equal(t, first.Element.Emoji, "💨")
	gt.True(t, first.Element.Success)
	gt.True(t, *first.IsNew)

	second, raw := getEnvelope(t, srv, "Fire", "Water")
	gt.True(t, second.Success)
	gt.Equal(t, second.A, "Fire")
	gt.False(t, *second.IsNew)
	gt.Equal(t, raw["isNew"], any(false))
}

func TestElementFailures(t *testing.T) {
	uc := combine.New(repository.NewMemory(), steamGenerator())
	srv := server.New(uc)

	testCases := []struct {
		name string
		a    string
		b    string
	}{
		{name: "missing a", a: "", b: "Fire"},
		{name: "blank b", a: "Water", b: "   "},
		{name: "not combinable", a: "Fire", b: "Ice"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, raw := getEnvelope(t, srv, tc.a, tc.b)
			gt.Equal(t, len(raw), 1)
			gt.Equal(t, raw["success"], any(false))
		})
	}
}

func TestElementMethodNotAllowed(t *testing.T) {
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))

	req := httptest.NewRequest(http.MethodPost, "/element?a=Water&b=Fire", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusMethodNotAllowed)
}

func TestElements(t *testing.T) {
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))

	req := httptest.NewRequest(http.MethodGet, "/elements", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusOK)

	var elements []model.Element
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &elements))
	gt.A(t, elements).Length(4)
	gt.Equal(t, elements[0].Name, "Water")
	gt.Equal(t, elements[0].Emoji, "💧")
}

func TestHealth(t *testing.T) {
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), "ok")
}

func TestPublicDir(t *testing.T) {
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>plenty</h1>"), 0644))

	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()), server.WithPublicDir(dir))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("<h1>plenty</h1>")

	// API routes still win over static files
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Body.String(), "ok")
}

func TestNoPublicDir(t *testing.T) {
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Equal(t, w.Code, http.StatusNotFound)
}

func TestMCPRoute(t *testing.T) {
	stub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("mcp"))
	})
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()), server.WithMCP(stub))

	testCases := map[string]struct {
		path string
		code int
	}{
		"exact":        {path: "/mcp", code: http.StatusOK},
		"sub path":     {path: "/mcp/session", code: http.StatusOK},
		"other prefix": {path: "/mcpanything", code: http.StatusNotFound},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			gt.Equal(t, w.Code, tc.code)
			if tc.code == http.StatusOK {
				gt.Equal(t, w.Body.String(), "mcp")
			}
		})
	}
}

func TestMCPEndpoint(t *testing.T) {
	ctx := context.Background()
	uc := combine.New(repository.NewMemory(), steamGenerator())
	srv := server.New(uc, server.WithMCP(mcp.New(uc, "test").Handler()))

	testServer := httptest.NewServer(srv)
	defer testServer.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "plenty-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcpsdk.StreamableClientTransport{
		Endpoint: testServer.URL + "/mcp",
	}, nil)
	gt.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "combine_elements",
		Arguments: map[string]any{"a": "Water", "b": "Fire"},
	})
	gt.NoError(t, err)
	gt.A(t, result.Content).Length(1)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.S(t, text.Text).Contains(`"object":"Steam"`)
}

func TestListenAndServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))

	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx, "127.0.0.1:0", srv)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestListenAndServeBadAddr(t *testing.T) {
	srv := server.New(combine.New(repository.NewMemory(), steamGenerator()))
	err := server.ListenAndServe(context.Background(), "not-an-address", srv)
	gt.Error(t, err)
}

