package vlm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake image body")

type stubPrompts struct {
	prompt string
	err    error
}

func (s stubPrompts) Load(string) (string, error) { return s.prompt, s.err }
func (s stubPrompts) Reload()                     {}

type keyedPrompts map[string]string

func (k keyedPrompts) Load(name string) (string, error) {
	if p, ok := k[name]; ok {
		return p, nil
	}
	return "", errors.New("unknown prompt")
}
func (k keyedPrompts) Reload() {}

// server is a fake Ollama API. tags counts /api/tags calls and
// generates counts /api/generate calls.
type server struct {
	*httptest.Server
	tags      atomic.Int32
	generates atomic.Int32
}

func newServer(t *testing.T, handler func(req generateRequest) (int, any)) *server {
	return newServerWithModels(t, []string{"llava:latest", "qwen2.5vl:latest"}, handler)
}

func newServerWithModels(t *testing.T, models []string, handler func(req generateRequest) (int, any)) *server {
	t.Helper()
	s := &server{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			s.tags.Add(1)
			var tags tagsResponse
			for _, m := range models {
				tags.Models = append(tags.Models, struct {
					Name string `json:"name"`
				}{Name: m})
			}
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(tags)
		case "/api/generate":
			s.generates.Add(1)
			var req generateRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			status, body := handler(req)
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestNew_Defaults(t *testing.T) {
	e := New(Config{})
	assert.Equal(t, DefaultModel, e.Model())
	assert.Equal(t, DefaultBaseURL, e.baseURL)
	assert.Contains(t, e.SupportedFormats(), ".png")
}

func TestExtractFromBlob(t *testing.T) {
	var got generateRequest
	srv := newServer(t, func(req generateRequest) (int, any) {
		got = req
		return http.StatusOK, generateResponse{Response: "  A bar chart of sales by region.  ", Done: true, EvalCount: 42}
	})

	e := New(Config{BaseURL: srv.URL, Model: "qwen2.5vl", RequestsPerSecond: 100})
	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Elements, 1)
	el := result.Elements[0]
	assert.Equal(t, domain.KindImage, el.Kind)
	assert.Equal(t, "A bar chart of sales by region.", el.Text)
	assert.Equal(t, "qwen2.5vl", el.Structured["model"])
	assert.Equal(t, 42, el.Structured["tokens"])
	assert.Equal(t, "image", el.Structured["content_type"])

	assert.Equal(t, "qwen2.5vl", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, DefaultPrompt, got.Prompt)
	require.Len(t, got.Images, 1)
	decoded, err := base64.StdEncoding.DecodeString(got.Images[0])
	require.NoError(t, err)
	assert.Equal(t, pngBytes, decoded)
}

func TestExtract_UsesPromptStore(t *testing.T) {
	var got generateRequest
	srv := newServer(t, func(req generateRequest) (int, any) {
		got = req
		return http.StatusOK, generateResponse{Response: "ok"}
	})

	e := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	e.SetPromptStore(stubPrompts{prompt: "Describe the flowchart."})
	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "Describe the flowchart.", got.Prompt)

	e.SetPromptStore(stubPrompts{err: errors.New("missing")})
	e.ExtractFromBlob(context.Background(), pngBytes, ".png")
	assert.Equal(t, DefaultPrompt, got.Prompt)
}

func TestExtract_ServerError(t *testing.T) {
	srv := newServer(t, func(generateRequest) (int, any) {
		return http.StatusInternalServerError, map[string]string{"error": "model not loaded"}
	})

	result := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}).ExtractFromBlob(context.Background(), pngBytes, ".png")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "status 500")
	assert.Contains(t, result.Error, "model not loaded")
}

func TestExtract_EmptyResponse(t *testing.T) {
	srv := newServer(t, func(generateRequest) (int, any) {
		return http.StatusOK, generateResponse{Response: "   "}
	})

	result := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100}).ExtractFromBlob(context.Background(), pngBytes, ".png")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrNoElements.Error())
}

func TestExtract_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	e := New(Config{BaseURL: url, Timeout: time.Second, RequestsPerSecond: 100})
	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())
	assert.ErrorIs(t, e.Ping(context.Background()), domain.ErrBackendUnavailable)
}

func TestPing(t *testing.T) {
	srv := newServer(t, nil)
	assert.NoError(t, New(Config{BaseURL: srv.URL}).Ping(context.Background()))
	assert.NoError(t, New(Config{BaseURL: srv.URL, Model: "qwen2.5vl:latest"}).Ping(context.Background()))
}

func TestExtract_ModelMissing(t *testing.T) {
	srv := newServerWithModels(t, []string{"mistral:latest"}, func(generateRequest) (int, any) {
		return http.StatusOK, generateResponse{Response: "never"}
	})

	e := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())
	assert.Contains(t, result.Error, `model "llava" not found`)
	assert.Zero(t, srv.generates.Load(), "no image is sent to a server without the model")
}

func TestExtract_ChecksServerOnce(t *testing.T) {
	srv := newServer(t, func(generateRequest) (int, any) {
		return http.StatusOK, generateResponse{Response: "a cat"}
	})

	e := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	for range 3 {
		result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")
		require.True(t, result.Success, result.Error)
	}
	assert.Equal(t, int32(1), srv.tags.Load())
	assert.Equal(t, int32(3), srv.generates.Load())
}

func TestExtract_RetriesCheckAfterFailure(t *testing.T) {
	srv := newServerWithModels(t, nil, func(generateRequest) (int, any) {
		return http.StatusOK, generateResponse{Response: "a cat"}
	})

	e := New(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	assert.False(t, e.ExtractFromBlob(context.Background(), pngBytes, ".png").Success)
	assert.False(t, e.ExtractFromBlob(context.Background(), pngBytes, ".png").Success)
	assert.Equal(t, int32(2), srv.tags.Load(), "a failed check is not cached")
}

func TestDiagram_ExtractFromBlob(t *testing.T) {
	var got generateRequest
	srv := newServer(t, func(req generateRequest) (int, any) {
		got = req
		return http.StatusOK, generateResponse{Response: "Start -> Check stock -> [yes] Ship / [no] Reorder", EvalCount: 17}
	})

	e := NewDiagram(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	assert.Equal(t, DiagramName, e.Name())
	assert.Equal(t, e.SupportedFormats(), New(Config{}).SupportedFormats())

	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Elements, 1)
	el := result.Elements[0]
	assert.Equal(t, domain.KindDiagram, el.Kind)
	assert.Equal(t, "Start -> Check stock -> [yes] Ship / [no] Reorder", el.Text)
	assert.Equal(t, "diagram", el.Structured["content_type"])
	assert.Equal(t, DefaultDiagramPrompt, got.Prompt)
}

func TestDiagram_UsesOwnPromptKey(t *testing.T) {
	var got generateRequest
	srv := newServer(t, func(req generateRequest) (int, any) {
		got = req
		return http.StatusOK, generateResponse{Response: "ok"}
	})

	e := NewDiagram(Config{BaseURL: srv.URL, RequestsPerSecond: 100})
	e.SetPromptStore(keyedPrompts{
		driven.PromptImageDescribe:   "describe",
		driven.PromptDiagramDescribe: "list the nodes",
	})
	result := e.ExtractFromBlob(context.Background(), pngBytes, ".png")

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "list the nodes", got.Prompt)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	result := New(Config{}).ExtractFromBlob(context.Background(), []byte("%PDF"), ".pdf")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())
}
