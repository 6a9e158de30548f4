// Package vlm describes images with a vision-language model served by Ollama.
//
// Two backends share the client: "vlm" transcribes and describes any image,
// "vlm_diagram" reads flowcharts and diagrams into diagram elements.
package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Registry names of the two backends.
const (
	Name        = "vlm"
	DiagramName = "vlm_diagram"
)

// Version changes when the request shape or default prompt changes.
const Version = "1.0.0"

// Default configuration values.
const (
	DefaultBaseURL           = "http://localhost:11434"
	DefaultModel             = "llava"
	DefaultTimeout           = 120 * time.Second
	DefaultRequestsPerSecond = 1.0
)

// DefaultPrompt is used when no prompt store is configured.
const DefaultPrompt = `Analyse this image and extract ALL of its content.

1. Transcribe every visible word, number and symbol in reading order.
2. Describe any tables with their rows and columns.
3. Describe diagrams, charts and figures, including labels and the flow between parts.
4. Note headers, footers, captions and stamps.

Transcribe completely. Do not summarise.`

// DefaultDiagramPrompt is used by the diagram backend when no prompt store
// is configured.
const DefaultDiagramPrompt = `This image is a flowchart or diagram. Extract its complete structure.

1. Title: the main heading of the diagram.
2. Nodes: every box or shape with its identifier, its full text and its type (process, decision, start, end).
3. Connections: every arrow with its source, target, direction and label.
4. Decisions: the criteria of each decision point and the branch taken for each answer.
5. Start and end points.
6. Notes, legends and any text outside the shapes.

Preserve all text exactly as written, in its original language.`

// mode is what a backend asks the model for and what it emits.
type mode struct {
	name          string
	promptKey     string
	defaultPrompt string
	kind          domain.ElementKind
	contentType   string
}

var (
	describeMode = mode{
		name:          Name,
		promptKey:     driven.PromptImageDescribe,
		defaultPrompt: DefaultPrompt,
		kind:          domain.KindImage,
		contentType:   "image",
	}
	diagramMode = mode{
		name:          DiagramName,
		promptKey:     driven.PromptDiagramDescribe,
		defaultPrompt: DefaultDiagramPrompt,
		kind:          domain.KindDiagram,
		contentType:   "diagram",
	}
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Config holds configuration for the vision backend.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the vision model to use (default: llava).
	Model string

	// Timeout bounds a single request (default: 120s).
	Timeout time.Duration

	// RequestsPerSecond limits calls to the model server (default: 1).
	RequestsPerSecond float64
}

// Extractor sends images to /api/generate and stores the description.
type Extractor struct {
	*base.Base
	mode    mode
	client  *http.Client
	baseURL string
	model   string
	limiter *rate.Limiter
	prompts driven.PromptStore
	ready   atomic.Bool
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Images  []string `json:"images"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	Temperature float64 `json:"temperature"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// New creates the describing vision backend.
func New(cfg Config) *Extractor {
	return newExtractor(cfg, describeMode)
}

// NewDiagram creates the diagram backend.
func NewDiagram(cfg Config) *Extractor {
	return newExtractor(cfg, diagramMode)
}

func newExtractor(cfg Config, m mode) *Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}

	return &Extractor{
		Base:    base.New(m.name, Version, ".png", ".jpg", ".jpeg", ".webp", ".gif"),
		mode:    m,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// SetPromptStore sets the store used to load the prompt.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.prompts = store
}

// Model returns the configured model name.
func (e *Extractor) Model() string {
	return e.model
}

// Extract reads the image at path.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	return e.Run(ctx, path, e.extract)
}

// ExtractFromBlob stages blob and extracts it.
func (e *Extractor) ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult {
	return e.Stage(ctx, blob, ext, e.Extract)
}

func (e *Extractor) extract(ctx context.Context, path string) ([]domain.ElementDraft, error) {
	if err := e.ensureReady(ctx); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	resp, err := e.generate(ctx, e.prompt(), data)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(resp.Response)
	if text == "" {
		return nil, nil
	}

	return []domain.ElementDraft{{
		Kind: e.mode.kind,
		Text: text,
		Structured: map[string]any{
			"model":        e.model,
			"tokens":       resp.EvalCount,
			"content_type": e.mode.contentType,
		},
	}}, nil
}

func (e *Extractor) prompt() string {
	if e.prompts == nil {
		return e.mode.defaultPrompt
	}
	p, err := e.prompts.Load(e.mode.promptKey)
	if err != nil || strings.TrimSpace(p) == "" {
		return e.mode.defaultPrompt
	}
	return p
}

// generate sends one image with a prompt. Connection failures are reported
// as an unavailable backend.
func (e *Extractor) generate(ctx context.Context, prompt string, image []byte) (*generateResponse, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	jsonBody, err := json.Marshal(generateRequest{
		Model:   e.model,
		Prompt:  prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(image)},
		Stream:  false,
		Options: &options{Temperature: 0.1},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama at %s: %w", domain.ErrBackendUnavailable, e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// ensureReady runs Ping until it first succeeds.
func (e *Extractor) ensureReady(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	if err := e.Ping(ctx); err != nil {
		return err
	}
	e.ready.Store(true)
	return nil
}

// Ping checks that the Ollama server is reachable and has the model.
// A model without a tag matches its ":latest" variant.
func (e *Extractor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: ping failed: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama: API returned status %d", domain.ErrBackendUnavailable, resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("%w: ollama: decode model list: %w", domain.ErrBackendUnavailable, err)
	}
	for _, m := range tags.Models {
		if m.Name == e.model || m.Name == e.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("%w: ollama: model %q not found, run: ollama pull %s",
		domain.ErrBackendUnavailable, e.model, e.model)
}
