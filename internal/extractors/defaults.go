package extractors

import (
	"time"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/docx"
	"github.com/custodia-labs/docstage/internal/extractors/html"
	"github.com/custodia-labs/docstage/internal/extractors/markdown"
	"github.com/custodia-labs/docstage/internal/extractors/pdf"
	"github.com/custodia-labs/docstage/internal/extractors/plaintext"
	"github.com/custodia-labs/docstage/internal/extractors/vlm"
)

// RegisterDefaults registers all built-in extractors with the registry.
// Call this during application initialisation. Registration does not
// enable a backend; Settings.Extractors selects which ones run.
// prompts may be nil.
func RegisterDefaults(r *Registry, settings domain.VLMSettings, prompts driven.PromptStore) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())

	cfg := vlm.Config{
		BaseURL:           settings.BaseURL,
		Model:             settings.Model,
		Timeout:           time.Duration(settings.TimeoutSeconds) * time.Second,
		RequestsPerSecond: settings.RequestsPerSecond,
	}
	for _, v := range []*vlm.Extractor{vlm.New(cfg), vlm.NewDiagram(cfg)} {
		if prompts != nil {
			v.SetPromptStore(prompts)
		}
		r.Register(v)
	}
}
