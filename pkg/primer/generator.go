package primer

import (
	"context"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
)

// Generator ties the pipeline together: state extraction, scoring,
// selection and rendering against one section catalog. A Generator is
// immutable and safe for concurrent use.
type Generator struct {
	catalog *Catalog
}

// NewGenerator builds a generator over the given catalog. A nil
// catalog falls back to the embedded defaults.
func NewGenerator(catalog *Catalog) (*Generator, error) {
	if catalog == nil {
		var err error
		catalog, err = DefaultCatalog()
		if err != nil {
			return nil, err
		}
	}
	return &Generator{catalog: catalog}, nil
}

// Catalog returns the generator's catalog.
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Generate produces a primer for the project under the request's
// budget, format and weights. Generation never fails once the catalog
// is loaded: sections that cannot render are skipped, and an
// impossible budget yields an empty primer.
func (g *Generator) Generate(ctx context.Context, project *acp.Project, request Request) Result {
	state := ExtractState(project)
	return g.generate(ctx, state, project.Cache, request)
}

// GenerateFromState is Generate with a pre-extracted state snapshot
// and cache. It exists for callers that reuse one snapshot across
// multiple requests.
func (g *Generator) GenerateFromState(ctx context.Context, state *ProjectState, cache *acp.Cache, request Request) Result {
	return g.generate(ctx, state, cache, request)
}

func (g *Generator) generate(ctx context.Context, state *ProjectState, cache *acp.Cache, request Request) Result {
	scored := ScoreSections(g.catalog.Sections, state, request.EffectiveWeights(), g.catalog.ModifiersEnabled())
	selection := SelectSections(scored, request)

	content := NewRenderer(request.Format, cache).Render(selection.Selected)

	logging.GetLogger().Debug(ctx, "primer generated: %d sections, %d/%d tokens, %d excluded, format=%s",
		len(selection.Selected), selection.TokensUsed, request.TokenBudget,
		selection.ExcludedCount, request.Format)

	return Result{
		Content:       content,
		Sections:      selection.Selected,
		TokensUsed:    selection.TokensUsed,
		TokenBudget:   request.TokenBudget,
		ExcludedCount: selection.ExcludedCount,
	}
}
