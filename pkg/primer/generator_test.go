package primer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(nil)
	require.NoError(t, err)
	return g
}

func TestGenerateDefaults(t *testing.T) {
	g := testGenerator(t)
	result := g.Generate(context.Background(), fixtureProject(), DefaultRequest())

	assert.NotEmpty(t, result.Content)
	assert.NotEmpty(t, result.Sections)
	assert.LessOrEqual(t, result.TokensUsed, result.TokenBudget)
	assert.Equal(t, 4000, result.TokenBudget)

	// the required orientation sections always lead
	assert.Contains(t, result.Content, "# Project Context")
	assert.Contains(t, result.Content, "## Guardrails")
}

func TestGenerateRespectsBudget(t *testing.T) {
	g := testGenerator(t)

	for _, budget := range []int{0, 50, 100, 500, 4000, 100000} {
		request := DefaultRequest()
		request.TokenBudget = budget
		result := g.Generate(context.Background(), fixtureProject(), request)

		assert.LessOrEqual(t, result.TokensUsed, budget, "budget %d", budget)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()
	request := DefaultRequest()

	first := g.Generate(context.Background(), project, request)
	for range 5 {
		assert.Equal(t, first, g.Generate(context.Background(), project, request))
	}
}

func TestGenerateFormats(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()

	md := DefaultRequest()
	compact := DefaultRequest()
	compact.Format = FormatCompact
	jsonReq := DefaultRequest()
	jsonReq.Format = FormatJSON

	mdOut := g.Generate(context.Background(), project, md)
	compactOut := g.Generate(context.Background(), project, compact)
	jsonOut := g.Generate(context.Background(), project, jsonReq)

	assert.Less(t, len(compactOut.Content), len(mdOut.Content))
	assert.True(t, strings.HasPrefix(jsonOut.Content, "[\n"))
	assert.True(t, strings.HasSuffix(jsonOut.Content, "\n]"))
}

func TestGeneratePresetChangesSelection(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()

	request := DefaultRequest()
	request.TokenBudget = 150

	balanced := g.Generate(context.Background(), project, request)

	request.Preset = PresetSafe
	safe := g.Generate(context.Background(), project, request)

	// under a tight budget the safe preset pulls safety sections
	// forward; both runs stay within it either way
	assert.LessOrEqual(t, balanced.TokensUsed, 150)
	assert.LessOrEqual(t, safe.TokensUsed, 150)
}

func TestGenerateCustomWeightsOverridePreset(t *testing.T) {
	request := DefaultRequest()
	request.Preset = PresetSafe
	request.Weights = &DimensionWeights{Safety: 1, Efficiency: 1, Accuracy: 1, Base: 1}

	assert.Equal(t, DimensionWeights{Safety: 1, Efficiency: 1, Accuracy: 1, Base: 1}, request.EffectiveWeights())
}

func TestGenerateForceInclude(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()

	request := DefaultRequest()
	request.ForceInclude = []string{"architecture-deep-dive"}
	result := g.Generate(context.Background(), project, request)

	var ids []string
	for _, s := range result.Sections {
		ids = append(ids, s.Section.ID)
	}
	assert.Contains(t, ids, "architecture-deep-dive")
	// the forced deep dive conflicts the brief out
	assert.NotContains(t, ids, "architecture-brief")
}

func TestGenerateCategoryFilter(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()

	request := DefaultRequest()
	request.Categories = []string{"safety"}
	result := g.Generate(context.Background(), project, request)

	require.NotEmpty(t, result.Sections)
	for _, s := range result.Sections {
		assert.Equal(t, "safety", s.Section.Category)
	}
}

func TestGenerateExcludedCount(t *testing.T) {
	g := testGenerator(t)
	project := fixtureProject()

	tight := DefaultRequest()
	tight.TokenBudget = 90
	result := g.Generate(context.Background(), project, tight)

	assert.Positive(t, result.ExcludedCount)
}

func TestGenerateWithCustomCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(`
version: "1.0"
sections:
  - id: only
    category: x
    required: true
    tokens: 10
    formats:
      markdown: {template: "custom content"}
`))
	require.NoError(t, err)

	g, err := NewGenerator(catalog)
	require.NoError(t, err)

	result := g.Generate(context.Background(), fixtureProject(), DefaultRequest())
	assert.Equal(t, "custom content", result.Content)
	assert.Equal(t, 10, result.TokensUsed)
}
