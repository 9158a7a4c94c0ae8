package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
)

func TestBuildCreateContextNamingConvention(t *testing.T) {
	cache := testProject().Cache
	cache.Conventions = acp.Conventions{
		FileNaming: []acp.NamingConvention{
			{Directory: "src", Pattern: "snake_case.go", Confidence: 0.6},
			{Directory: "src/auth", Pattern: "service_*.go", Confidence: 0.9, Examples: []string{"service_auth.go"}},
		},
		Imports: &acp.ImportConvention{ModuleSystem: "gomod", PathStyle: "absolute"},
	}

	out := buildCreateContext(cache, "src/auth")

	require.NotNil(t, out.NamingConvention)
	assert.Equal(t, "service_*.go", out.NamingConvention.Pattern)
	assert.Equal(t, "service_*.go", out.RecommendedPattern)
	require.NotNil(t, out.ImportStyle)
	assert.Equal(t, "gomod", out.ImportStyle.ModuleSystem)
	assert.Equal(t, []string{"src/auth/service.go"}, out.SimilarFiles)
}

func TestBuildCreateContextPrefixFallback(t *testing.T) {
	cache := testProject().Cache
	cache.Conventions = acp.Conventions{
		FileNaming: []acp.NamingConvention{
			{Directory: "src", Pattern: "snake_case.go", Confidence: 0.6},
		},
	}

	// no exact match for src/api; the longest prefix wins
	out := buildCreateContext(cache, "src/api")
	require.NotNil(t, out.NamingConvention)
	assert.Equal(t, "snake_case.go", out.NamingConvention.Pattern)
}

func TestBuildCreateContextDefaults(t *testing.T) {
	out := buildCreateContext(testProject().Cache, "src/unknown")

	assert.Nil(t, out.NamingConvention)
	assert.Empty(t, out.RecommendedPattern)
	assert.Empty(t, out.SimilarFiles)
	assert.Empty(t, out.Language)
}

func TestBuildModifyContext(t *testing.T) {
	out := buildModifyContext(testProject().Cache, "src/auth/service.go")

	assert.Equal(t, 2, out.ImporterCount)
	assert.ElementsMatch(t, []string{"src/main.go", "src/api/login.go"}, out.Importers)
	assert.Equal(t, []string{"AuthService"}, out.Symbols)
	assert.Equal(t, "auth", out.Domain)
	require.NotNil(t, out.Constraints)
	assert.Equal(t, "frozen", out.Constraints.Level)
}

func TestBuildModifyContextUnknownFile(t *testing.T) {
	out := buildModifyContext(testProject().Cache, "ghost.go")

	assert.Zero(t, out.ImporterCount)
	assert.Empty(t, out.Importers)
	assert.Nil(t, out.Constraints)
	assert.Empty(t, out.Domain)
}

func TestBuildDebugContextFile(t *testing.T) {
	out, err := buildDebugContext(testProject().Cache, "src/auth/service.go")
	require.NoError(t, err)

	assert.Equal(t, "src/auth/service.go", out.File)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "AuthService", out.Symbols[0].Name)
}

func TestBuildDebugContextSymbol(t *testing.T) {
	out, err := buildDebugContext(testProject().Cache, "AuthService")
	require.NoError(t, err)

	assert.Equal(t, "src/auth/service.go", out.File)
	require.Len(t, out.Symbols, 1)
	assert.Equal(t, "class", out.Symbols[0].Kind)
	// AuthService has 3 callers, so it ranks as a hotpath of itself
	assert.Contains(t, out.Hotpaths, "AuthService")
}

func TestBuildDebugContextUnknownTarget(t *testing.T) {
	_, err := buildDebugContext(testProject().Cache, "Phantom")
	assert.Error(t, err)
}

func TestBuildExploreContext(t *testing.T) {
	out := buildExploreContext(testProject().Cache, "")

	assert.Equal(t, 3, out.Stats.Files)
	assert.Equal(t, "go", out.Stats.PrimaryLanguage)
	require.Len(t, out.Domains, 1)
	assert.Equal(t, "auth", out.Domains[0].Name)
	assert.Equal(t, 2, out.Domains[0].FileCount)

	// key files ranked by importer count, service.go first
	require.NotEmpty(t, out.KeyFiles)
	assert.Equal(t, "src/auth/service.go", out.KeyFiles[0])
}

func TestBuildExploreContextDomainFilter(t *testing.T) {
	out := buildExploreContext(testProject().Cache, "auth")
	assert.Len(t, out.Domains, 1)

	out = buildExploreContext(testProject().Cache, "billing")
	assert.Empty(t, out.Domains)
}
