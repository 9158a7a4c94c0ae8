package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/primer"
)

func testProject() *acp.Project {
	cache := acp.NewCache("demo", "/src/demo")
	cache.Files = map[string]*acp.FileEntry{
		"src/main.go": {Path: "src/main.go", Language: "go", Layer: "app", Imports: []string{"src/auth/service.go"}},
		"src/auth/service.go": {
			Path: "src/auth/service.go", Language: "go", Layer: "core",
			Exports:    []string{"AuthService"},
			ImportedBy: []string{"src/main.go", "src/api/login.go"},
		},
		"src/api/login.go": {Path: "src/api/login.go", Language: "go", Layer: "api"},
	}
	cache.Symbols = map[string]*acp.SymbolEntry{
		"AuthService": {Name: "AuthService", File: "src/auth/service.go", Kind: "class", Purpose: "session auth"},
		"login":       {Name: "login", File: "src/api/login.go", Kind: "function"},
	}
	cache.Domains = map[string]*acp.Domain{
		"auth": {Files: []string{"src/auth/service.go", "src/api/login.go"}, Symbols: []string{"AuthService", "login"}, Description: "authentication"},
	}
	cache.Graph = &acp.CallGraph{
		Forward: map[string][]string{"login": {"AuthService"}},
		Reverse: map[string][]string{"AuthService": {"login", "logout", "refresh"}},
	}
	cache.Constraints = &acp.ConstraintSet{
		ByFile: map[string]*acp.FileConstraint{
			"src/auth/service.go": {Mutation: &acp.MutationConstraint{Level: acp.LockFrozen, Reason: "security review"}},
		},
	}
	cache.Stats = acp.Stats{Files: 3, Symbols: 2, Lines: 900, PrimaryLanguage: "go"}

	return &acp.Project{
		Root:  "/src/demo",
		Cache: cache,
		Vars: &acp.VarsFile{Variables: map[string]json.RawMessage{
			"SYM_AuthService": json.RawMessage(`{"file": "src/auth/service.go", "kind": "class"}`),
		}},
	}
}

func testState() *AppState {
	return NewAppStateFromProject(testProject())
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func TestArchitectureTool(t *testing.T) {
	tool := NewArchitectureTool(testState())

	res, err := tool.Handle(context.Background(), callReq(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "demo", out["project_name"])
	assert.EqualValues(t, 3, out["total_files"])
	assert.EqualValues(t, 2, out["total_symbols"])
	assert.Equal(t, []interface{}{"go"}, out["languages"])

	domains := out["domains"].([]interface{})
	require.Len(t, domains, 1)
	assert.Equal(t, "auth", domains[0].(map[string]interface{})["name"])
}

func TestFileContextTool(t *testing.T) {
	tool := NewFileContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"path": "src/auth/service.go"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "src/auth/service.go", out["path"])
	assert.Equal(t, "core", out["layer"])
}

func TestFileContextToolNotFound(t *testing.T) {
	tool := NewFileContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"path": "nope.go"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFileContextToolMissingParam(t *testing.T) {
	tool := NewFileContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSymbolContextTool(t *testing.T) {
	tool := NewSymbolContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "AuthService"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.ElementsMatch(t, []interface{}{"login", "logout", "refresh"}, out["callers"])
	assert.Empty(t, out["callees"])
}

func TestSymbolContextToolNoGraph(t *testing.T) {
	project := testProject()
	project.Cache.Graph = nil
	tool := NewSymbolContextTool(NewAppStateFromProject(project))

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "AuthService"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Empty(t, out["callers"])
}

func TestDomainFilesTool(t *testing.T) {
	tool := NewDomainFilesTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "auth"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Len(t, out["files"], 2)

	res, err = tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "billing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCheckConstraintsTool(t *testing.T) {
	tool := NewCheckConstraintsTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"path": "src/auth/service.go"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	mutation := out["mutation"].(map[string]interface{})
	assert.Equal(t, "frozen", mutation["level"])
	assert.Equal(t, "security review", mutation["reason"])

	// unconstrained file answers with a message, not an error
	res, err = tool.Handle(context.Background(), callReq(map[string]interface{}{"path": "src/main.go"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "No constraints found")
}

func TestCheckConstraintsToolNoConstraintSet(t *testing.T) {
	project := testProject()
	project.Cache.Constraints = nil
	tool := NewCheckConstraintsTool(NewAppStateFromProject(project))

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"path": "src/main.go"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(t, res), "No constraints defined")
}

func TestHotpathsTool(t *testing.T) {
	tool := NewHotpathsTool(testState())

	res, err := tool.Handle(context.Background(), callReq(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "AuthService", out[0]["name"])
	assert.EqualValues(t, 3, out[0]["caller_count"])
	assert.Equal(t, "src/auth/service.go", out[0]["file"])
}

func TestExpandVariableTool(t *testing.T) {
	tool := NewExpandVariableTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "SYM_AuthService"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "src/auth/service.go", out["file"])

	res, err = tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "SYM_Nothing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestExpandVariableToolNoVarsFile(t *testing.T) {
	project := testProject()
	project.Vars = nil
	tool := NewExpandVariableTool(NewAppStateFromProject(project))

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"name": "SYM_AuthService"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGeneratePrimerTool(t *testing.T) {
	generator, err := primer.NewGenerator(nil)
	require.NoError(t, err)
	tool := NewGeneratePrimerTool(testState(), generator, primer.DefaultRequest())

	res, err := tool.Handle(context.Background(), callReq(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.NotEmpty(t, out["content"])
	assert.EqualValues(t, 4000, out["token_budget"])
	assert.LessOrEqual(t, out["tokens_used"].(float64), out["token_budget"].(float64))
	assert.Positive(t, out["sections_included"])
}

func TestGeneratePrimerToolBudget(t *testing.T) {
	generator, err := primer.NewGenerator(nil)
	require.NoError(t, err)
	tool := NewGeneratePrimerTool(testState(), generator, primer.DefaultRequest())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"token_budget": 500,
		"format":       "compact",
		"preset":       "safe",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.EqualValues(t, 500, out["token_budget"])
	assert.LessOrEqual(t, out["tokens_used"].(float64), 500.0)
}

func TestContextToolExplore(t *testing.T) {
	tool := NewContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"operation": "explore"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "explore", out["operation"])
	assert.NotNil(t, out["stats"])
	assert.NotNil(t, out["domains"])
}

func TestContextToolCreate(t *testing.T) {
	tool := NewContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"operation": "create",
		"target":    "src/auth",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "create", out["operation"])
	assert.Equal(t, "src/auth", out["directory"])
	assert.Equal(t, "go", out["language"])
}

func TestContextToolModify(t *testing.T) {
	tool := NewContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"operation": "modify",
		"target":    "src/auth/service.go",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.EqualValues(t, 2, out["importer_count"])
	assert.Equal(t, "auth", out["domain"])
	constraints := out["constraints"].(map[string]interface{})
	assert.Equal(t, "frozen", constraints["level"])
}

func TestContextToolDebug(t *testing.T) {
	tool := NewContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{
		"operation": "debug",
		"target":    "AuthService",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := resultJSON(t, res)
	assert.Equal(t, "src/auth/service.go", out["file"])
}

func TestContextToolInvalidOperation(t *testing.T) {
	tool := NewContextTool(testState())

	res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"operation": "destroy"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestContextToolMissingTarget(t *testing.T) {
	tool := NewContextTool(testState())

	for _, op := range []string{"create", "modify", "debug"} {
		res, err := tool.Handle(context.Background(), callReq(map[string]interface{}{"operation": op}))
		require.NoError(t, err)
		assert.True(t, res.IsError, "operation %s without target", op)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s, err := New(testState(), nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestPrimerDefaultsFromConfig(t *testing.T) {
	cfg := &acp.Config{Primer: acp.PrimerConfig{
		TokenBudget: 2500,
		Format:      "compact",
		Preset:      "safe",
	}}

	defaults := primerDefaults(cfg)
	assert.Equal(t, 2500, defaults.TokenBudget)
	assert.Equal(t, primer.FormatCompact, defaults.Format)
	assert.Equal(t, primer.PresetSafe, defaults.Preset)
}

func TestNewServerWithMissingCatalog(t *testing.T) {
	cfg := &acp.Config{Primer: acp.PrimerConfig{CatalogPath: "no-such-catalog.yaml"}}

	_, err := New(testState(), cfg)
	require.Error(t, err)
}
