package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
	"github.com/acp-protocol/acp-mcp/pkg/primer"
)

// Tools follow one shape: a struct over *AppState with a Definition
// and a Handle. The composition root in server.go registers each
// pair; handlers never write to the state.

// toolContext tags the request context with a fresh request id and
// the tool name for log correlation.
func toolContext(ctx context.Context, tool string) context.Context {
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	return logging.WithTool(ctx, tool)
}

// jsonResult pretty-prints v as the single text content of a tool
// result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ArchitectureTool summarizes the indexed project: domains, counts
// and languages.
type ArchitectureTool struct {
	state *AppState
}

func NewArchitectureTool(state *AppState) *ArchitectureTool {
	return &ArchitectureTool{state: state}
}

func (t *ArchitectureTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_get_architecture",
		mcp.WithDescription("Get an overview of the codebase architecture including domains, files, symbols, and structure. Use this first to understand the project layout."),
	)
}

type architectureResponse struct {
	ProjectName  string          `json:"project_name"`
	TotalFiles   int             `json:"total_files"`
	TotalSymbols int             `json:"total_symbols"`
	Domains      []domainSummary `json:"domains"`
	Languages    []string        `json:"languages"`
}

type domainSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	FileCount   int    `json:"file_count"`
}

func (t *ArchitectureTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_get_architecture")
	cache := t.state.Project().Cache

	names := make([]string, 0, len(cache.Domains))
	for name := range cache.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	domains := make([]domainSummary, 0, len(names))
	for _, name := range names {
		d := cache.Domains[name]
		domains = append(domains, domainSummary{
			Name:        name,
			Description: d.Description,
			FileCount:   len(d.Files),
		})
	}

	langSet := make(map[string]bool)
	for _, f := range cache.Files {
		if f.Language != "" {
			langSet[f.Language] = true
		}
	}
	languages := make([]string, 0, len(langSet))
	for lang := range langSet {
		languages = append(languages, lang)
	}
	sort.Strings(languages)

	logging.GetLogger().Debug(ctx, "architecture overview: %d domains, %d files", len(domains), len(cache.Files))

	return jsonResult(architectureResponse{
		ProjectName:  cache.Project.Name,
		TotalFiles:   len(cache.Files),
		TotalSymbols: len(cache.Symbols),
		Domains:      domains,
		Languages:    languages,
	})
}

// FileContextTool returns the indexed metadata for one file.
type FileContextTool struct {
	state *AppState
}

func NewFileContextTool(state *AppState) *FileContextTool {
	return &FileContextTool{state: state}
}

func (t *FileContextTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_get_file_context",
		mcp.WithDescription("Get detailed context for a specific file including exports, imports, symbols, constraints, and relationships."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the file (relative to project root)"),
		),
	)
}

func (t *FileContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_get_file_context")

	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, ok := t.state.Project().Cache.GetFile(path)
	if !ok {
		logging.GetLogger().Debug(ctx, "file not found: %s", path)
		return mcp.NewToolResultError(fmt.Sprintf("File not found: %s", path)), nil
	}
	return jsonResult(entry)
}

// SymbolContextTool returns a symbol with its callers and callees.
type SymbolContextTool struct {
	state *AppState
}

func NewSymbolContextTool(state *AppState) *SymbolContextTool {
	return &SymbolContextTool{state: state}
}

func (t *SymbolContextTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_get_symbol_context",
		mcp.WithDescription("Get detailed context for a symbol including its definition, callers, callees, constraints, and domain membership."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the symbol to look up"),
		),
	)
}

type symbolContextResponse struct {
	Symbol  *acp.SymbolEntry `json:"symbol"`
	Callers []string         `json:"callers"`
	Callees []string         `json:"callees"`
}

func (t *SymbolContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_get_symbol_context")

	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cache := t.state.Project().Cache
	symbol, ok := cache.Symbols[name]
	if !ok {
		logging.GetLogger().Debug(ctx, "symbol not found: %s", name)
		return mcp.NewToolResultError(fmt.Sprintf("Symbol not found: %s", name)), nil
	}

	response := symbolContextResponse{
		Symbol:  symbol,
		Callers: []string{},
		Callees: []string{},
	}
	if cache.Graph != nil {
		if callers, found := cache.Graph.Reverse[name]; found {
			response.Callers = callers
		}
		if callees, found := cache.Graph.Forward[name]; found {
			response.Callees = callees
		}
	}
	return jsonResult(response)
}

// DomainFilesTool lists a domain's files and metadata.
type DomainFilesTool struct {
	state *AppState
}

func NewDomainFilesTool(state *AppState) *DomainFilesTool {
	return &DomainFilesTool{state: state}
}

func (t *DomainFilesTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_get_domain_files",
		mcp.WithDescription("Get all files belonging to a specific domain with their metadata."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the domain"),
		),
	)
}

func (t *DomainFilesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_get_domain_files")

	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	domain, ok := t.state.Project().Cache.Domains[name]
	if !ok {
		logging.GetLogger().Debug(ctx, "domain not found: %s", name)
		return mcp.NewToolResultError(fmt.Sprintf("Domain not found: %s", name)), nil
	}
	return jsonResult(domain)
}

// CheckConstraintsTool reports the constraints applying to a file.
type CheckConstraintsTool struct {
	state *AppState
}

func NewCheckConstraintsTool(state *AppState) *CheckConstraintsTool {
	return &CheckConstraintsTool{state: state}
}

func (t *CheckConstraintsTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_check_constraints",
		mcp.WithDescription("Check what constraints (lock levels, style rules, behavior requirements) apply to a file or its symbols."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the file to check constraints for"),
		),
	)
}

func (t *CheckConstraintsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_check_constraints")

	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cache := t.state.Project().Cache
	if cache.Constraints == nil {
		return jsonResult(map[string]string{"message": "No constraints defined in cache"})
	}
	fc, ok := cache.Constraints.ByFile[path]
	if !ok {
		return jsonResult(map[string]string{"message": "No constraints found for this file"})
	}
	return jsonResult(fc)
}

// HotpathsTool lists the most-called symbols in the codebase.
type HotpathsTool struct {
	state *AppState
}

func NewHotpathsTool(state *AppState) *HotpathsTool {
	return &HotpathsTool{state: state}
}

func (t *HotpathsTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_get_hotpaths",
		mcp.WithDescription("Get the most frequently called symbols in the codebase - the 'hotpaths' that are critical to understand."),
	)
}

type hotpathSymbol struct {
	Name        string `json:"name"`
	CallerCount int    `json:"caller_count"`
	File        string `json:"file"`
	Kind        string `json:"kind"`
}

const hotpathLimit = 20

func (t *HotpathsTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_get_hotpaths")

	cache := t.state.Project().Cache
	hotpaths := []hotpathSymbol{}
	if cache.Graph != nil {
		type ranked struct {
			name string
			n    int
		}
		counts := make([]ranked, 0, len(cache.Graph.Reverse))
		for name, callers := range cache.Graph.Reverse {
			counts = append(counts, ranked{name: name, n: len(callers)})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].n != counts[j].n {
				return counts[i].n > counts[j].n
			}
			return counts[i].name < counts[j].name
		})

		for _, r := range counts {
			if len(hotpaths) >= hotpathLimit {
				break
			}
			sym, ok := cache.Symbols[r.name]
			if !ok {
				continue
			}
			hotpaths = append(hotpaths, hotpathSymbol{
				Name:        r.name,
				CallerCount: r.n,
				File:        sym.File,
				Kind:        sym.Kind,
			})
		}
	}

	logging.GetLogger().Debug(ctx, "hotpaths: %d symbols", len(hotpaths))
	return jsonResult(hotpaths)
}

// ExpandVariableTool resolves a tracked shorthand variable to its
// payload.
type ExpandVariableTool struct {
	state *AppState
}

func NewExpandVariableTool(state *AppState) *ExpandVariableTool {
	return &ExpandVariableTool{state: state}
}

func (t *ExpandVariableTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_expand_variable",
		mcp.WithDescription("Expand an ACP variable (like $SYM_AuthService, $FILE_config, $DOM_core) to its full context."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Variable name to expand (e.g., \"SYM_AuthService\")"),
		),
	)
}

func (t *ExpandVariableTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_expand_variable")

	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	vars := t.state.Project().Vars
	if vars == nil {
		return mcp.NewToolResultError("No vars file loaded"), nil
	}
	payload, ok := vars.Variables[name]
	if !ok {
		logging.GetLogger().Debug(ctx, "variable not found: %s", name)
		return mcp.NewToolResultError(fmt.Sprintf("Variable not found: %s", name)), nil
	}

	var value interface{}
	if err := json.Unmarshal(payload, &value); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Variable payload is not valid JSON: %v", err)), nil
	}
	return jsonResult(value)
}

// GeneratePrimerTool runs the primer pipeline under a token budget.
// Request defaults come from the project config, falling back to the
// engine defaults.
type GeneratePrimerTool struct {
	state     *AppState
	generator *primer.Generator
	defaults  primer.Request
}

func NewGeneratePrimerTool(state *AppState, generator *primer.Generator, defaults primer.Request) *GeneratePrimerTool {
	return &GeneratePrimerTool{state: state, generator: generator, defaults: defaults}
}

func (t *GeneratePrimerTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_generate_primer",
		mcp.WithDescription("Generate an optimized context primer for the codebase within a token budget. Returns the most important information about the project structure, key files, and critical symbols."),
		mcp.WithNumber("token_budget",
			mcp.Description("Maximum token budget for the primer (default: 4000)"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: \"markdown\", \"compact\", or \"json\" (default: \"markdown\")"),
		),
		mcp.WithString("preset",
			mcp.Description("Weight preset: \"safe\", \"efficient\", \"accurate\", or \"balanced\" (default: \"balanced\")"),
		),
		mcp.WithArray("capabilities",
			mcp.Description("Available capabilities (default: [\"shell\", \"file-read\", \"file-write\"])"),
		),
		mcp.WithArray("categories",
			mcp.Description("Filter by categories (optional)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Filter by tags (optional)"),
		),
		mcp.WithArray("force_include",
			mcp.Description("Force include specific section IDs (optional)"),
		),
	)
}

type primerResponse struct {
	Content          string `json:"content"`
	TokensUsed       int    `json:"tokens_used"`
	TokenBudget      int    `json:"token_budget"`
	SectionsIncluded int    `json:"sections_included"`
	SectionsExcluded int    `json:"sections_excluded"`
}

func (t *GeneratePrimerTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_generate_primer")

	request := primer.Request{
		TokenBudget:  req.GetInt("token_budget", t.defaults.TokenBudget),
		Format:       primer.ParseOutputFormat(req.GetString("format", t.defaults.Format.String())),
		Preset:       primer.ParsePreset(req.GetString("preset", t.defaults.Preset.String())),
		Capabilities: req.GetStringSlice("capabilities", t.defaults.Capabilities),
		Categories:   req.GetStringSlice("categories", nil),
		Tags:         req.GetStringSlice("tags", nil),
		ForceInclude: req.GetStringSlice("force_include", nil),
	}

	result := t.generator.Generate(ctx, t.state.Project(), request)

	return jsonResult(primerResponse{
		Content:          result.Content,
		TokensUsed:       result.TokensUsed,
		TokenBudget:      result.TokenBudget,
		SectionsIncluded: len(result.Sections),
		SectionsExcluded: result.ExcludedCount,
	})
}

// ContextTool serves operation-specific context bundles: create,
// modify, debug and explore.
type ContextTool struct {
	state *AppState
}

func NewContextTool(state *AppState) *ContextTool {
	return &ContextTool{state: state}
}

func (t *ContextTool) Definition() mcp.Tool {
	return mcp.NewTool("acp_context",
		mcp.WithDescription("Get operation-specific context for AI agent tasks. Operations: 'create' (naming conventions for new files), 'modify' (constraints/importers for existing files), 'debug' (related files/symbols), 'explore' (project overview/domains)."),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("Operation type: \"create\", \"modify\", \"debug\", or \"explore\""),
		),
		mcp.WithString("target",
			mcp.Description("For create: directory path. For modify/debug: file path. For explore: optional domain."),
		),
		mcp.WithBoolean("find_usages",
			mcp.Description("For modify: whether to find files that use this file"),
		),
	)
}

func (t *ContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = toolContext(ctx, "acp_context")

	operation, err := req.RequireString("operation")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target := req.GetString("target", "")
	cache := t.state.Project().Cache

	logging.GetLogger().Debug(ctx, "context request: operation=%s target=%q", operation, target)

	switch operation {
	case "create":
		if target == "" {
			return mcp.NewToolResultError("'target' (directory path) required for create operation"), nil
		}
		return jsonResult(buildCreateContext(cache, target))

	case "modify":
		if target == "" {
			return mcp.NewToolResultError("'target' (file path) required for modify operation"), nil
		}
		return jsonResult(buildModifyContext(cache, target))

	case "debug":
		if target == "" {
			return mcp.NewToolResultError("'target' (file or symbol) required for debug operation"), nil
		}
		debug, err := buildDebugContext(cache, target)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Target not found: %s. Provide a file path or symbol name.", target)), nil
		}
		return jsonResult(debug)

	case "explore":
		return jsonResult(buildExploreContext(cache, target))

	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unknown operation: %s. Use: create, modify, debug, or explore", operation)), nil
	}
}
