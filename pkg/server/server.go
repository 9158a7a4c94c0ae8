package server

import (
	"context"
	"path/filepath"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
	"github.com/acp-protocol/acp-mcp/pkg/primer"
)

// Version is set at build time via ldflags.
var Version = "dev"

const serverName = "acp-mcp"

const serverInstructions = "ACP (AI Context Protocol) server providing codebase context for AI agents. " +
	"Use acp_get_architecture first to understand the project structure, then " +
	"use other tools to explore specific files, symbols, and domains."

// New wires every tool over the shared state and returns the MCP
// server. This is the composition root; no query logic lives here. A
// nil config means all defaults.
func New(state *AppState, cfg *acp.Config) (*mcpserver.MCPServer, error) {
	if cfg == nil {
		cfg = acp.DefaultConfig()
	}

	catalog, err := loadCatalog(state.Root(), cfg)
	if err != nil {
		return nil, err
	}
	generator, err := primer.NewGenerator(catalog)
	if err != nil {
		return nil, err
	}

	s := mcpserver.NewMCPServer(
		serverName,
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions),
	)

	architecture := NewArchitectureTool(state)
	s.AddTool(architecture.Definition(), architecture.Handle)

	fileContext := NewFileContextTool(state)
	s.AddTool(fileContext.Definition(), fileContext.Handle)

	symbolContext := NewSymbolContextTool(state)
	s.AddTool(symbolContext.Definition(), symbolContext.Handle)

	domainFiles := NewDomainFilesTool(state)
	s.AddTool(domainFiles.Definition(), domainFiles.Handle)

	checkConstraints := NewCheckConstraintsTool(state)
	s.AddTool(checkConstraints.Definition(), checkConstraints.Handle)

	hotpaths := NewHotpathsTool(state)
	s.AddTool(hotpaths.Definition(), hotpaths.Handle)

	expandVariable := NewExpandVariableTool(state)
	s.AddTool(expandVariable.Definition(), expandVariable.Handle)

	generatePrimer := NewGeneratePrimerTool(state, generator, primerDefaults(cfg))
	s.AddTool(generatePrimer.Definition(), generatePrimer.Handle)

	contextTool := NewContextTool(state)
	s.AddTool(contextTool.Definition(), contextTool.Handle)

	return s, nil
}

// loadCatalog resolves the project's catalog override; nil means the
// embedded defaults.
func loadCatalog(root string, cfg *acp.Config) (*primer.Catalog, error) {
	path := cfg.Primer.CatalogPath
	if path == "" {
		return nil, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return primer.LoadCatalogFile(path)
}

// primerDefaults folds the config overrides into the engine defaults.
func primerDefaults(cfg *acp.Config) primer.Request {
	defaults := primer.DefaultRequest()
	if cfg.Primer.TokenBudget > 0 {
		defaults.TokenBudget = cfg.Primer.TokenBudget
	}
	if cfg.Primer.Format != "" {
		defaults.Format = primer.ParseOutputFormat(cfg.Primer.Format)
	}
	if cfg.Primer.Preset != "" {
		defaults.Preset = primer.ParsePreset(cfg.Primer.Preset)
	}
	return defaults
}

// RunStdio loads the project at root, starts the cache watcher and
// serves MCP over stdio until the client disconnects. Logging must
// already point at stderr; stdout belongs to the protocol.
func RunStdio(ctx context.Context, root string) error {
	logger := logging.GetLogger()

	cfg, err := acp.LoadConfig(root)
	if err != nil {
		return err
	}

	state, err := NewAppState(ctx, root)
	if err != nil {
		return err
	}

	s, err := New(state, cfg)
	if err != nil {
		return err
	}

	if cfg.WatchEnabled() {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		watcher, err := NewWatcher(state)
		if err != nil {
			// The server is still useful without hot reload.
			logger.Warn(ctx, "cache watcher unavailable: %v", err)
		} else {
			defer watcher.Close()
			go watcher.Run(watchCtx)
		}
	}

	logger.Info(ctx, "serving MCP over stdio for %s", root)
	return mcpserver.ServeStdio(s)
}
