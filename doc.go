// Package acpmcp is an MCP (Model Context Protocol) server that gives AI
// agents structured context about a codebase from its ACP cache files.
//
// An external indexer writes a .acp/ directory (acp.cache.json,
// acp.vars.json, acp.attempts.json) describing files, symbols, domains,
// layers, constraints and the call graph of a project. This server loads
// those files, watches them for changes, and exposes the data to agents
// over stdio as MCP tools.
//
// Key Components:
//
//   - acp: Typed model of the cache files, concurrent project loading,
//     and the optional .acp.config.json project configuration.
//
//   - primer: Token-budget-constrained primer generation. Scores catalog
//     sections on multiple value dimensions, selects them in phases
//     (required, conditionally required, safety-critical, value per
//     token) under a budget, and renders markdown, compact or JSON
//     output from per-format templates.
//
//   - server: The MCP surface. Nine tools covering architecture
//     overview, file and symbol context, domain membership, constraint
//     checks, hotpaths, variable expansion, primer generation, and
//     operation-specific context for create/modify/debug/explore tasks.
//     Includes the shared application state and the cache watcher.
//
//   - logging, errors: Leveled stderr logging with request-scoped
//     fields, and coded errors with structured context.
//
// The binary lives in cmd/acp-mcp and serves a single project rooted at
// the working directory or the --directory flag.
package acpmcp
