// Package server exposes the loaded project over the Model Context
// Protocol: nine tools covering architecture queries, constraint
// checks, variable expansion and primer generation, served over stdio.
package server

import (
	"context"
	"sync"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/logging"
)

// AppState is the shared, reloadable project snapshot behind every
// tool handler. Reads take a snapshot pointer under a read lock;
// Reload swaps the whole project atomically, so in-flight handlers
// keep the snapshot they started with.
type AppState struct {
	root string

	mu      sync.RWMutex
	project *acp.Project
}

// NewAppState loads the project from root and wraps it for concurrent
// access.
func NewAppState(ctx context.Context, root string) (*AppState, error) {
	project, err := acp.LoadProject(ctx, root)
	if err != nil {
		return nil, err
	}
	return &AppState{root: root, project: project}, nil
}

// NewAppStateFromProject wraps an already-loaded project. Used by
// tests and embedders that manage loading themselves.
func NewAppStateFromProject(project *acp.Project) *AppState {
	return &AppState{root: project.Root, project: project}
}

// Root returns the project root directory.
func (s *AppState) Root() string {
	return s.root
}

// Project returns the current snapshot. The returned value is shared
// and must be treated as read-only.
func (s *AppState) Project() *acp.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// Reload re-reads the project from disk and swaps it in. On failure
// the previous snapshot stays active.
func (s *AppState) Reload(ctx context.Context) error {
	project, err := acp.LoadProject(ctx, s.root)
	if err != nil {
		logging.GetLogger().Warn(ctx, "reload failed, keeping previous snapshot: %v", err)
		return err
	}

	s.mu.Lock()
	s.project = project
	s.mu.Unlock()

	logging.GetLogger().Info(ctx, "project state reloaded from %s", s.root)
	return nil
}
