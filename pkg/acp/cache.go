// Package acp defines the on-disk schema of a pre-built code-analysis
// cache and the auxiliary vars/attempts tracking files. The cache is
// produced by an external indexer; this package only reads it.
package acp

import (
	"strings"
)

// LockLevel is the mutation lock applied to a file by its constraints.
type LockLevel string

const (
	LockFrozen           LockLevel = "frozen"
	LockRestricted       LockLevel = "restricted"
	LockApprovalRequired LockLevel = "approval-required"
	LockTestsRequired    LockLevel = "tests-required"
	LockDocsRequired     LockLevel = "docs-required"
	LockNone             LockLevel = "none"
)

// Cache is the immutable snapshot of an indexed project.
type Cache struct {
	Project     ProjectInfo             `json:"project"`
	Files       map[string]*FileEntry   `json:"files"`
	Symbols     map[string]*SymbolEntry `json:"symbols"`
	Domains     map[string]*Domain      `json:"domains"`
	Graph       *CallGraph              `json:"graph,omitempty"`
	Constraints *ConstraintSet          `json:"constraints,omitempty"`
	Conventions Conventions             `json:"conventions"`
	Hacks       []Hack                  `json:"hacks,omitempty"`
	Stats       Stats                   `json:"stats"`
}

// ProjectInfo identifies the indexed project.
type ProjectInfo struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// FileEntry is the indexed metadata for one source file.
type FileEntry struct {
	Path       string   `json:"path"`
	Language   string   `json:"language"`
	Layer      string   `json:"layer,omitempty"`
	Imports    []string `json:"imports,omitempty"`
	Exports    []string `json:"exports,omitempty"`
	ImportedBy []string `json:"imported_by,omitempty"`
}

// SymbolEntry is one entry in the symbol table.
type SymbolEntry struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Purpose string `json:"purpose,omitempty"`
}

// Domain groups files and symbols under a named business area.
type Domain struct {
	Files       []string `json:"files"`
	Symbols     []string `json:"symbols,omitempty"`
	Description string   `json:"description,omitempty"`
}

// CallGraph holds forward (callees) and reverse (callers) edges keyed
// by symbol name. The graph is optional in the cache.
type CallGraph struct {
	Forward map[string][]string `json:"forward"`
	Reverse map[string][]string `json:"reverse"`
}

// ConstraintSet holds per-file constraint records. Optional.
type ConstraintSet struct {
	ByFile map[string]*FileConstraint `json:"by_file"`
}

// FileConstraint is the constraint record for one file.
type FileConstraint struct {
	Mutation *MutationConstraint `json:"mutation,omitempty"`
}

// MutationConstraint is a mutation lock with an optional reason.
type MutationConstraint struct {
	Level  LockLevel `json:"level"`
	Reason string    `json:"reason,omitempty"`
}

// Conventions captures detected project conventions.
type Conventions struct {
	FileNaming []NamingConvention `json:"file_naming,omitempty"`
	Imports    *ImportConvention  `json:"imports,omitempty"`
}

// NamingConvention is a detected file naming pattern for a directory.
type NamingConvention struct {
	Directory  string   `json:"directory"`
	Pattern    string   `json:"pattern"`
	Confidence float64  `json:"confidence"`
	Examples   []string `json:"examples,omitempty"`
}

// ImportConvention describes how the project structures imports.
type ImportConvention struct {
	ModuleSystem string `json:"module_system,omitempty"`
	PathStyle    string `json:"path_style,omitempty"`
	IndexExports bool   `json:"index_exports,omitempty"`
}

// Hack is a tracked temporary workaround, optionally with an expiry.
type Hack struct {
	ID          string `json:"id"`
	File        string `json:"file,omitempty"`
	Description string `json:"description,omitempty"`
	Expired     bool   `json:"expired,omitempty"`
}

// Stats are aggregate counts over the indexed project.
type Stats struct {
	Files              int     `json:"files"`
	Symbols            int     `json:"symbols"`
	Lines              int     `json:"lines"`
	PrimaryLanguage    string  `json:"primary_language,omitempty"`
	AnnotationCoverage float64 `json:"annotation_coverage"`
}

// NewCache returns an empty cache for the given project, useful as a
// degenerate fixture. All lookups over it succeed with empty results.
func NewCache(name, root string) *Cache {
	return &Cache{
		Project: ProjectInfo{Name: name, Root: root},
		Files:   map[string]*FileEntry{},
		Symbols: map[string]*SymbolEntry{},
		Domains: map[string]*Domain{},
	}
}

// GetFile looks up a file entry by path.
func (c *Cache) GetFile(path string) (*FileEntry, bool) {
	f, ok := c.Files[path]
	return f, ok
}

// entryPointSuffixes are the filename patterns treated as likely
// process or package entry points.
var entryPointSuffixes = []string{
	"main.go", "main.rs", "main.ts", "main.py",
	"index.ts", "index.js", "app.ts", "app.py", "mod.rs",
}

// EntryPoints returns files matching common entry-point naming,
// capped at limit. Order follows map iteration and is not stable;
// callers that need determinism must sort.
func (c *Cache) EntryPoints(limit int) []*FileEntry {
	var out []*FileEntry
	for _, f := range c.Files {
		lower := strings.ToLower(f.Path)
		for _, suffix := range entryPointSuffixes {
			if strings.HasSuffix(lower, suffix) {
				out = append(out, f)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// LayerCounts groups files by declared layer membership.
func (c *Cache) LayerCounts() map[string]int {
	counts := make(map[string]int)
	for _, f := range c.Files {
		if f.Layer != "" {
			counts[f.Layer]++
		}
	}
	return counts
}
