package server

import (
	"path"
	"sort"
	"strings"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/errors"
)

// Operation-specific context payloads. Each builder distills the cache
// down to what an agent needs for one kind of task, instead of making
// it stitch together five separate tool calls.

type createContext struct {
	Operation          string            `json:"operation"`
	Directory          string            `json:"directory"`
	Language           string            `json:"language,omitempty"`
	NamingConvention   *namingConvention `json:"naming_convention,omitempty"`
	ImportStyle        *importStyle      `json:"import_style,omitempty"`
	SimilarFiles       []string          `json:"similar_files"`
	RecommendedPattern string            `json:"recommended_pattern,omitempty"`
}

type namingConvention struct {
	Pattern    string   `json:"pattern"`
	Confidence float64  `json:"confidence"`
	Examples   []string `json:"examples,omitempty"`
}

type importStyle struct {
	ModuleSystem string `json:"module_system"`
	PathStyle    string `json:"path_style"`
	IndexExports bool   `json:"index_exports"`
}

type modifyContext struct {
	Operation     string          `json:"operation"`
	File          string          `json:"file"`
	Importers     []string        `json:"importers"`
	ImporterCount int             `json:"importer_count"`
	Constraints   *fileConstraint `json:"constraints,omitempty"`
	Symbols       []string        `json:"symbols"`
	Domain        string          `json:"domain,omitempty"`
}

type fileConstraint struct {
	Level  string `json:"level"`
	Reason string `json:"reason,omitempty"`
}

type debugContext struct {
	Operation    string        `json:"operation"`
	Target       string        `json:"target"`
	File         string        `json:"file"`
	RelatedFiles []string      `json:"related_files"`
	Symbols      []debugSymbol `json:"symbols"`
	Hotpaths     []string      `json:"hotpaths"`
}

type debugSymbol struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Purpose string `json:"purpose,omitempty"`
}

type exploreContext struct {
	Operation    string          `json:"operation"`
	DomainFilter string          `json:"domain_filter,omitempty"`
	Stats        exploreStats    `json:"stats"`
	Domains      []exploreDomain `json:"domains"`
	KeyFiles     []string        `json:"key_files"`
}

type exploreStats struct {
	Files              int     `json:"files"`
	Symbols            int     `json:"symbols"`
	Lines              int     `json:"lines"`
	PrimaryLanguage    string  `json:"primary_language,omitempty"`
	AnnotationCoverage float64 `json:"annotation_coverage"`
}

type exploreDomain struct {
	Name        string `json:"name"`
	FileCount   int    `json:"file_count"`
	SymbolCount int    `json:"symbol_count"`
	Description string `json:"description,omitempty"`
}

// buildCreateContext assembles naming conventions, import style and
// sibling files for creating a new file in the directory.
func buildCreateContext(cache *acp.Cache, directory string) createContext {
	naming := findNamingConvention(cache, directory)

	out := createContext{
		Operation:    "create",
		Directory:    directory,
		Language:     detectDirectoryLanguage(cache, directory),
		SimilarFiles: siblingFiles(cache, directory, 5),
	}

	if naming != nil {
		out.NamingConvention = &namingConvention{
			Pattern:    naming.Pattern,
			Confidence: naming.Confidence,
			Examples:   naming.Examples,
		}
		out.RecommendedPattern = naming.Pattern
	}

	if imp := cache.Conventions.Imports; imp != nil {
		style := importStyle{
			ModuleSystem: imp.ModuleSystem,
			PathStyle:    imp.PathStyle,
			IndexExports: imp.IndexExports,
		}
		if style.ModuleSystem == "" {
			style.ModuleSystem = "esm"
		}
		if style.PathStyle == "" {
			style.PathStyle = "relative"
		}
		out.ImportStyle = &style
	}

	return out
}

// buildModifyContext reports who imports the file, its constraint
// level, its exports and its domain membership.
func buildModifyContext(cache *acp.Cache, file string) modifyContext {
	out := modifyContext{
		Operation: "modify",
		File:      file,
		Importers: []string{},
		Symbols:   []string{},
	}

	if entry, ok := cache.GetFile(file); ok {
		out.Importers = append(out.Importers, entry.ImportedBy...)
		out.Symbols = append(out.Symbols, entry.Exports...)
	}
	out.ImporterCount = len(out.Importers)

	if cache.Constraints != nil {
		if fc, ok := cache.Constraints.ByFile[file]; ok && fc.Mutation != nil {
			out.Constraints = &fileConstraint{
				Level:  string(fc.Mutation.Level),
				Reason: fc.Mutation.Reason,
			}
		}
	}

	out.Domain = domainOf(cache, file)
	return out
}

// buildDebugContext resolves the target as a file first, then as a
// symbol, and collects the surrounding code to look at.
func buildDebugContext(cache *acp.Cache, target string) (debugContext, error) {
	out := debugContext{
		Operation:    "debug",
		Target:       target,
		RelatedFiles: []string{},
		Symbols:      []debugSymbol{},
		Hotpaths:     []string{},
	}

	if entry, ok := cache.GetFile(target); ok {
		out.File = target
		for _, name := range entry.Exports {
			if sym, found := cache.Symbols[name]; found {
				out.Symbols = append(out.Symbols, debugSymbol{
					Name:    sym.Name,
					Kind:    sym.Kind,
					Purpose: sym.Purpose,
				})
			}
		}
	} else if sym, ok := cache.Symbols[target]; ok {
		out.File = sym.File
		out.Symbols = append(out.Symbols, debugSymbol{
			Name:    sym.Name,
			Kind:    sym.Kind,
			Purpose: sym.Purpose,
		})
	} else {
		return out, errors.WithFields(
			errors.New(errors.ResourceNotFound, "target is neither a file nor a symbol"),
			errors.Fields{"target": target})
	}

	if entry, ok := cache.GetFile(out.File); ok {
		out.RelatedFiles = append(out.RelatedFiles, entry.Imports...)
	}

	out.Hotpaths = hotpathsNear(cache, target, out.File, 5)
	return out, nil
}

// buildExploreContext summarizes the project: stats, domains
// (optionally filtered by substring) and the most imported files.
func buildExploreContext(cache *acp.Cache, domainFilter string) exploreContext {
	out := exploreContext{
		Operation:    "explore",
		DomainFilter: domainFilter,
		Stats: exploreStats{
			Files:              cache.Stats.Files,
			Symbols:            cache.Stats.Symbols,
			Lines:              cache.Stats.Lines,
			PrimaryLanguage:    cache.Stats.PrimaryLanguage,
			AnnotationCoverage: cache.Stats.AnnotationCoverage,
		},
		Domains:  []exploreDomain{},
		KeyFiles: []string{},
	}

	names := make([]string, 0, len(cache.Domains))
	for name := range cache.Domains {
		if domainFilter == "" || strings.Contains(name, domainFilter) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		d := cache.Domains[name]
		out.Domains = append(out.Domains, exploreDomain{
			Name:        name,
			FileCount:   len(d.Files),
			SymbolCount: len(d.Symbols),
			Description: d.Description,
		})
	}

	out.KeyFiles = mostImportedFiles(cache, 10)
	return out
}

// findNamingConvention prefers an exact directory match, then the
// longest prefix match.
func findNamingConvention(cache *acp.Cache, directory string) *acp.NamingConvention {
	var best *acp.NamingConvention
	for i := range cache.Conventions.FileNaming {
		n := &cache.Conventions.FileNaming[i]
		if n.Directory == directory {
			return n
		}
		if strings.HasPrefix(directory, n.Directory) {
			if best == nil || len(n.Directory) > len(best.Directory) {
				best = n
			}
		}
	}
	return best
}

// detectDirectoryLanguage returns the most common language among
// files under the directory. Ties break alphabetically.
func detectDirectoryLanguage(cache *acp.Cache, directory string) string {
	counts := make(map[string]int)
	for p, f := range cache.Files {
		parent := path.Dir(p)
		if parent == directory || strings.HasPrefix(parent, directory+"/") {
			counts[f.Language]++
		}
	}

	best := ""
	for lang, n := range counts {
		if best == "" || n > counts[best] || (n == counts[best] && lang < best) {
			best = lang
		}
	}
	return best
}

// siblingFiles lists files directly inside the directory, sorted,
// capped at limit.
func siblingFiles(cache *acp.Cache, directory string, limit int) []string {
	siblings := []string{}
	for p := range cache.Files {
		if path.Dir(p) == directory {
			siblings = append(siblings, p)
		}
	}
	sort.Strings(siblings)
	if len(siblings) > limit {
		siblings = siblings[:limit]
	}
	return siblings
}

// domainOf finds the domain containing the file. Domains are scanned
// in name order so overlapping memberships resolve the same way every
// time.
func domainOf(cache *acp.Cache, file string) string {
	names := make([]string, 0, len(cache.Domains))
	for name := range cache.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, f := range cache.Domains[name].Files {
			if f == file {
				return name
			}
		}
	}
	return ""
}

// hotpathsNear returns heavily-called symbols (3+ callers) that are
// the target itself or appear in the file path, capped at limit.
func hotpathsNear(cache *acp.Cache, target, file string, limit int) []string {
	if cache.Graph == nil {
		return []string{}
	}

	names := make([]string, 0, len(cache.Graph.Reverse))
	for name := range cache.Graph.Reverse {
		names = append(names, name)
	}
	sort.Strings(names)

	out := []string{}
	for _, name := range names {
		if len(out) >= limit {
			break
		}
		if len(cache.Graph.Reverse[name]) < 3 {
			continue
		}
		if name == target || strings.Contains(file, name) {
			out = append(out, name)
		}
	}
	return out
}

// mostImportedFiles ranks files by importer count descending, ties by
// path, capped at limit.
func mostImportedFiles(cache *acp.Cache, limit int) []string {
	type ranked struct {
		path string
		n    int
	}

	files := make([]ranked, 0, len(cache.Files))
	for p, f := range cache.Files {
		files = append(files, ranked{path: p, n: len(f.ImportedBy)})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].n != files[j].n {
			return files[i].n > files[j].n
		}
		return files[i].path < files[j].path
	})

	out := []string{}
	for i, f := range files {
		if i >= limit {
			break
		}
		out = append(out, f.path)
	}
	return out
}
