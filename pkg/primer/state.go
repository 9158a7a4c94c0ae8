package primer

import (
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
)

// ProjectState is the flat, numeric snapshot of project state that
// conditions and dynamic token estimates are evaluated against. It is
// derived once per request and read-only afterwards.
type ProjectState struct {
	Constraints ConstraintCounts `json:"constraints"`
	Domains     DomainCounts     `json:"domains"`
	Layers      LayerCounts      `json:"layers"`
	Variables   VariableCounts   `json:"variables"`
	Attempts    AttemptCounts    `json:"attempts"`
	Hacks       HackCounts       `json:"hacks"`
	EntryPoints EntryPointCounts `json:"entryPoints"`
	Stats       StatCounts       `json:"stats"`

	// doc is the snapshot serialized once for dotted-path lookups.
	doc gjson.Result
}

type ConstraintCounts struct {
	FrozenCount        int `json:"frozenCount"`
	RestrictedCount    int `json:"restrictedCount"`
	ApprovalCount      int `json:"approvalCount"`
	TestsRequiredCount int `json:"testsRequiredCount"`
	DocsRequiredCount  int `json:"docsRequiredCount"`
	ProtectedCount     int `json:"protectedCount"`
	TotalCount         int `json:"totalCount"`
}

type DomainCounts struct {
	Count int      `json:"count"`
	Names []string `json:"-"`
}

type LayerCounts struct {
	Count int      `json:"count"`
	Names []string `json:"-"`
}

type VariableCounts struct {
	Count int `json:"count"`
}

type AttemptCounts struct {
	ActiveCount int `json:"activeCount"`
	TotalCount  int `json:"totalCount"`
}

type HackCounts struct {
	Count        int `json:"count"`
	ExpiredCount int `json:"expiredCount"`
}

type EntryPointCounts struct {
	Count int `json:"count"`
}

type StatCounts struct {
	FileCount          int     `json:"fileCount"`
	SymbolCount        int     `json:"symbolCount"`
	LineCount          int     `json:"lineCount"`
	AnnotationCoverage float64 `json:"annotationCoverage"`
}

// ExtractState derives the snapshot from a loaded project. Vars and
// attempts may be nil; their counters stay zero.
func ExtractState(project *acp.Project) *ProjectState {
	state := &ProjectState{
		Constraints: extractConstraints(project.Cache),
		Domains:     extractDomains(project.Cache),
		Layers:      extractLayers(project.Cache),
		Hacks:       extractHacks(project.Cache),
		EntryPoints: EntryPointCounts{Count: len(project.Cache.EntryPoints(0))},
		Stats: StatCounts{
			FileCount:          len(project.Cache.Files),
			SymbolCount:        len(project.Cache.Symbols),
			LineCount:          project.Cache.Stats.Lines,
			AnnotationCoverage: project.Cache.Stats.AnnotationCoverage,
		},
	}

	if project.Vars != nil {
		state.Variables.Count = len(project.Vars.Variables)
	}
	if project.Attempts != nil {
		state.Attempts.ActiveCount = project.Attempts.ActiveCount()
		state.Attempts.TotalCount = len(project.Attempts.Attempts)
	}

	state.index()
	return state
}

// NewState builds a snapshot directly from counter groups, for tests
// and callers that already hold the numbers.
func NewState(constraints ConstraintCounts, domains DomainCounts, layers LayerCounts) *ProjectState {
	state := &ProjectState{
		Constraints: constraints,
		Domains:     domains,
		Layers:      layers,
	}
	state.index()
	return state
}

// index serializes the snapshot so dotted paths resolve over it.
func (s *ProjectState) index() {
	data, err := json.Marshal(s)
	if err != nil {
		// All fields are plain numbers; marshal cannot fail. Keep
		// the zero doc so lookups report unknown.
		return
	}
	s.doc = gjson.ParseBytes(data)
}

// Lookup resolves a dotted path like "constraints.frozenCount" to a
// numeric value. The second return is false for unknown paths and for
// values that are not numbers.
func (s *ProjectState) Lookup(path string) (float64, bool) {
	result := s.doc.Get(path)
	if !result.Exists() || result.Type != gjson.Number {
		return 0, false
	}
	return result.Num, true
}

func extractConstraints(cache *acp.Cache) ConstraintCounts {
	var counts ConstraintCounts
	if cache.Constraints == nil {
		return counts
	}

	for _, fc := range cache.Constraints.ByFile {
		counts.TotalCount++
		if fc.Mutation == nil {
			continue
		}
		switch fc.Mutation.Level {
		case acp.LockFrozen:
			counts.FrozenCount++
			counts.ProtectedCount++
		case acp.LockRestricted:
			counts.RestrictedCount++
			counts.ProtectedCount++
		case acp.LockApprovalRequired:
			counts.ApprovalCount++
		case acp.LockTestsRequired:
			counts.TestsRequiredCount++
		case acp.LockDocsRequired:
			counts.DocsRequiredCount++
		}
	}
	return counts
}

func extractDomains(cache *acp.Cache) DomainCounts {
	names := make([]string, 0, len(cache.Domains))
	for name := range cache.Domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return DomainCounts{Count: len(names), Names: names}
}

func extractLayers(cache *acp.Cache) LayerCounts {
	byLayer := cache.LayerCounts()
	names := make([]string, 0, len(byLayer))
	for name := range byLayer {
		names = append(names, name)
	}
	sort.Strings(names)
	return LayerCounts{Count: len(names), Names: names}
}

func extractHacks(cache *acp.Cache) HackCounts {
	counts := HackCounts{Count: len(cache.Hacks)}
	for _, h := range cache.Hacks {
		if h.Expired {
			counts.ExpiredCount++
		}
	}
	return counts
}
