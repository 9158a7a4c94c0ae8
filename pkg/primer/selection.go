package primer

import (
	"slices"
	"sort"
)

// SelectionResult is the outcome of section selection.
type SelectionResult struct {
	// Selected sections in inclusion order.
	Selected []SelectedSection
	// TokensUsed is the cumulative cost of the selected sections.
	TokensUsed int
	// ExcludedCount is the number of eligible sections that were not
	// selected, for any reason: budget, conflicts, or not reached.
	ExcludedCount int
}

// safetyPhaseThreshold is the adjusted safety value at which a section
// qualifies for the safety-critical phase.
const safetyPhaseThreshold = 80

// safetyPhaseBudgetShare is the fraction of the remaining budget the
// safety-critical phase may spend. Computed once at phase entry, not
// per item.
const safetyPhaseBudgetShare = 0.4

// selector tracks the mutable bookkeeping of one selection run.
type selector struct {
	eligible   []*ScoredSection
	selected   []SelectedSection
	tokensUsed int
	budget     int
	included   map[string]bool
	excluded   map[string]bool
	// visiting guards the dependency walk against catalogs with
	// cyclic depends_on. Load-time validation rejects cycles, but
	// the selector is also callable with arbitrary sections.
	visiting map[string]bool
}

// SelectSections picks sections within the request's token budget.
//
// Phase 1: required and force-included sections
// Phase 2: conditionally required sections
// Phase 3: safety-critical sections, up to 40% of the remaining budget
// Phase 4: value-optimized fill, sorted by value per token
//
// A section skipped in one phase is never revisited; conflict
// exclusions are sticky for the whole run. Selection never fails: an
// impossible budget simply yields fewer sections.
func SelectSections(scored []ScoredSection, request Request) SelectionResult {
	s := &selector{
		budget:   request.TokenBudget,
		included: make(map[string]bool),
		excluded: make(map[string]bool),
		visiting: make(map[string]bool),
	}

	for i := range scored {
		sec := &scored[i]
		if isCapabilityCompatible(sec.Section, request.Capabilities) &&
			isCategoryCompatible(sec.Section, request.Categories) &&
			isTagCompatible(sec.Section, request.Tags) {
			s.eligible = append(s.eligible, sec)
		}
	}

	s.phaseRequired(request.ForceInclude)
	s.phaseConditionallyRequired()
	s.phaseSafetyCritical()
	s.phaseValueOptimized()

	return SelectionResult{
		Selected:      s.selected,
		TokensUsed:    s.tokensUsed,
		ExcludedCount: len(s.eligible) - len(s.selected),
	}
}

// phaseRequired includes required and force-included sections in
// catalog order, dependencies first.
func (s *selector) phaseRequired(forceInclude []string) {
	for _, sec := range s.eligible {
		forced := slices.Contains(forceInclude, sec.Section.ID)
		if !sec.Section.Required && !forced {
			continue
		}
		if !s.canInclude(sec.Section.ID) {
			continue
		}

		s.includeDependencies(sec)

		reason := SelectionReason{Kind: ReasonRequired}
		if forced {
			reason = SelectionReason{Kind: ReasonForcedInclude}
		}
		s.include(sec, reason)
	}
}

// phaseConditionallyRequired includes sections whose required_if
// condition held during scoring.
func (s *selector) phaseConditionallyRequired() {
	for _, sec := range s.eligible {
		if !sec.ConditionallyRequired || !s.canInclude(sec.Section.ID) {
			continue
		}

		s.includeDependencies(sec)

		detail := sec.Section.RequiredIf
		if detail == "" {
			detail = "condition met"
		}
		s.include(sec, SelectionReason{Kind: ReasonConditionallyRequired, Detail: detail})
	}
}

// phaseSafetyCritical includes high-safety sections, best first, up to
// a fixed share of the budget remaining at phase entry.
func (s *selector) phaseSafetyCritical() {
	safetyBudget := int(float64(s.budget-s.tokensUsed) * safetyPhaseBudgetShare)
	safetyTokens := 0

	var candidates []*ScoredSection
	for _, sec := range s.eligible {
		if sec.AdjustedValue.Safety >= safetyPhaseThreshold && s.canInclude(sec.Section.ID) {
			candidates = append(candidates, sec)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].AdjustedValue.Safety != candidates[j].AdjustedValue.Safety {
			return candidates[i].AdjustedValue.Safety > candidates[j].AdjustedValue.Safety
		}
		return candidates[i].WeightedScore > candidates[j].WeightedScore
	})

	for _, sec := range candidates {
		if safetyTokens >= safetyBudget {
			break
		}
		if !s.canInclude(sec.Section.ID) {
			continue
		}
		if s.tokensUsed+sec.Tokens > s.budget {
			continue
		}

		s.includeDependencies(sec)

		if s.include(sec, SelectionReason{Kind: ReasonSafetyCritical}) {
			safetyTokens += sec.Tokens
		}
	}
}

// phaseValueOptimized greedily fills the remaining budget by value
// per token.
func (s *selector) phaseValueOptimized() {
	var candidates []*ScoredSection
	for _, sec := range s.eligible {
		if s.canInclude(sec.Section.ID) {
			candidates = append(candidates, sec)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ValuePerToken > candidates[j].ValuePerToken
	})

	for _, sec := range candidates {
		if s.tokensUsed >= s.budget {
			break
		}
		if !s.canInclude(sec.Section.ID) {
			continue
		}
		if s.tokensUsed+sec.Tokens > s.budget {
			continue
		}

		s.includeDependencies(sec)
		s.include(sec, SelectionReason{Kind: ReasonValueOptimized})
	}
}

// canInclude reports whether the id is neither already included nor
// conflicted out.
func (s *selector) canInclude(id string) bool {
	return !s.included[id] && !s.excluded[id]
}

// include appends the section if it still fits the budget, and marks
// its conflicts as excluded for the rest of the run.
func (s *selector) include(sec *ScoredSection, reason SelectionReason) bool {
	if s.tokensUsed+sec.Tokens > s.budget {
		return false
	}

	s.selected = append(s.selected, SelectedSection{
		Section: sec.Section,
		Score:   sec.WeightedScore,
		Tokens:  sec.Tokens,
		Reason:  reason,
	})
	s.tokensUsed += sec.Tokens
	s.included[sec.Section.ID] = true
	for _, conflict := range sec.Section.ConflictsWith {
		s.excluded[conflict] = true
	}
	return true
}

// includeDependencies walks the section's depends_on chain depth
// first, including each dependency that fits the remaining budget.
// Cycles are broken by the included set: an id already included (or
// excluded) is never expanded again. A dependency that does not fit
// is skipped; the original section may then fail its own budget
// check, which also excludes it.
func (s *selector) includeDependencies(sec *ScoredSection) {
	s.visiting[sec.Section.ID] = true
	defer delete(s.visiting, sec.Section.ID)

	for _, depID := range sec.Section.DependsOn {
		if s.included[depID] || s.excluded[depID] || s.visiting[depID] {
			continue
		}

		dep := s.findEligible(depID)
		if dep == nil {
			continue
		}

		s.includeDependencies(dep)
		s.include(dep, SelectionReason{Kind: ReasonDependency, Detail: sec.Section.ID})
	}
}

func (s *selector) findEligible(id string) *ScoredSection {
	for _, sec := range s.eligible {
		if sec.Section.ID == id {
			return sec
		}
	}
	return nil
}

// isCapabilityCompatible checks a section's capability requirements
// against the available set. A non-empty all-of set takes precedence
// over the any-of set.
func isCapabilityCompatible(section *Section, available []string) bool {
	if len(section.CapabilitiesAll) > 0 {
		for _, c := range section.CapabilitiesAll {
			if !slices.Contains(available, c) {
				return false
			}
		}
		return true
	}

	if len(section.Capabilities) > 0 {
		for _, c := range section.Capabilities {
			if slices.Contains(available, c) {
				return true
			}
		}
		return false
	}

	return true
}

func isCategoryCompatible(section *Section, categories []string) bool {
	if categories == nil {
		return true
	}
	return slices.Contains(categories, section.Category)
}

func isTagCompatible(section *Section, tags []string) bool {
	if tags == nil {
		return true
	}
	for _, t := range section.Tags {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}
