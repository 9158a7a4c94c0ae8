package primer

import (
	"math"
	"strconv"
	"strings"
)

// conditionEpsilon absorbs floating-point noise in == and != checks.
const conditionEpsilon = 0.001

// Operators are tried in this exact order so ">=" is never mis-read
// as ">" followed by a stray "=".
var conditionOps = []string{">=", "<=", ">", "<", "==", "!="}

// EvaluateCondition evaluates a "path op number" expression against
// the state snapshot. A bare path is a truthy check (value > 0). An
// unresolvable path or unparsable literal makes the condition false,
// never an error.
func EvaluateCondition(condition string, state *ProjectState) bool {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return false
	}

	for _, op := range conditionOps {
		idx := strings.Index(condition, op)
		if idx < 0 {
			continue
		}

		path := strings.TrimSpace(condition[:idx])
		literal := strings.TrimSpace(condition[idx+len(op):])

		actual, ok := state.Lookup(path)
		if !ok {
			return false
		}

		expected, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return false
		}

		switch op {
		case ">=":
			return actual >= expected
		case "<=":
			return actual <= expected
		case ">":
			return actual > expected
		case "<":
			return actual < expected
		case "==":
			return math.Abs(actual-expected) < conditionEpsilon
		case "!=":
			return math.Abs(actual-expected) >= conditionEpsilon
		}
	}

	value, ok := state.Lookup(condition)
	return ok && value > 0
}

// ScoredSection is a catalog section plus everything the selector
// needs: adjusted value, weighted score, resolved token cost,
// value-per-token and the conditionally-required flag.
type ScoredSection struct {
	Section               *Section
	AdjustedValue         Value
	WeightedScore         float64
	ValuePerToken         float64
	Tokens                int
	ConditionallyRequired bool
}

// ScoreSections scores every section against the state snapshot.
func ScoreSections(sections []Section, state *ProjectState, weights DimensionWeights, modifiersEnabled bool) []ScoredSection {
	scored := make([]ScoredSection, 0, len(sections))
	for i := range sections {
		scored = append(scored, ScoreSection(&sections[i], state, weights, modifiersEnabled))
	}
	return scored
}

// ScoreSection scores a single section. It is pure: identical inputs
// always produce the identical result, and the section is not
// mutated.
func ScoreSection(section *Section, state *ProjectState, weights DimensionWeights, modifiersEnabled bool) ScoredSection {
	adjusted := section.Value

	if modifiersEnabled {
		for i := range section.Value.Modifiers {
			m := &section.Value.Modifiers[i]
			if EvaluateCondition(m.Condition, state) {
				adjusted = applyModifier(adjusted, m)
			}
		}
	}

	weightedScore := adjusted.WeightedScore(weights)
	tokens := resolveTokenCost(section, state)

	valuePerToken := 0.0
	if tokens > 0 {
		valuePerToken = weightedScore / float64(tokens)
	}

	conditionallyRequired := section.RequiredIf != "" &&
		EvaluateCondition(section.RequiredIf, state)

	return ScoredSection{
		Section:               section,
		AdjustedValue:         adjusted,
		WeightedScore:         weightedScore,
		ValuePerToken:         valuePerToken,
		Tokens:                tokens,
		ConditionallyRequired: conditionallyRequired,
	}
}

// applyModifier returns a new Value with the modifier applied to the
// selected dimension(s), add then multiply then set. Only the add step
// clamps (to [0, 200]); consumers treat values above 100 as boosted
// scores, not errors.
func applyModifier(v Value, m *Modifier) Value {
	apply := func(dim int) int {
		if m.Add != nil {
			dim += *m.Add
			if dim < 0 {
				dim = 0
			}
			if dim > 200 {
				dim = 200
			}
		}
		if m.Multiply != nil {
			dim = int(float64(dim) * *m.Multiply)
		}
		if m.Set != nil {
			dim = *m.Set
		}
		return dim
	}

	switch m.Dimension {
	case DimensionSafety:
		v.Safety = apply(v.Safety)
	case DimensionEfficiency:
		v.Efficiency = apply(v.Efficiency)
	case DimensionAccuracy:
		v.Accuracy = apply(v.Accuracy)
	case DimensionBase:
		v.Base = apply(v.Base)
	default: // DimensionAll or unset
		v.Safety = apply(v.Safety)
		v.Efficiency = apply(v.Efficiency)
		v.Accuracy = apply(v.Accuracy)
		v.Base = apply(v.Base)
	}
	return v
}

const (
	// dynamicBaseTokens covers a dynamic section's header/footer.
	dynamicBaseTokens = 15
	// defaultItemTokens is the per-item estimate when the catalog
	// does not declare one.
	defaultItemTokens = 10
	// defaultDynamicTokens is the estimate for a dynamic section
	// with no data binding at all.
	defaultDynamicTokens = 30
	// defaultSourceItems is the item estimate for unknown sources.
	defaultSourceItems = 5
)

// sourceItemCount maps known data source names to their snapshot
// counters for token estimation.
func sourceItemCount(source string, state *ProjectState) int {
	switch source {
	case "cache.domains":
		return state.Domains.Count
	case "cache.layers":
		return state.Layers.Count
	case "cache.constraints.by_lock_level":
		return state.Constraints.ProtectedCount
	case "vars.variables":
		return state.Variables.Count
	case "attempts.active":
		return state.Attempts.ActiveCount
	case "cache.hacks":
		return state.Hacks.Count
	case "cache.entryPoints":
		return state.EntryPoints.Count
	default:
		return defaultSourceItems
	}
}

// resolveTokenCost returns a section's token cost, estimating dynamic
// sections from their data source.
func resolveTokenCost(section *Section, state *ProjectState) int {
	if !section.Tokens.Dynamic {
		return section.Tokens.Fixed
	}

	data := section.Data
	if data == nil {
		return defaultDynamicTokens
	}

	itemCount := sourceItemCount(data.Source, state)
	if data.MaxItems > 0 && itemCount > data.MaxItems {
		itemCount = data.MaxItems
	}

	itemTokens := data.ItemTokens
	if itemTokens == 0 {
		itemTokens = defaultItemTokens
	}

	return dynamicBaseTokens + itemCount*itemTokens
}
