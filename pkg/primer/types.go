// Package primer implements token-budgeted context primer generation:
// multi-dimensional value scoring of catalog sections, condition
// evaluation against project state, phase-based selection under a
// budget, and deterministic rendering into one of three formats.
package primer

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects the rendering style of a generated primer.
type OutputFormat int

const (
	FormatMarkdown OutputFormat = iota
	FormatCompact
	FormatJSON
)

// ParseOutputFormat maps a request string to a format. Unrecognized
// values fall back to markdown.
func ParseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(s) {
	case "compact":
		return FormatCompact
	case "json":
		return FormatJSON
	default:
		return FormatMarkdown
	}
}

func (f OutputFormat) String() string {
	switch f {
	case FormatCompact:
		return "compact"
	case FormatJSON:
		return "json"
	default:
		return "markdown"
	}
}

// Preset names a weight configuration for the four value dimensions.
type Preset int

const (
	PresetBalanced Preset = iota
	PresetSafe
	PresetEfficient
	PresetAccurate
)

// ParsePreset maps a request string to a preset. Unrecognized values
// fall back to balanced.
func ParsePreset(s string) Preset {
	switch strings.ToLower(s) {
	case "safe":
		return PresetSafe
	case "efficient":
		return PresetEfficient
	case "accurate":
		return PresetAccurate
	default:
		return PresetBalanced
	}
}

func (p Preset) String() string {
	switch p {
	case PresetSafe:
		return "safe"
	case PresetEfficient:
		return "efficient"
	case PresetAccurate:
		return "accurate"
	default:
		return "balanced"
	}
}

// Weights returns the dimension weights for the preset.
func (p Preset) Weights() DimensionWeights {
	switch p {
	case PresetSafe:
		return DimensionWeights{Safety: 2.5, Efficiency: 0.8, Accuracy: 1.0, Base: 0.8}
	case PresetEfficient:
		return DimensionWeights{Safety: 1.2, Efficiency: 2.0, Accuracy: 0.9, Base: 0.8}
	case PresetAccurate:
		return DimensionWeights{Safety: 1.2, Efficiency: 0.9, Accuracy: 2.0, Base: 0.8}
	default:
		return DefaultWeights()
	}
}

// DimensionWeights combine the four value dimensions into one scalar.
type DimensionWeights struct {
	Safety     float64 `yaml:"safety" json:"safety"`
	Efficiency float64 `yaml:"efficiency" json:"efficiency"`
	Accuracy   float64 `yaml:"accuracy" json:"accuracy"`
	Base       float64 `yaml:"base" json:"base"`
}

// DefaultWeights are the balanced preset weights.
func DefaultWeights() DimensionWeights {
	return DimensionWeights{Safety: 1.5, Efficiency: 1.0, Accuracy: 1.0, Base: 1.0}
}

// Value is the multi-dimensional score of a section. Dimensions are
// declared in 0-100; modifier arithmetic may push them up to 200.
type Value struct {
	Safety     int        `yaml:"safety" json:"safety" validate:"min=0,max=100"`
	Efficiency int        `yaml:"efficiency" json:"efficiency" validate:"min=0,max=100"`
	Accuracy   int        `yaml:"accuracy" json:"accuracy" validate:"min=0,max=100"`
	Base       int        `yaml:"base" json:"base" validate:"min=0,max=100"`
	Modifiers  []Modifier `yaml:"modifiers,omitempty" json:"modifiers,omitempty" validate:"dive"`
}

// WeightedScore combines the dimensions under the given weights.
func (v Value) WeightedScore(w DimensionWeights) float64 {
	return float64(v.Safety)*w.Safety +
		float64(v.Efficiency)*w.Efficiency +
		float64(v.Accuracy)*w.Accuracy +
		float64(v.Base)*w.Base
}

// Dimension names a value axis a modifier applies to.
type Dimension string

const (
	DimensionSafety     Dimension = "safety"
	DimensionEfficiency Dimension = "efficiency"
	DimensionAccuracy   Dimension = "accuracy"
	DimensionBase       Dimension = "base"
	DimensionAll        Dimension = "all"
)

// Modifier conditionally adjusts a section's value based on project
// state. Operations apply in add, multiply, set order.
type Modifier struct {
	Condition string   `yaml:"condition" json:"condition" validate:"required"`
	Add       *int     `yaml:"add,omitempty" json:"add,omitempty"`
	Multiply  *float64 `yaml:"multiply,omitempty" json:"multiply,omitempty"`
	Set       *int     `yaml:"set,omitempty" json:"set,omitempty"`
	Dimension Dimension `yaml:"dimension,omitempty" json:"dimension,omitempty" validate:"omitempty,oneof=safety efficiency accuracy base all"`
	Reason    string   `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// TokenCost is either a fixed token count or "dynamic", in which case
// the cost is estimated from the section's bound data.
type TokenCost struct {
	Fixed   int
	Dynamic bool
}

// UnmarshalYAML accepts either an integer or the string "dynamic".
func (t *TokenCost) UnmarshalYAML(node *yaml.Node) error {
	var n int
	if err := node.Decode(&n); err == nil {
		if n < 0 {
			return fmt.Errorf("negative token cost: %d", n)
		}
		*t = TokenCost{Fixed: n}
		return nil
	}

	var s string
	if err := node.Decode(&s); err == nil {
		if s != "dynamic" {
			return fmt.Errorf("unknown token cost %q, want a number or \"dynamic\"", s)
		}
		*t = TokenCost{Dynamic: true}
		return nil
	}

	return fmt.Errorf("invalid token cost on line %d", node.Line)
}

// MarshalYAML renders the cost back to its catalog form.
func (t TokenCost) MarshalYAML() (interface{}, error) {
	if t.Dynamic {
		return "dynamic", nil
	}
	return t.Fixed, nil
}

// SortOrder controls data item ordering in rendered lists.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// EmptyBehavior controls what a data-bound section does when its data
// source yields no items.
type EmptyBehavior string

const (
	EmptyExclude     EmptyBehavior = "exclude"
	EmptyPlaceholder EmptyBehavior = "placeholder"
	EmptyError       EmptyBehavior = "error"
)

// SectionData binds a section to a named cache data source.
type SectionData struct {
	Source        string        `yaml:"source" json:"source" validate:"required"`
	Fields        []string      `yaml:"fields,omitempty" json:"fields,omitempty"`
	Filter        []string      `yaml:"filter,omitempty" json:"filter,omitempty"`
	SortBy        string        `yaml:"sort_by,omitempty" json:"sort_by,omitempty"`
	SortOrder     SortOrder     `yaml:"sort_order,omitempty" json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	MaxItems      int           `yaml:"max_items,omitempty" json:"max_items,omitempty" validate:"min=0"`
	ItemTokens    int           `yaml:"item_tokens,omitempty" json:"item_tokens,omitempty" validate:"min=0"`
	EmptyBehavior EmptyBehavior `yaml:"empty_behavior,omitempty" json:"empty_behavior,omitempty" validate:"omitempty,oneof=exclude placeholder error"`
}

// FormatTemplate holds the rendering templates for one output format.
// Static sections use Template; list sections use Header, ItemTemplate,
// Separator and Footer.
type FormatTemplate struct {
	Template      string `yaml:"template,omitempty" json:"template,omitempty"`
	Header        string `yaml:"header,omitempty" json:"header,omitempty"`
	Footer        string `yaml:"footer,omitempty" json:"footer,omitempty"`
	ItemTemplate  string `yaml:"item_template,omitempty" json:"item_template,omitempty"`
	Separator     string `yaml:"separator,omitempty" json:"separator,omitempty"`
	EmptyTemplate string `yaml:"empty_template,omitempty" json:"empty_template,omitempty"`
}

// SectionFormats maps output formats to their templates. A nil entry
// means the section is skipped for that format.
type SectionFormats struct {
	Markdown *FormatTemplate `yaml:"markdown,omitempty" json:"markdown,omitempty"`
	Compact  *FormatTemplate `yaml:"compact,omitempty" json:"compact,omitempty"`
	JSON     *FormatTemplate `yaml:"json,omitempty" json:"json,omitempty"`
}

// Get returns the template for the format, or nil when absent.
func (f SectionFormats) Get(format OutputFormat) *FormatTemplate {
	switch format {
	case FormatCompact:
		return f.Compact
	case FormatJSON:
		return f.JSON
	default:
		return f.Markdown
	}
}

// Section is one candidate unit of primer content. Sections are
// immutable once the catalog is loaded.
type Section struct {
	ID              string         `yaml:"id" json:"id" validate:"required"`
	Name            string         `yaml:"name,omitempty" json:"name,omitempty"`
	Description     string         `yaml:"description,omitempty" json:"description,omitempty"`
	Category        string         `yaml:"category" json:"category" validate:"required"`
	Priority        int            `yaml:"priority,omitempty" json:"priority,omitempty"`
	Tokens          TokenCost      `yaml:"tokens,omitempty" json:"tokens,omitempty"`
	Value           Value          `yaml:"value,omitempty" json:"value,omitempty"`
	Required        bool           `yaml:"required,omitempty" json:"required,omitempty"`
	RequiredIf      string         `yaml:"required_if,omitempty" json:"required_if,omitempty"`
	Capabilities    []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	CapabilitiesAll []string       `yaml:"capabilities_all,omitempty" json:"capabilities_all,omitempty"`
	DependsOn       []string       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	ConflictsWith   []string       `yaml:"conflicts_with,omitempty" json:"conflicts_with,omitempty"`
	Data            *SectionData   `yaml:"data,omitempty" json:"data,omitempty"`
	Formats         SectionFormats `yaml:"formats,omitempty" json:"formats,omitempty"`
	Tags            []string       `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Category describes a grouping of sections.
type Category struct {
	ID          string `yaml:"id" json:"id" validate:"required"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    int    `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// Capability describes an agent capability sections can require.
type Capability struct {
	ID          string   `yaml:"id" json:"id" validate:"required"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Tools       []string `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// Metadata carries informational fields about the catalog document.
type Metadata struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Author      string `yaml:"author,omitempty" json:"author,omitempty"`
	License     string `yaml:"license,omitempty" json:"license,omitempty"`
}

// SelectionStrategy is the catalog's declarative description of the
// selection algorithm. It is informational: the engine hard-codes the
// four-phase algorithm and only reads the weights and modifier switch.
type SelectionStrategy struct {
	Algorithm               string                      `yaml:"algorithm,omitempty" json:"algorithm,omitempty"`
	Weights                 *DimensionWeights           `yaml:"weights,omitempty" json:"weights,omitempty"`
	Presets                 map[string]DimensionWeights `yaml:"presets,omitempty" json:"presets,omitempty"`
	MinimumBudget           int                         `yaml:"minimum_budget,omitempty" json:"minimum_budget,omitempty"`
	DynamicModifiersEnabled *bool                       `yaml:"dynamic_modifiers_enabled,omitempty" json:"dynamic_modifiers_enabled,omitempty"`
}

// Catalog is the versioned section definitions document.
type Catalog struct {
	Schema            string                `yaml:"$schema,omitempty" json:"$schema,omitempty"`
	Version           string                `yaml:"version" json:"version" validate:"required"`
	Metadata          *Metadata             `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Capabilities      map[string]Capability `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Categories        []Category            `yaml:"categories,omitempty" json:"categories,omitempty" validate:"dive"`
	Sections          []Section             `yaml:"sections" json:"sections" validate:"required,min=1,dive"`
	SelectionStrategy *SelectionStrategy    `yaml:"selection_strategy,omitempty" json:"selection_strategy,omitempty"`
}

// ModifiersEnabled reports whether dynamic modifiers apply during
// scoring. Defaults to true when the catalog does not say.
func (c *Catalog) ModifiersEnabled() bool {
	if c.SelectionStrategy == nil || c.SelectionStrategy.DynamicModifiersEnabled == nil {
		return true
	}
	return *c.SelectionStrategy.DynamicModifiersEnabled
}

// Request carries the parameters of one primer generation.
type Request struct {
	TokenBudget  int
	Format       OutputFormat
	Preset       Preset
	Weights      *DimensionWeights // overrides Preset when set
	Capabilities []string
	Categories   []string // allow-list; nil means all
	Tags         []string // allow-list; nil means all
	ForceInclude []string
}

// DefaultRequest returns the standard generation parameters.
func DefaultRequest() Request {
	return Request{
		TokenBudget:  4000,
		Format:       FormatMarkdown,
		Preset:       PresetBalanced,
		Capabilities: []string{"shell", "file-read", "file-write"},
	}
}

// EffectiveWeights resolves the weight set for the request.
func (r Request) EffectiveWeights() DimensionWeights {
	if r.Weights != nil {
		return *r.Weights
	}
	return r.Preset.Weights()
}

// ReasonKind classifies why a section was selected.
type ReasonKind int

const (
	ReasonRequired ReasonKind = iota
	ReasonConditionallyRequired
	ReasonSafetyCritical
	ReasonValueOptimized
	ReasonForcedInclude
	ReasonDependency
)

// SelectionReason records the phase and trigger of an inclusion.
type SelectionReason struct {
	Kind ReasonKind
	// Detail holds the triggering condition for conditionally
	// required sections, or the requesting section id for
	// dependency inclusions.
	Detail string
}

func (r SelectionReason) String() string {
	switch r.Kind {
	case ReasonRequired:
		return "required"
	case ReasonConditionallyRequired:
		return fmt.Sprintf("conditionally-required(%s)", r.Detail)
	case ReasonSafetyCritical:
		return "safety-critical"
	case ReasonValueOptimized:
		return "value-optimized"
	case ReasonForcedInclude:
		return "forced"
	case ReasonDependency:
		return fmt.Sprintf("dependency-of(%s)", r.Detail)
	default:
		return "unknown"
	}
}

// SelectedSection is a section chosen by the selector, with the final
// score, resolved token cost and selection reason.
type SelectedSection struct {
	Section *Section
	Score   float64
	Tokens  int
	Reason  SelectionReason
}

// Result is the outcome of one primer generation.
type Result struct {
	Content       string
	Sections      []SelectedSection
	TokensUsed    int
	TokenBudget   int
	ExcludedCount int
}
