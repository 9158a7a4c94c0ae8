package primer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/acp-protocol/acp-mcp/pkg/acp"
	"github.com/acp-protocol/acp-mcp/pkg/errors"
)

// dataItem is one row extracted from a cache data source, keyed by
// field name for template substitution.
type dataItem map[string]interface{}

// Renderer turns selected sections into a document in one output
// format. A renderer is cheap to construct and good for one request.
type Renderer struct {
	format OutputFormat
	cache  *acp.Cache
}

// NewRenderer creates a renderer for the format over the cache.
func NewRenderer(format OutputFormat, cache *acp.Cache) *Renderer {
	return &Renderer{format: format, cache: cache}
}

// Render produces the final document. Sections that fail to render
// contribute nothing; one broken section never blanks the document.
func (r *Renderer) Render(selected []SelectedSection) string {
	separator := "\n\n"
	switch r.format {
	case FormatCompact:
		separator = " | "
	case FormatJSON:
		separator = ",\n"
	}

	var rendered []string
	for _, s := range selected {
		text, err := r.RenderSection(s.Section)
		if err != nil || text == "" {
			continue
		}
		rendered = append(rendered, text)
	}

	body := strings.Join(rendered, separator)
	if r.format == FormatJSON {
		return fmt.Sprintf("[\n%s\n]", body)
	}
	return body
}

// RenderSection renders one section. A missing template for the
// active format or an empty-data "error" policy produce an error the
// caller is expected to swallow for that section only.
func (r *Renderer) RenderSection(section *Section) (string, error) {
	template := section.Formats.Get(r.format)
	if template == nil {
		return "", errors.WithFields(
			errors.New(errors.MissingTemplate, "no template for format"),
			errors.Fields{"section_id": section.ID, "format": r.format.String()})
	}

	if section.Data != nil {
		return r.renderDataSection(section, template)
	}
	return template.Template, nil
}

// renderDataSection renders a data-bound section: extract, sort, cap,
// then substitute each item through the item template.
func (r *Renderer) renderDataSection(section *Section, template *FormatTemplate) (string, error) {
	data := section.Data
	items := r.extractData(data)

	if len(items) == 0 {
		switch data.EmptyBehavior {
		case EmptyPlaceholder:
			return template.EmptyTemplate, nil
		case EmptyError:
			return "", errors.WithFields(
				errors.New(errors.EmptyData, "data source yielded no items"),
				errors.Fields{"section_id": section.ID, "source": data.Source})
		default: // EmptyExclude
			return "", nil
		}
	}

	separator := template.Separator
	if separator == "" {
		separator = "\n"
	}

	var renderedItems []string
	if template.ItemTemplate != "" {
		renderedItems = make([]string, 0, len(items))
		for _, item := range items {
			renderedItems = append(renderedItems, substitute(template.ItemTemplate, item))
		}
	}

	var b strings.Builder
	b.WriteString(template.Header)
	b.WriteString(strings.Join(renderedItems, separator))
	b.WriteString(template.Footer)
	return b.String(), nil
}

var fieldPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// substitute replaces {{field}} placeholders with item values,
// unescaped. Unknown fields substitute to the empty string.
func substitute(template string, item dataItem) string {
	return fieldPattern.ReplaceAllStringFunc(template, func(match string) string {
		field := fieldPattern.FindStringSubmatch(match)[1]
		value, ok := item[field]
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

// extractData pulls items for the section's source from the cache,
// applies the declared sort and the max-item cap. Unknown sources
// yield an empty list.
func (r *Renderer) extractData(data *SectionData) []dataItem {
	var items []dataItem
	switch data.Source {
	case "cache.domains":
		items = r.extractDomains()
	case "cache.constraints.by_lock_level":
		items = r.extractConstraints(data.Filter)
	case "cache.layers":
		items = r.extractLayers()
	case "cache.entryPoints":
		items = r.extractEntryPoints()
	}

	if data.SortBy != "" {
		sortItems(items, data.SortBy, data.SortOrder)
	}

	if data.MaxItems > 0 && len(items) > data.MaxItems {
		items = items[:data.MaxItems]
	}

	return items
}

// sortItems orders items by a named field: numeric comparison when
// both values are numbers, string comparison when both are strings,
// anything else ties. Ties keep their prior order.
func sortItems(items []dataItem, field string, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		less, comparable := compareField(items[i][field], items[j][field])
		if !comparable {
			return false
		}
		if order == SortAsc {
			return less
		}
		return !less
	})
}

func compareField(a, b interface{}) (less, comparable bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		if af == bf {
			return false, false
		}
		return af < bf, true
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		if as == bs {
			return false, false
		}
		return as < bs, true
	}

	return false, false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (r *Renderer) extractDomains() []dataItem {
	names := make([]string, 0, len(r.cache.Domains))
	for name := range r.cache.Domains {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]dataItem, 0, len(names))
	for _, name := range names {
		domain := r.cache.Domains[name]
		item := dataItem{
			"name":      name,
			"fileCount": len(domain.Files),
		}
		if domain.Description != "" {
			item["description"] = domain.Description
		}
		items = append(items, item)
	}
	return items
}

// extractConstraints lists files whose mutation lock matches the
// filter. An empty filter means frozen and restricted.
func (r *Renderer) extractConstraints(filter []string) []dataItem {
	if r.cache.Constraints == nil {
		return nil
	}

	levels := filter
	if len(levels) == 0 {
		levels = []string{string(acp.LockFrozen), string(acp.LockRestricted)}
	}

	paths := make([]string, 0, len(r.cache.Constraints.ByFile))
	for path := range r.cache.Constraints.ByFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var items []dataItem
	for _, path := range paths {
		fc := r.cache.Constraints.ByFile[path]
		if fc.Mutation == nil {
			continue
		}
		match := false
		for _, level := range levels {
			if string(fc.Mutation.Level) == level {
				match = true
				break
			}
		}
		if !match {
			continue
		}

		item := dataItem{
			"path":  path,
			"level": string(fc.Mutation.Level),
		}
		if fc.Mutation.Reason != "" {
			item["reason"] = fc.Mutation.Reason
		}
		items = append(items, item)
	}
	return items
}

func (r *Renderer) extractLayers() []dataItem {
	counts := r.cache.LayerCounts()

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]dataItem, 0, len(names))
	for _, name := range names {
		items = append(items, dataItem{
			"name":      name,
			"fileCount": counts[name],
		})
	}
	return items
}

func (r *Renderer) extractEntryPoints() []dataItem {
	// Collect everything before capping so the pick is stable.
	entries := r.cache.EntryPoints(0)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}

	items := make([]dataItem, 0, len(entries))
	for _, f := range entries {
		items = append(items, dataItem{
			"path":     f.Path,
			"language": f.Language,
		})
	}
	return items
}
