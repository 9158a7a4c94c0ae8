package primer

import (
	_ "embed"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/acp-protocol/acp-mcp/pkg/errors"
)

// Embedded default section catalog. A project can override it with
// its own catalog file; the schema is the same.
//
//go:embed defaults.yaml
var defaultCatalogYAML []byte

var catalogValidator = validator.New()

// DefaultCatalog parses and validates the embedded catalog. An error
// here means the build itself shipped a broken catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalogFile reads a catalog document from disk. YAML and JSON
// are both accepted; JSON is a YAML subset.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.CatalogParseFailed, "failed to read catalog"),
			errors.Fields{"path": path})
	}
	return ParseCatalog(data)
}

// ParseCatalog parses, normalizes and validates a catalog document.
// Malformed definitions fail here, before the engine is constructed.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, errors.Wrap(err, errors.CatalogParseFailed, "failed to parse catalog")
	}

	normalizeCatalog(&catalog)

	if err := catalogValidator.Struct(&catalog); err != nil {
		return nil, errors.Wrap(err, errors.CatalogInvalid, "catalog failed validation")
	}
	if err := checkSections(&catalog); err != nil {
		return nil, err
	}

	return &catalog, nil
}

const (
	defaultSectionPriority = 50
	defaultBaseValue       = 50
	defaultFixedTokens     = 30
)

// normalizeCatalog applies schema defaults the decoder cannot express.
func normalizeCatalog(catalog *Catalog) {
	for i := range catalog.Sections {
		s := &catalog.Sections[i]
		if s.Priority == 0 {
			s.Priority = defaultSectionPriority
		}
		if !s.Tokens.Dynamic && s.Tokens.Fixed == 0 {
			s.Tokens.Fixed = defaultFixedTokens
		}
		// A fully omitted value block still carries baseline worth.
		if s.Value.Safety == 0 && s.Value.Efficiency == 0 &&
			s.Value.Accuracy == 0 && s.Value.Base == 0 && len(s.Value.Modifiers) == 0 {
			s.Value.Base = defaultBaseValue
		}
		if s.Name == "" {
			s.Name = s.ID
		}
	}
}

// checkSections rejects duplicate ids and depends_on cycles. A cyclic
// catalog is a configuration error surfaced at load, not a runtime
// hazard the selector has to survive.
func checkSections(catalog *Catalog) error {
	byID := make(map[string]*Section, len(catalog.Sections))
	for i := range catalog.Sections {
		s := &catalog.Sections[i]
		if _, dup := byID[s.ID]; dup {
			return errors.WithFields(
				errors.New(errors.CatalogInvalid, "duplicate section id"),
				errors.Fields{"section_id": s.ID})
		}
		byID[s.ID] = s
	}

	const (
		unvisited = iota
		visiting
		done
	)
	colors := make(map[string]int, len(byID))

	var visit func(id string) error
	visit = func(id string) error {
		switch colors[id] {
		case visiting:
			return errors.WithFields(
				errors.New(errors.CatalogInvalid, "dependency cycle in catalog"),
				errors.Fields{"section_id": id})
		case done:
			return nil
		}

		colors[id] = visiting
		if s, ok := byID[id]; ok {
			for _, dep := range s.DependsOn {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		colors[id] = done
		return nil
	}

	for id := range byID {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}
