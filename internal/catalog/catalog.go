// Package catalog holds the static building template catalog. Templates are
// loaded once at startup from an embedded YAML file and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Template is an immutable catalog entry describing a buildable structure.
type Template struct {
	ID                string         `yaml:"id" json:"id"`
	Name              string         `yaml:"name" json:"name"`
	Tier              int            `yaml:"tier" json:"tier"`
	Category          string         `yaml:"category" json:"category"`
	RequiredResources map[string]int `yaml:"required_resources" json:"requiredResources"`
	BuildTimeSeconds  int            `yaml:"build_time_seconds" json:"buildTimeSeconds"`
	MaxPerTerritory   int            `yaml:"max_per_territory" json:"maxPerTerritory"`
	MaxLevel          int            `yaml:"max_level" json:"maxLevel"`
}

var validCategories = map[string]bool{
	"survival":   true,
	"storage":    true,
	"production": true,
	"energy":     true,
}

// Catalog is the loaded template set, keyed by template ID.
type Catalog struct {
	byID map[string]Template
	ids  []string
}

// Load parses and validates the embedded template catalog.
func Load() (*Catalog, error) {
	return parse(templatesYAML)
}

func parse(data []byte) (*Catalog, error) {
	var raw struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing template catalog: %w", err)
	}
	if len(raw.Templates) == 0 {
		return nil, fmt.Errorf("template catalog is empty")
	}

	c := &Catalog{byID: make(map[string]Template, len(raw.Templates))}
	for _, t := range raw.Templates {
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.ID, err)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		c.byID[t.ID] = t
		c.ids = append(c.ids, t.ID)
	}
	sort.Strings(c.ids)
	return c, nil
}

func validate(t Template) error {
	switch {
	case t.ID == "":
		return fmt.Errorf("missing id")
	case t.Name == "":
		return fmt.Errorf("missing name")
	case t.Tier < 1 || t.Tier > 3:
		return fmt.Errorf("tier %d out of range 1..3", t.Tier)
	case !validCategories[t.Category]:
		return fmt.Errorf("unknown category %q", t.Category)
	case t.BuildTimeSeconds < 0:
		return fmt.Errorf("negative build time")
	case t.MaxPerTerritory < 1:
		return fmt.Errorf("max_per_territory must be at least 1")
	case t.MaxLevel < 1:
		return fmt.Errorf("max_level must be at least 1")
	}
	for name, qty := range t.RequiredResources {
		if name == "" || qty < 0 {
			return fmt.Errorf("bad resource requirement %q: %d", name, qty)
		}
	}
	return nil
}

// Get returns the template with the given ID.
func (c *Catalog) Get(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// List returns all templates in ID order.
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.byID[id])
	}
	return out
}
