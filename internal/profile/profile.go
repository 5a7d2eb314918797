// Package profile loads the catalog of named bank profiles from YAML.
package profile

import (
	"fmt"
	"os"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"gopkg.in/yaml.v3"
)

// Catalog is the top-level YAML structure of a profiles file.
type Catalog struct {
	Profiles []domain.BankProfile `yaml:"profiles"`
}

// LoadCatalog parses YAML profile data. Every profile is validated up
// front: a profile with no amount mode or an unknown date format must fail
// here, before any row is processed, because proceeding would silently
// reject every row for a reason the user cannot diagnose from a rejection
// count alone.
func LoadCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML profiles (check syntax, indentation, and field names): %w", err)
	}

	seen := make(map[string]struct{}, len(catalog.Profiles))
	for i, p := range catalog.Profiles {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("profile %d: name cannot be empty", i)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("profile %d (%s): duplicate profile name", i, p.Name)
		}
		seen[p.Name] = struct{}{}

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d (%s): %w", i, p.Name, err)
		}
	}

	return &catalog, nil
}

// LoadCatalogFromFile loads profiles from a filesystem path.
func LoadCatalogFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}
	catalog, err := LoadCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %q: %w", path, err)
	}
	return catalog, nil
}

// Find returns the profile with the given name.
func (c *Catalog) Find(name string) (domain.BankProfile, error) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.BankProfile{}, fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.Names(), ", "))
}

// Names returns the profile names in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Profiles))
	for i, p := range c.Profiles {
		names[i] = p.Name
	}
	return names
}
