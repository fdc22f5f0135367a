// Package catalog serves the brand → model → version vehicle hierarchy and
// the curated popular comparisons.
package catalog

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sportcar/internal/model"
)

// ErrNotFound is returned when a lookup path or id is not in the catalog.
var ErrNotFound = eris.New("catalog: vehicle not found")

// Catalog is the read-only vehicle source used by the comparator.
type Catalog interface {
	ListBrands() []string
	ListModels(brand string) []string
	ListVersions(brand, model string) []string
	Resolve(brand, model, version string) (model.Vehicle, error)
	Lookup(id string) (model.Vehicle, error)
	Popular() []Popular
	PopularByID(id string) (Popular, error)
}

// Popular is a curated, pre-selected comparison offered as a shortcut.
type Popular struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Vehicles    []model.Vehicle `json:"vehicles"`
	Popularity  int             `json:"popularity"` // percent
	Views       string          `json:"views"`
}

//go:embed catalog.yaml
var defaultDocument []byte

// Default returns the embedded reference catalog.
func Default() (*Static, error) {
	return Parse(defaultDocument)
}

// Load reads a YAML catalog from path. An empty path loads the embedded
// catalog.
func Load(path string) (*Static, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return Parse(data)
}

type document struct {
	Brands  []brandDoc   `yaml:"brands"`
	Popular []popularDoc `yaml:"popular"`
}

type brandDoc struct {
	Name   string     `yaml:"name"`
	Models []modelDoc `yaml:"models"`
}

type modelDoc struct {
	Name     string       `yaml:"name"`
	Versions []versionDoc `yaml:"versions"`
}

type versionDoc struct {
	Name  string `yaml:"name"`
	ID    string `yaml:"id"`
	Price int    `yaml:"price"`
	Power string `yaml:"power"`
	Image string `yaml:"image"`
}

type popularDoc struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Vehicles    []string `yaml:"vehicles"`
	Popularity  int      `yaml:"popularity"`
	Views       string   `yaml:"views"`
}

// Parse builds a Static catalog from a YAML document.
func Parse(data []byte) (*Static, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	return build(doc)
}
