package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sportcar/internal/model"
)

func newDefault(t *testing.T) *Static {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return c
}

func TestDefault_Hierarchy(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	assert.Equal(t, []string{"Porsche", "Ferrari", "Lamborghini", "McLaren", "BMW", "Mercedes-AMG"}, c.ListBrands())
	assert.Equal(t, []string{"911", "Cayenne"}, c.ListModels("Porsche"))
	assert.Equal(t, []string{"Turbo S", "Carrera S", "GT3"}, c.ListVersions("Porsche", "911"))
	assert.Equal(t, []string{"Standard", "Spider"}, c.ListVersions("McLaren", "720S"))
}

func TestDefault_UnknownParents(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	assert.Empty(t, c.ListModels("Bugatti"))
	assert.Empty(t, c.ListVersions("Porsche", "Taycan"))
	assert.Empty(t, c.ListVersions("Bugatti", "Chiron"))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	v, err := c.Resolve("Porsche", "911", "Turbo S")
	require.NoError(t, err)
	assert.Equal(t, model.Vehicle{
		ID:      "porsche-911-turbo-s",
		Brand:   "Porsche",
		Model:   "911",
		Version: "Turbo S",
		Name:    "Porsche 911 Turbo S",
		Price:   245000,
		Power:   650,
		Image:   "/placeholder.svg?height=200&width=300",
	}, v)

	roma, err := c.Resolve("Ferrari", "Roma", "")
	require.NoError(t, err)
	assert.Equal(t, "ferrari-roma", roma.ID)
	assert.Equal(t, "Ferrari Roma", roma.Name)
	assert.Equal(t, model.StandardVersion, roma.Version)
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	for _, path := range [][3]string{
		{"Bugatti", "Chiron", "Sport"},
		{"Porsche", "Taycan", "Turbo"},
		{"Porsche", "911", "Targa"},
	} {
		_, err := c.Resolve(path[0], path[1], path[2])
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound), "path %v", path)
	}
}

func TestResolve_ReturnsCopies(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	v, err := c.Resolve("BMW", "M3", "Competition")
	require.NoError(t, err)
	v.Price = 1

	again, err := c.Lookup("bmw-m3-competition")
	require.NoError(t, err)
	assert.Equal(t, 85000, again.Price)
}

func TestLookup(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	v, err := c.Lookup("lamborghini-huracan-evo")
	require.NoError(t, err)
	assert.Equal(t, "Huracán", v.Model)
	assert.Equal(t, 640, v.Power)

	_, err = c.Lookup("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPopular(t *testing.T) {
	t.Parallel()
	c := newDefault(t)

	pops := c.Popular()
	require.Len(t, pops, 4)
	assert.Equal(t, "porsche-vs-ferrari", pops[0].ID)
	assert.Equal(t, 95, pops[0].Popularity)
	require.Len(t, pops[0].Vehicles, 2)
	assert.Equal(t, "porsche-911-turbo-s", pops[0].Vehicles[0].ID)
	assert.Equal(t, "ferrari-f8-tributo", pops[0].Vehicles[1].ID)

	p, err := c.PopularByID("bmw-vs-mercedes")
	require.NoError(t, err)
	assert.Equal(t, "mercedes-amg-gt-63s", p.Vehicles[1].ID)

	_, err = c.PopularByID("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParse_DerivesIDs(t *testing.T) {
	t.Parallel()

	doc := `
brands:
  - name: Alpine
    models:
      - name: A110
        versions:
          - {name: Standard, price: 62000, power: 252ch}
          - {name: R, price: 105000, power: "300 ch"}
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	v, err := c.Resolve("Alpine", "A110", "R")
	require.NoError(t, err)
	assert.Equal(t, "alpine-a110-r", v.ID)
	assert.Equal(t, 300, v.Power)

	base, err := c.Lookup("alpine-a110")
	require.NoError(t, err)
	assert.Equal(t, "Alpine A110", base.Name)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "brands: ["},
		{"empty brand", "brands:\n  - name: ''\n"},
		{"duplicate brand", "brands:\n  - name: A\n  - name: A\n"},
		{"no price", "brands:\n  - name: A\n    models:\n      - name: M\n        versions:\n          - {name: V, power: 100ch}\n"},
		{"bad power", "brands:\n  - name: A\n    models:\n      - name: M\n        versions:\n          - {name: V, price: 10, power: lots}\n"},
		{"duplicate id", "brands:\n  - name: A\n    models:\n      - name: M\n        versions:\n          - {name: V, id: x, price: 10, power: 100ch}\n          - {name: W, id: x, price: 10, power: 100ch}\n"},
		{"popular unknown vehicle", "brands: []\npopular:\n  - {id: p, vehicles: [a, b]}\n"},
		{"popular single vehicle", "brands:\n  - name: A\n    models:\n      - name: M\n        versions:\n          - {name: V, id: x, price: 10, power: 100ch}\npopular:\n  - {id: p, vehicles: [x]}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brands:\n  - name: Lotus\n    models:\n      - name: Emira\n        versions:\n          - {name: V6, price: 95000, power: 405ch}\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lotus"}, c.ListBrands())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Len(t, def.ListBrands(), 6)
}
