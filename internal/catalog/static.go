package catalog

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sportcar/internal/model"
)

// Static is an in-memory catalog. It keeps the declared order of brands,
// models and versions.
type Static struct {
	brands  []brandNode
	byID    map[string]model.Vehicle
	popular []Popular
}

type brandNode struct {
	name   string
	models []modelNode
}

type modelNode struct {
	name     string
	versions []model.Vehicle
}

var _ Catalog = (*Static)(nil)

func build(doc document) (*Static, error) {
	s := &Static{byID: make(map[string]model.Vehicle)}

	for _, b := range doc.Brands {
		if strings.TrimSpace(b.Name) == "" {
			return nil, eris.New("catalog: brand with empty name")
		}
		if s.brand(b.Name) != nil {
			return nil, eris.Errorf("catalog: duplicate brand %q", b.Name)
		}
		bn := brandNode{name: b.Name}
		for _, m := range b.Models {
			if strings.TrimSpace(m.Name) == "" {
				return nil, eris.Errorf("catalog: %s: model with empty name", b.Name)
			}
			mn := modelNode{name: m.Name}
			for _, v := range m.Versions {
				veh, err := toVehicle(b.Name, m.Name, v)
				if err != nil {
					return nil, err
				}
				if _, dup := s.byID[veh.ID]; dup {
					return nil, eris.Errorf("catalog: duplicate vehicle id %q", veh.ID)
				}
				s.byID[veh.ID] = veh
				mn.versions = append(mn.versions, veh)
			}
			bn.models = append(bn.models, mn)
		}
		s.brands = append(s.brands, bn)
	}

	for _, p := range doc.Popular {
		pop, err := s.toPopular(p)
		if err != nil {
			return nil, err
		}
		s.popular = append(s.popular, pop)
	}

	return s, nil
}

func toVehicle(brand, mdl string, v versionDoc) (model.Vehicle, error) {
	version := v.Name
	if strings.TrimSpace(version) == "" {
		version = model.StandardVersion
	}
	if v.Price <= 0 {
		return model.Vehicle{}, eris.Errorf("catalog: %s %s %s: price must be positive", brand, mdl, version)
	}
	power, err := model.ParsePower(v.Power)
	if err != nil {
		return model.Vehicle{}, eris.Wrapf(err, "catalog: %s %s %s", brand, mdl, version)
	}
	id := v.ID
	if id == "" {
		id = model.VehicleID(brand, mdl, version)
	}
	return model.Vehicle{
		ID:      id,
		Brand:   brand,
		Model:   mdl,
		Version: version,
		Name:    model.DisplayName(brand, mdl, version),
		Price:   v.Price,
		Power:   power,
		Image:   v.Image,
	}, nil
}

func (s *Static) toPopular(p popularDoc) (Popular, error) {
	if p.ID == "" {
		return Popular{}, eris.New("catalog: popular comparison with empty id")
	}
	if n := len(p.Vehicles); n < 2 || n > 3 {
		return Popular{}, eris.Errorf("catalog: popular %s: needs 2 or 3 vehicles, has %d", p.ID, n)
	}
	pop := Popular{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.Category,
		Description: p.Description,
		Popularity:  p.Popularity,
		Views:       p.Views,
	}
	for _, id := range p.Vehicles {
		v, ok := s.byID[id]
		if !ok {
			return Popular{}, eris.Errorf("catalog: popular %s: unknown vehicle %q", p.ID, id)
		}
		pop.Vehicles = append(pop.Vehicles, v)
	}
	return pop, nil
}

func (s *Static) brand(name string) *brandNode {
	for i := range s.brands {
		if s.brands[i].name == name {
			return &s.brands[i]
		}
	}
	return nil
}

func (b *brandNode) model(name string) *modelNode {
	for i := range b.models {
		if b.models[i].name == name {
			return &b.models[i]
		}
	}
	return nil
}

// ListBrands returns brand names in catalog order.
func (s *Static) ListBrands() []string {
	out := make([]string, 0, len(s.brands))
	for _, b := range s.brands {
		out = append(out, b.name)
	}
	return out
}

// ListModels returns the models of a brand, or nil for an unknown brand.
func (s *Static) ListModels(brand string) []string {
	b := s.brand(brand)
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.models))
	for _, m := range b.models {
		out = append(out, m.name)
	}
	return out
}

// ListVersions returns the versions of a model, or nil for an unknown path.
func (s *Static) ListVersions(brand, mdl string) []string {
	b := s.brand(brand)
	if b == nil {
		return nil
	}
	m := b.model(mdl)
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.versions))
	for _, v := range m.versions {
		out = append(out, v.Version)
	}
	return out
}

// Resolve returns the record at brand/model/version. An empty version
// resolves the Standard trim.
func (s *Static) Resolve(brand, mdl, version string) (model.Vehicle, error) {
	if version == "" {
		version = model.StandardVersion
	}
	b := s.brand(brand)
	if b == nil {
		return model.Vehicle{}, eris.Wrapf(ErrNotFound, "brand %q", brand)
	}
	m := b.model(mdl)
	if m == nil {
		return model.Vehicle{}, eris.Wrapf(ErrNotFound, "model %q %q", brand, mdl)
	}
	for _, v := range m.versions {
		if v.Version == version {
			return v, nil
		}
	}
	return model.Vehicle{}, eris.Wrapf(ErrNotFound, "version %q %q %q", brand, mdl, version)
}

// Lookup returns the record with the given id.
func (s *Static) Lookup(id string) (model.Vehicle, error) {
	v, ok := s.byID[id]
	if !ok {
		return model.Vehicle{}, eris.Wrapf(ErrNotFound, "id %q", id)
	}
	return v, nil
}

// Popular returns the curated comparisons in catalog order.
func (s *Static) Popular() []Popular {
	out := make([]Popular, len(s.popular))
	for i, p := range s.popular {
		p.Vehicles = append([]model.Vehicle(nil), p.Vehicles...)
		out[i] = p
	}
	return out
}

// PopularByID returns one curated comparison.
func (s *Static) PopularByID(id string) (Popular, error) {
	for _, p := range s.popular {
		if p.ID == id {
			p.Vehicles = append([]model.Vehicle(nil), p.Vehicles...)
			return p, nil
		}
	}
	return Popular{}, eris.Wrapf(ErrNotFound, "popular comparison %q", id)
}
