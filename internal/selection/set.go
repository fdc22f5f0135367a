// Package selection holds the user's in-progress choice of vehicles.
package selection

import "github.com/sells-group/sportcar/internal/model"

const (
	// Capacity is the maximum number of vehicles in a comparison.
	Capacity = 3
	// MinCompare is the smallest selection a comparison can run on.
	MinCompare = 2
)

// Set is an ordered collection of distinct vehicles, capped at Capacity.
// Insertion order is kept for display only.
type Set struct {
	items []model.Vehicle
}

// New returns a set with vs added in order, skipping duplicates and
// anything beyond Capacity.
func New(vs ...model.Vehicle) *Set {
	s := &Set{}
	for _, v := range vs {
		s.Add(v)
	}
	return s
}

// Add appends v unless its id is already present or the set is full.
// It reports whether the set changed.
func (s *Set) Add(v model.Vehicle) bool {
	if len(s.items) >= Capacity || s.Has(v.ID) {
		return false
	}
	s.items = append(s.items, v)
	return true
}

// Remove drops the vehicle with the given id, keeping the order of the rest.
func (s *Set) Remove(id string) bool {
	for i, v := range s.items {
		if v.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the set.
func (s *Set) Clear() {
	s.items = nil
}

// Replace swaps the contents for vs under the same rules as Add.
func (s *Set) Replace(vs []model.Vehicle) {
	s.items = nil
	for _, v := range vs {
		s.Add(v)
	}
}

// Has reports whether a vehicle with id is selected.
func (s *Set) Has(id string) bool {
	for _, v := range s.items {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Contains reports whether the brand/model/version path is already selected.
func (s *Set) Contains(brand, mdl, version string) bool {
	for _, v := range s.items {
		if v.Brand == brand && v.Model == mdl && v.Version == version {
			return true
		}
	}
	return false
}

// Len returns the number of selected vehicles.
func (s *Set) Len() int { return len(s.items) }

// Full reports whether no more vehicles can be added.
func (s *Set) Full() bool { return len(s.items) >= Capacity }

// CanCompare reports whether the selection is large enough to compare.
func (s *Set) CanCompare() bool { return len(s.items) >= MinCompare }

// Items returns a copy of the selection in insertion order. The copy is
// safe to use as a snapshot.
func (s *Set) Items() []model.Vehicle {
	out := make([]model.Vehicle, len(s.items))
	copy(out, s.items)
	return out
}
