package directory

import (
	"context"
	"fmt"
)

// UnassignedID and UnassignedName label records whose grouping key is missing
// or points at an entity that does not exist.
const (
	UnassignedID   = ""
	UnassignedName = "Unassigned"
)

// Index is an ID-keyed snapshot of host entities, built once per operation
// so lookups during aggregation and filtering are O(1).
type Index struct {
	byKind map[Kind]map[string]*Entity
}

// NewIndex builds an Index from entities. Later duplicates replace earlier ones.
func NewIndex(entities ...[]*Entity) *Index {
	ix := &Index{byKind: make(map[Kind]map[string]*Entity)}
	for _, list := range entities {
		for _, e := range list {
			ix.Add(e)
		}
	}
	return ix
}

// Load builds an Index from every entity kind in s.
func Load(ctx context.Context, s Store) (*Index, error) {
	ix := NewIndex()
	for _, k := range Kinds {
		list, err := s.ListEntities(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("load %s entities: %w", k, err)
		}
		for _, e := range list {
			ix.Add(e)
		}
	}
	return ix, nil
}

// Add inserts e into the index.
func (ix *Index) Add(e *Entity) {
	if e == nil || e.ID == "" {
		return
	}
	m, ok := ix.byKind[e.Kind]
	if !ok {
		m = make(map[string]*Entity)
		ix.byKind[e.Kind] = m
	}
	m[e.ID] = e
}

// Resolve returns the entity or nil when it does not exist.
func (ix *Index) Resolve(kind Kind, entityID string) *Entity {
	if ix == nil || entityID == "" {
		return nil
	}
	return ix.byKind[kind][entityID]
}

// Name returns the entity name, "Unknown <Kind>" for a dangling reference,
// and "" when entityID is empty.
func (ix *Index) Name(kind Kind, entityID string) string {
	if entityID == "" {
		return ""
	}
	if e := ix.Resolve(kind, entityID); e != nil {
		return e.Name
	}
	return "Unknown " + kind.Label()
}

// Len returns the number of indexed entities of kind.
func (ix *Index) Len(kind Kind) int {
	return len(ix.byKind[kind])
}

// BuildingFor returns buildingID when set, otherwise the building of the
// property. Empty when neither resolves.
func (ix *Index) BuildingFor(buildingID, propertyID string) string {
	if buildingID != "" {
		return buildingID
	}
	if p := ix.Resolve(KindProperty, propertyID); p != nil {
		return p.BuildingID
	}
	return ""
}

// OwnerFor returns the owner contact of a property.
func (ix *Index) OwnerFor(propertyID string) string {
	if p := ix.Resolve(KindProperty, propertyID); p != nil {
		return p.OwnerID
	}
	return ""
}

// ProjectFor returns projectID when set, otherwise the project of the unit.
func (ix *Index) ProjectFor(projectID, unitID string) string {
	if projectID != "" {
		return projectID
	}
	if u := ix.Resolve(KindUnit, unitID); u != nil {
		return u.ProjectID
	}
	return ""
}
