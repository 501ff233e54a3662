// Package directory holds the host entities that ledger records point at:
// contacts, properties, buildings, projects and units.
package directory

import "context"

// Kind identifies an entity type.
type Kind string

const (
	KindContact  Kind = "contact"
	KindProperty Kind = "property"
	KindBuilding Kind = "building"
	KindProject  Kind = "project"
	KindUnit     Kind = "unit"
)

// Kinds lists every entity kind.
var Kinds = []Kind{KindContact, KindProperty, KindBuilding, KindProject, KindUnit}

// Label returns a display label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindContact:
		return "Contact"
	case KindProperty:
		return "Property"
	case KindBuilding:
		return "Building"
	case KindProject:
		return "Project"
	case KindUnit:
		return "Unit"
	}
	return "Entity"
}

// Role distinguishes contacts.
type Role string

const (
	RoleTenant Role = "tenant"
	RoleOwner  Role = "owner"
	RoleVendor Role = "vendor"
	RoleBuyer  Role = "buyer"
)

// Entity is a host record referenced by ID from invoices and templates.
// Parent references depend on Kind: properties carry BuildingID and OwnerID,
// units carry ProjectID.
type Entity struct {
	Kind       Kind   `json:"kind"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Role       Role   `json:"role,omitempty"`
	BuildingID string `json:"building_id,omitempty"`
	OwnerID    string `json:"owner_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
}

// Store is the host lookup boundary. ResolveEntity returns (nil, nil) for a
// missing ID.
type Store interface {
	PutEntity(ctx context.Context, e *Entity) error
	ResolveEntity(ctx context.Context, kind Kind, entityID string) (*Entity, error)
	ListEntities(ctx context.Context, kind Kind) ([]*Entity, error)
}
