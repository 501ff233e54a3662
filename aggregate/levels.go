package aggregate

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xraph/rentledger/directory"
)

// entityKey resolves entityID against ix. Missing and dangling references
// both map to the unassigned key.
func entityKey(ix *directory.Index, kind directory.Kind, entityID string) Key {
	e := ix.Resolve(kind, entityID)
	if e == nil {
		return Key{}
	}
	return Key{ID: e.ID, Name: e.Name}
}

// ByBuilding groups by the invoice's building, falling back to the building
// of its property.
func ByBuilding(ix *directory.Index) Level {
	return Level{Name: "building", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindBuilding, ix.BuildingFor(r.Invoice.BuildingID, r.Invoice.PropertyID))
	}}
}

// ByProperty groups by property.
func ByProperty(ix *directory.Index) Level {
	return Level{Name: "property", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindProperty, r.Invoice.PropertyID)
	}}
}

// ByContact groups by the tenant, owner or vendor on the invoice.
func ByContact(ix *directory.Index) Level {
	return Level{Name: "contact", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindContact, r.Invoice.ContactID)
	}}
}

// ByOwner groups by the owner of the invoice's property.
func ByOwner(ix *directory.Index) Level {
	return Level{Name: "owner", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindContact, ix.OwnerFor(r.Invoice.PropertyID))
	}}
}

// ByProject groups by project, falling back to the project of the unit.
func ByProject(ix *directory.Index) Level {
	return Level{Name: "project", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindProject, ix.ProjectFor(r.Invoice.ProjectID, r.Invoice.UnitID))
	}}
}

// ByUnit groups by project unit.
func ByUnit(ix *directory.Index) Level {
	return Level{Name: "unit", Key: func(r *Record) Key {
		return entityKey(ix, directory.KindUnit, r.Invoice.UnitID)
	}}
}

// ByType groups by invoice type.
func ByType() Level {
	return Level{Name: "type", Key: func(r *Record) Key {
		return Key{ID: string(r.Invoice.Type), Name: label(string(r.Invoice.Type))}
	}}
}

// ByStatus groups by resolved status.
func ByStatus() Level {
	return Level{Name: "status", Key: func(r *Record) Key {
		return Key{ID: string(r.Balance.Status), Name: label(string(r.Balance.Status))}
	}}
}

// ByAgingBucket groups by aging bucket. Paid records are unassigned.
func ByAgingBucket() Level {
	return Level{Name: "aging", Key: func(r *Record) Key {
		if r.Aging.Excluded {
			return Key{}
		}
		return Key{ID: string(r.Aging.Bucket), Name: string(r.Aging.Bucket)}
	}}
}

// LevelByName maps a level name such as "building" to its Level. It returns
// false for unknown names.
func LevelByName(ix *directory.Index, name string) (Level, bool) {
	switch name {
	case "building":
		return ByBuilding(ix), true
	case "property":
		return ByProperty(ix), true
	case "contact", "tenant", "vendor":
		l := ByContact(ix)
		l.Name = name
		return l, true
	case "owner":
		return ByOwner(ix), true
	case "project":
		return ByProject(ix), true
	case "unit":
		return ByUnit(ix), true
	case "type":
		return ByType(), true
	case "status":
		return ByStatus(), true
	case "aging":
		return ByAgingBucket(), true
	}
	return Level{}, false
}

func label(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '_' {
			b[i] = ' '
		}
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.Und).String(string(b))
}
