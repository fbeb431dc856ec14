package service

import (
	"farmanet/internal/model"

	"github.com/google/uuid"
)

// Actor identifies the authenticated caller for permission checks inside
// services. Handlers build it from the JWT claims; tests build it directly.
type Actor struct {
	ID       uuid.UUID
	Username string
	Rol      string
}

func (a Actor) EsAdmin() bool { return a.Rol == model.RolAdmin }

func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if a.Rol == r {
			return true
		}
	}
	return false
}

// Owns reports whether the actor is the registered owner of the branch.
func (a Actor) Owns(d *model.Drogueria) bool {
	return d != nil && d.PropietarioID != nil && *d.PropietarioID == a.ID
}
