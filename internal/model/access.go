package model

import (
	"github.com/google/uuid"
)

// Access is the set of dashboard routes a user may open.
type Access struct {
	UserID        uuid.UUID `json:"userId"`
	Roles         []string  `json:"roles"`
	AllRoutes     bool      `json:"allRoutes"`
	AllowedRoutes []string  `json:"allowedRoutes"`
	NavItems      []NavItem `json:"navItems"`
}

type NavItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AppointmentScope limits which specialists' appointments a caller sees.
// Unrestricted scopes leave AllowedSpecialistIDs empty.
type AppointmentScope struct {
	Restricted           bool        `json:"restricted"`
	LockedSpecialistID   *uuid.UUID  `json:"lockedSpecialistId,omitempty"`
	AllowedSpecialistIDs []uuid.UUID `json:"allowedSpecialistIds"`
	SelectedSpecialistID *uuid.UUID  `json:"selectedSpecialistId,omitempty"`
}

// Allows reports whether the scope includes specialistID.
func (s AppointmentScope) Allows(specialistID uuid.UUID) bool {
	if !s.Restricted {
		return true
	}
	for _, id := range s.AllowedSpecialistIDs {
		if id == specialistID {
			return true
		}
	}
	return false
}
