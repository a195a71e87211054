package model

import (
	"time"

	"github.com/google/uuid"
)

// Role names.
const (
	RoleDirectorGeneral       = "ROLE_DIRECTOR_GENERAL"
	RoleAsistenteGeneral      = "ROLE_ASISTENTE_GENERAL"
	RoleFinanzas              = "ROLE_FINANZAS"
	RoleRRHH                  = "ROLE_RRHH"
	RoleCapacitacion          = "ROLE_CAPACITACION"
	RoleTrabajoSocial         = "ROLE_TRABAJO_SOCIAL"
	RoleCompras               = "ROLE_COMPRAS"
	RoleRP                    = "ROLE_RP"
	RoleEspecialista          = "ROLE_ESPECIALISTA"
	RoleAsistenteEspecialista = "ROLE_ASISTENTE_ESPECIALISTA"
)

// User status filter values for the administration list.
const (
	UserStatusActive  = "active"
	UserStatusDeleted = "deleted"
	UserStatusAll     = "all"
)

// User represents a system user
type User struct {
	Base
	Audit
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Enabled      bool       `json:"enabled" db:"enabled"`
	Roles        []string   `json:"roles" db:"-"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
	DeletedBy    *uuid.UUID `json:"deletedBy,omitempty" db:"deleted_by"`
}

// HasRole reports whether the user carries role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ToAuthUser returns the public identity embedded in tokens and /auth/me.
func (u *User) ToAuthUser() AuthUser {
	return AuthUser{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Enabled:  u.Enabled,
		Roles:    u.Roles,
	}
}

// UserFilter represents user search parameters
type UserFilter struct {
	Status   string
	Text     string
	Enabled  *bool
	RoleName string
}

type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required,max=150"`
	Email    string   `json:"email" binding:"required,email"`
	Username string   `json:"username" binding:"required,min=3,max=50"`
	Password string   `json:"password" binding:"required,min=8"`
	Enabled  *bool    `json:"enabled"`
	Roles    []string `json:"roles" binding:"required,min=1,dive,role_name"`
}

type UpdateUserRequest struct {
	Name     *string  `json:"name" binding:"omitempty,max=150"`
	Email    *string  `json:"email" binding:"omitempty,email"`
	Username *string  `json:"username" binding:"omitempty,min=3,max=50"`
	Password *string  `json:"password" binding:"omitempty,min=8"`
	Enabled  *bool    `json:"enabled"`
	Roles    []string `json:"roles" binding:"omitempty,dive,role_name"`
}

type ResolveUsersRequest struct {
	UserIDs []uuid.UUID `json:"userIds" binding:"required"`
}

// ResolvedUserRef is the short form used to label audit columns.
type ResolvedUserRef struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Username string    `json:"username" db:"username"`
}

// Availability reports whether a username or email is free.
type Availability struct {
	Available bool `json:"available"`
}

// AvailabilityField names the unique user attribute being checked.
type AvailabilityField string

const (
	AvailabilityUsername AvailabilityField = "username"
	AvailabilityEmail    AvailabilityField = "email"
)

// AvailabilityError is the validator error key for a taken value.
func (f AvailabilityField) AvailabilityError() string {
	return string(f) + "Taken"
}
