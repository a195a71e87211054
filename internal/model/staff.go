package model

import (
	"github.com/google/uuid"
)

// SpecialtyPhysiotherapy routes a specialist to the sessions view instead of appointments.
const SpecialtyPhysiotherapy = "FISIOTERAPIA"

type Specialist struct {
	Base
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Specialty string    `json:"specialty" db:"specialty"`
}

// IsPhysiotherapy reports whether the specialist belongs to the sessions view.
func (s *Specialist) IsPhysiotherapy() bool {
	return s.Specialty == SpecialtyPhysiotherapy
}

type Assistant struct {
	Base
	UserID          uuid.UUID   `json:"userId" db:"user_id"`
	UserName        string      `json:"userName" db:"user_name"`
	SpecialistIDs   []uuid.UUID `json:"specialistIds" db:"-"`
	SpecialistNames []string    `json:"specialistNames" db:"-"`
}

type CreateSpecialistRequest struct {
	UserID    uuid.UUID `json:"userId" binding:"required"`
	Specialty string    `json:"specialty" binding:"required,max=100"`
}

type CreateAssistantRequest struct {
	Name            string      `json:"name" binding:"required,max=150"`
	Email           string      `json:"email" binding:"required,email"`
	Username        string      `json:"username" binding:"required,min=3,max=50"`
	Password        string      `json:"password" binding:"required,min=8"`
	ConfirmPassword string      `json:"confirmPassword" binding:"required,eqfield=Password"`
	Enabled         *bool       `json:"enabled"`
	SpecialistIDs   []uuid.UUID `json:"specialistIds"`
}

type UpdateSpecialistAssistantsRequest struct {
	AssistantIDs []uuid.UUID `json:"assistantIds"`
}

type UpdateAssistantSpecialistsRequest struct {
	SpecialistIDs []uuid.UUID `json:"specialistIds"`
}
