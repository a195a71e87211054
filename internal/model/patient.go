package model

import (
	"github.com/google/uuid"
)

type Patient struct {
	Base
	Audit
	FullName  string  `json:"fullName" db:"full_name"`
	BirthDate *string `json:"birthDate,omitempty" db:"birth_date"`
	Phone     *string `json:"phone,omitempty" db:"phone"`
	Email     *string `json:"email,omitempty" db:"email"`
	Notes     *string `json:"notes,omitempty" db:"notes"`
}

type CreatePatientRequest struct {
	FullName  string  `json:"fullName" binding:"required,max=200"`
	BirthDate *string `json:"birthDate" binding:"omitempty,isodate"`
	Phone     *string `json:"phone" binding:"omitempty,max=30"`
	Email     *string `json:"email" binding:"omitempty,email"`
	Notes     *string `json:"notes" binding:"omitempty,max=2000"`
}

type PatientFilter struct {
	Search string
	IDs    []uuid.UUID
}
