package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for all models
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Audit records who created and last changed a row.
type Audit struct {
	CreatedBy *uuid.UUID `json:"createdBy,omitempty" db:"created_by"`
	UpdatedBy *uuid.UUID `json:"updatedBy,omitempty" db:"updated_by"`
}

// Page is a slice of results in the shape the dashboard pages on:
// 0-based page number, page size, and totals.
type Page[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// NewPage builds a page and computes the page count.
func NewPage[T any](content []T, total, number, size int) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Page[T]{
		Content:       content,
		TotalElements: total,
		TotalPages:    pages,
		Number:        number,
		Size:          size,
	}
}

// SortOrder is one "field,dir" sort clause.
type SortOrder struct {
	Field string
	Desc  bool
}

// Paging carries the list window and ordering into repositories.
type Paging struct {
	Page int
	Size int
	Sort []SortOrder
}
