// Package models defines the core domain models: companies, users, the
// membership (role) relation, invites, quizzes and notifications.
package models

import (
	"time"
)

// Visibility controls whether a company is listed publicly.
type Visibility string

const (
	// Hidden companies are omitted from public listings.
	Hidden  Visibility = "hidden"
	Visible Visibility = "visible"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == Hidden || v == Visible
}

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier for the company.
	ID int64
	// Name is the company’s name, unique across the system.
	Name string
	// Description provides details about the company.
	Description string
	// Visibility specifies whether the company is listed publicly.
	Visibility Visibility
	// OwnerID references the user who created the company. It never changes.
	OwnerID int64
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	// ID is the unique identifier for the company to update.
	ID int64
	// Name is the new name for the company.
	Name *string
	// Description is the new description.
	Description *string
	// Visibility is the updated visibility.
	Visibility *Visibility
}

// Page selects a window of a listing. Page is 1-based.
type Page struct {
	Page     int
	PageSize int
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}
