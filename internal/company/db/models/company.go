// Package models contains the persistence rows for the application,
// configured to work using GORM as the ORM. Rows convert to and from the
// domain models in internal/company/models.
package models

import (
	"time"

	"github.com/gartstein/companyhub/internal/company/models"
)

// Company represents a company entity in the database.
type Company struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:100;not null;uniqueIndex"`
	Description string `gorm:"size:256;not null"`
	Visibility  string `gorm:"size:16;not null;default:visible;index"`
	OwnerID     int64  `gorm:"not null;index"`
	Owner       *User  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Company) TableName() string { return "companies" }

// ToModel converts the row into its domain model.
func (c *Company) ToModel() *models.Company {
	return &models.Company{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Visibility:  models.Visibility(c.Visibility),
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// CompanyFromModel builds a row from a domain company.
func CompanyFromModel(c *models.Company) *Company {
	visibility := c.Visibility
	if visibility == "" {
		visibility = models.Visible
	}
	return &Company{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Visibility:  string(visibility),
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// Membership is a role row. The composite unique index guarantees at most
// one role per (company, user) pair.
type Membership struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	CompanyID int64    `gorm:"not null;uniqueIndex:idx_company_user_role"`
	Company   *Company `gorm:"constraint:OnDelete:CASCADE"`
	UserID    int64    `gorm:"not null;uniqueIndex:idx_company_user_role;index"`
	User      *User    `gorm:"constraint:OnDelete:CASCADE"`
	Role      string   `gorm:"size:16;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Membership) TableName() string { return "company_user_roles" }

func (m *Membership) ToModel() *models.Membership {
	return &models.Membership{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		UserID:    m.UserID,
		Role:      models.Role(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Invite is a pending or decided proposal. At most one row exists per
// (company, user) pair.
type Invite struct {
	ID        int64    `gorm:"primaryKey;autoIncrement"`
	CompanyID int64    `gorm:"not null;uniqueIndex:idx_company_user_invite"`
	Company   *Company `gorm:"constraint:OnDelete:CASCADE"`
	UserID    int64    `gorm:"not null;uniqueIndex:idx_company_user_invite;index"`
	User      *User    `gorm:"constraint:OnDelete:CASCADE"`
	Kind      string   `gorm:"size:16;not null"`
	Status    string   `gorm:"size:16;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Invite) TableName() string { return "invites" }

func (i *Invite) ToModel() *models.Invite {
	return &models.Invite{
		ID:        i.ID,
		CompanyID: i.CompanyID,
		UserID:    i.UserID,
		Kind:      models.InviteKind(i.Kind),
		Status:    models.InviteStatus(i.Status),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}
