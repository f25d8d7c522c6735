package models

import (
	"time"

	"github.com/gartstein/companyhub/internal/company/models"
)

type User struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	FirstName   string `gorm:"size:100"`
	LastName    string `gorm:"size:100"`
	Email       string `gorm:"size:255;not null;uniqueIndex"`
	Password    string `gorm:"not null"`
	IsActive    bool   `gorm:"not null;default:false"`
	IsSuperuser bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

func (User) TableName() string { return "users" }

func (u *User) ToModel() *models.User {
	return &models.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.Password,
		IsActive:     u.IsActive,
		IsSuperuser:  u.IsSuperuser,
		CreatedAt:    u.CreatedAt,
	}
}

func UserFromModel(u *models.User) *User {
	return &User{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Password:    u.PasswordHash,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

type Quiz struct {
	ID          int64    `gorm:"primaryKey;autoIncrement"`
	CompanyID   int64    `gorm:"not null;uniqueIndex:idx_company_quiz_title"`
	Company     *Company `gorm:"constraint:OnDelete:CASCADE"`
	CreatedBy   int64    `gorm:"not null"`
	Title       string   `gorm:"size:255;not null;uniqueIndex:idx_company_quiz_title"`
	Description string   `gorm:"size:500;not null"`
	Status      string   `gorm:"size:16;not null;default:draft;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Quiz) TableName() string { return "quizzes" }

func (q *Quiz) ToModel() *models.Quiz {
	return &models.Quiz{
		ID:          q.ID,
		CompanyID:   q.CompanyID,
		CreatedBy:   q.CreatedBy,
		Title:       q.Title,
		Description: q.Description,
		Status:      models.QuizStatus(q.Status),
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

type Notification struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"not null;index"`
	User      *User  `gorm:"constraint:OnDelete:CASCADE"`
	Text      string `gorm:"size:500;not null"`
	Status    string `gorm:"size:8;not null;default:new"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) ToModel() *models.Notification {
	return &models.Notification{
		ID:        n.ID,
		UserID:    n.UserID,
		Text:      n.Text,
		Status:    models.NotificationStatus(n.Status),
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// All lists every row type in migration order.
func All() []any {
	return []any{&User{}, &Company{}, &Membership{}, &Invite{}, &Quiz{}, &Notification{}}
}
