// Package controller implements the core business logic (service layer):
// the role registry, the authorization guard, the invitation lifecycle
// engine and the CRUD services built around them. Every mutation runs in a
// single repository transaction and events are produced after commit.
package controller

import (
	"context"

	"github.com/gartstein/companyhub/internal/company/db"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/models"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage interface used outside of transactions.
// Transactional work is done on the *db.Repository handed to WithTransaction.
type Repository interface {
	RoleStore

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, page models.Page) ([]*models.User, error)

	GetCompany(ctx context.Context, id int64) (*models.Company, error)
	ListCompanies(ctx context.Context, visibility *models.Visibility, page models.Page) ([]*models.Company, error)
	CompanyExistsByName(ctx context.Context, name string) (bool, error)

	GetInvite(ctx context.Context, id int64) (*models.Invite, error)
	FindInvite(ctx context.Context, companyID, userID int64) (*models.Invite, error)
	ListInvites(ctx context.Context, filter db.InviteFilter) ([]*models.Invite, error)

	GetQuiz(ctx context.Context, id int64) (*models.Quiz, error)
	ListQuizzes(ctx context.Context, companyID int64, page models.Page) ([]*models.Quiz, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID int64, page models.Page) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) (*models.Notification, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

// outbox collects events during a transaction; they are produced only once
// the transaction committed.
type outbox []events.Event

func (o *outbox) add(event events.Event) {
	*o = append(*o, event)
}

func (o outbox) flush(producer EventProducer) {
	if producer == nil {
		return
	}
	for _, event := range o {
		producer.Produce(event)
	}
}
