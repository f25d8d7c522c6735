package controller

import (
	"context"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

// RoleStore is the persistence of role rows keyed by (company, user).
type RoleStore interface {
	GetMembership(ctx context.Context, companyID, userID int64) (*models.Membership, error)
	CreateMembership(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error)
	UpdateMembershipRole(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error)
	DeleteMembership(ctx context.Context, companyID, userID int64) error
	ListMemberships(ctx context.Context, companyID int64, roles ...models.Role) ([]*models.Membership, error)
}

// RoleRegistry is the source of truth for who holds which role in which
// company. It reads through to the store on every call.
type RoleRegistry struct {
	store RoleStore
}

func NewRoleRegistry(store RoleStore) *RoleRegistry {
	return &RoleRegistry{store: store}
}

// GetRole returns the membership of the pair, or nil when there is none.
func (r *RoleRegistry) GetRole(ctx context.Context, companyID, userID int64) (*models.Membership, error) {
	return r.store.GetMembership(ctx, companyID, userID)
}

func (r *RoleRegistry) AddRole(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, e.Validation("Unknown role %q.", role)
	}
	return r.store.CreateMembership(ctx, companyID, userID, role)
}

// SetRole changes the role of an existing member. Setting the current role
// again leaves the row untouched.
func (r *RoleRegistry) SetRole(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, e.Validation("Unknown role %q.", role)
	}
	current, err := r.store.GetMembership(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, e.UserNotMember(companyID, userID)
	}
	if current.Role == role {
		return current, nil
	}
	return r.store.UpdateMembershipRole(ctx, companyID, userID, role)
}

func (r *RoleRegistry) RemoveRole(ctx context.Context, companyID, userID int64) error {
	return r.store.DeleteMembership(ctx, companyID, userID)
}

func (r *RoleRegistry) ListAdmins(ctx context.Context, companyID int64) ([]*models.Membership, error) {
	return r.store.ListMemberships(ctx, companyID, models.RoleAdmin)
}

// ListMembers returns every role holder of the company, owner included.
func (r *RoleRegistry) ListMembers(ctx context.Context, companyID int64) ([]*models.Membership, error) {
	return r.store.ListMemberships(ctx, companyID)
}
