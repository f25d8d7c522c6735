package db

import (
	"context"
	"fmt"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

// GetMembership returns the role row for the pair, or nil when the user
// holds no role in the company.
func (r *Repository) GetMembership(ctx context.Context, companyID, userID int64) (*models.Membership, error) {
	var row dbmodels.Membership
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Take(&row)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get membership: %w", result.Error)
	}
	return row.ToModel(), nil
}

// CreateMembership inserts a role row. The unique index on the pair is
// the conflict signal.
func (r *Repository) CreateMembership(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	row := &dbmodels.Membership{CompanyID: companyID, UserID: userID, Role: string(role)}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		switch {
		case isDuplicate(result.Error):
			existing, err := r.GetMembership(ctx, companyID, userID)
			if err == nil && existing != nil {
				role = existing.Role
			}
			return nil, e.UserAlreadyMember(companyID, userID, string(role))
		case isForeignKey(result.Error):
			return nil, e.Validation("Company %d or user %d does not exist.", companyID, userID)
		}
		return nil, fmt.Errorf("failed to create membership: %w", result.Error)
	}
	return row.ToModel(), nil
}

func (r *Repository) UpdateMembershipRole(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.Membership{}).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Update("role", string(role))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, e.UserNotMember(companyID, userID)
	}
	return r.GetMembership(ctx, companyID, userID)
}

func (r *Repository) DeleteMembership(ctx context.Context, companyID, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&dbmodels.Membership{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete membership: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.UserNotMember(companyID, userID)
	}
	return nil
}

// ListMemberships returns the role rows of a company, optionally restricted
// to the given roles.
func (r *Repository) ListMemberships(ctx context.Context, companyID int64, roles ...models.Role) ([]*models.Membership, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("id")
	if len(roles) > 0 {
		names := make([]string, 0, len(roles))
		for _, role := range roles {
			names = append(names, string(role))
		}
		query = query.Where("role IN ?", names)
	}

	var rows []dbmodels.Membership
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	memberships := make([]*models.Membership, 0, len(rows))
	for i := range rows {
		memberships = append(memberships, rows[i].ToModel())
	}
	return memberships, nil
}
