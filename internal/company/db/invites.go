package db

import (
	"context"
	"fmt"
	"time"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

// InviteFilter narrows ListInvites. Zero fields are ignored.
type InviteFilter struct {
	CompanyID     int64
	UserID        int64
	Kind          models.InviteKind
	Status        models.InviteStatus
	CreatedBefore time.Time
}

// CreateInvite inserts an invite row. A second row for the same pair is
// rejected by the unique index and reported as InvitationAlreadyExist.
func (r *Repository) CreateInvite(ctx context.Context, invite *models.Invite) error {
	row := &dbmodels.Invite{
		CompanyID: invite.CompanyID,
		UserID:    invite.UserID,
		Kind:      string(invite.Kind),
		Status:    string(invite.Status),
	}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		switch {
		case isDuplicate(result.Error):
			return e.InvitationAlreadyExist(invite.UserID)
		case isForeignKey(result.Error):
			return e.Validation("Company %d or user %d does not exist.", invite.CompanyID, invite.UserID)
		}
		return fmt.Errorf("failed to create invite: %w", result.Error)
	}
	*invite = *row.ToModel()
	return nil
}

func (r *Repository) GetInvite(ctx context.Context, id int64) (*models.Invite, error) {
	var row dbmodels.Invite
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.InvitationNotExists(id)
		}
		return nil, fmt.Errorf("failed to get invite: %w", result.Error)
	}
	return row.ToModel(), nil
}

// LockInvite loads the invite row with an exclusive row lock.
func (r *Repository) LockInvite(ctx context.Context, id int64) (*models.Invite, error) {
	var row dbmodels.Invite
	result := r.db.WithContext(ctx).Clauses(forUpdate()).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.InvitationNotExists(id)
		}
		return nil, fmt.Errorf("failed to lock invite: %w", result.Error)
	}
	return row.ToModel(), nil
}

// FindInvite returns the invite row for the pair, or nil when none exists.
func (r *Repository) FindInvite(ctx context.Context, companyID, userID int64) (*models.Invite, error) {
	var row dbmodels.Invite
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Take(&row)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invite: %w", result.Error)
	}
	return row.ToModel(), nil
}

func (r *Repository) UpdateInviteStatus(ctx context.Context, id int64, status models.InviteStatus) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Invite{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("failed to update invite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.InvitationNotExists(id)
	}
	return nil
}

func (r *Repository) DeleteInvite(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Invite{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete invite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.InvitationNotExists(id)
	}
	return nil
}

// DeleteInvitesForPair removes any invite row of the pair. Absence is not an error.
func (r *Repository) DeleteInvitesForPair(ctx context.Context, companyID, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&dbmodels.Invite{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete invite: %w", result.Error)
	}
	return nil
}

func (r *Repository) ListInvites(ctx context.Context, filter InviteFilter) ([]*models.Invite, error) {
	query := r.db.WithContext(ctx).Model(&dbmodels.Invite{}).Order("id")
	if filter.CompanyID != 0 {
		query = query.Where("company_id = ?", filter.CompanyID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if !filter.CreatedBefore.IsZero() {
		query = query.Where("created_at < ?", filter.CreatedBefore)
	}

	var rows []dbmodels.Invite
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}

	invites := make([]*models.Invite, 0, len(rows))
	for i := range rows {
		invites = append(invites, rows[i].ToModel())
	}
	return invites, nil
}
