package db

import (
	"context"
	"fmt"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	row := dbmodels.UserFromModel(user)
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		if isDuplicate(result.Error) {
			return e.UserAlreadyExist(user.Email)
		}
		return fmt.Errorf("failed to create user: %w", result.Error)
	}
	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var row dbmodels.User
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.UserNotFound(id)
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return row.ToModel(), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row dbmodels.User
	result := r.db.WithContext(ctx).First(&row, "email = ?", email)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.UserNotFoundByEmail(email)
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return row.ToModel(), nil
}

func (r *Repository) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.User{}).
		Where("email = ?", email).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// ListUsers returns one page of users ordered by id.
func (r *Repository) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	query := r.db.WithContext(ctx).Model(&dbmodels.User{}).Order("id")

	var rows []dbmodels.User
	if err := paginate(query, page.Page, page.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].ToModel())
	}
	return users, nil
}

func (r *Repository) UpdateUser(ctx context.Context, update *models.UserUpdate) error {
	fields := map[string]any{}
	if update.FirstName != nil {
		fields["first_name"] = *update.FirstName
	}
	if update.LastName != nil {
		fields["last_name"] = *update.LastName
	}
	if len(fields) == 0 {
		_, err := r.GetUser(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.User{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.UserNotFound(update.ID)
	}
	return nil
}

// DeleteUser removes the user. Owned companies, memberships, invites and
// notifications go with it through the foreign key cascades.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.UserNotFound(id)
	}
	return nil
}
