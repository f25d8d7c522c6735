package db

import (
	"context"
	"fmt"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := dbmodels.CompanyFromModel(company)
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		switch {
		case isDuplicate(result.Error):
			return e.CompanyAlreadyExist(company.Name)
		case isForeignKey(result.Error):
			return e.UserNotFound(company.OwnerID)
		}
		return fmt.Errorf("failed to create company: %w", result.Error)
	}
	company.ID = row.ID
	company.Visibility = models.Visibility(row.Visibility)
	company.CreatedAt = row.CreatedAt
	company.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	var row dbmodels.Company
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.CompanyNotFound(id)
		}
		return nil, fmt.Errorf("failed to get company: %w", result.Error)
	}
	return row.ToModel(), nil
}

// LockCompany loads the company row with an exclusive row lock held until
// the surrounding transaction ends. Outside a transaction it behaves like
// GetCompany.
func (r *Repository) LockCompany(ctx context.Context, id int64) (*models.Company, error) {
	var row dbmodels.Company
	result := r.db.WithContext(ctx).Clauses(forUpdate()).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.CompanyNotFound(id)
		}
		return nil, fmt.Errorf("failed to lock company: %w", result.Error)
	}
	return row.ToModel(), nil
}

// ListCompanies returns one page of companies ordered by id. A nil
// visibility lists every company.
func (r *Repository) ListCompanies(ctx context.Context, visibility *models.Visibility, page models.Page) ([]*models.Company, error) {
	query := r.db.WithContext(ctx).Model(&dbmodels.Company{}).Order("id")
	if visibility != nil {
		query = query.Where("visibility = ?", string(*visibility))
	}

	var rows []dbmodels.Company
	if err := paginate(query, page.Page, page.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	companies := make([]*models.Company, 0, len(rows))
	for i := range rows {
		companies = append(companies, rows[i].ToModel())
	}
	return companies, nil
}

func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if update.Visibility != nil {
		fields["visibility"] = string(*update.Visibility)
	}
	if len(fields) == 0 {
		_, err := r.GetCompany(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		if isDuplicate(result.Error) && update.Name != nil {
			return e.CompanyAlreadyExist(*update.Name)
		}
		return fmt.Errorf("failed to update company: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.CompanyNotFound(update.ID)
	}
	return nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Company{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete company: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.CompanyNotFound(id)
	}
	return nil
}

func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Select("name").
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}
