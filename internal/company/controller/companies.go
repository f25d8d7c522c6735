package controller

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

const (
	maxCompanyName        = 100
	maxCompanyDescription = 256
	defaultPageSize       = 10
	maxPageSize           = 100
)

// CompanyService manages companies. Mutations other than creation are
// restricted to the owner.
type CompanyService struct {
	repo    Repository
	guard   *Guard
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewCompanyService(repo Repository, m *metrics.Metrics, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:    repo,
		guard:   NewGuard(NewRoleRegistry(repo), m),
		metrics: m,
		logger:  logger.Named("company_service"),
	}
}

// NormalizePage applies listing defaults and rejects out of range values.
func NormalizePage(page models.Page) (models.Page, error) {
	if page.Page == 0 {
		page.Page = 1
	}
	if page.PageSize == 0 {
		page.PageSize = defaultPageSize
	}
	if page.Page < 1 {
		return page, e.Validation("Page must be greater than or equal to 1.")
	}
	if page.PageSize < 1 || page.PageSize > maxPageSize {
		return page, e.Validation("Page size must be between 1 and %d.", maxPageSize)
	}
	return page, nil
}

func validateCompanyFields(name, description *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > maxCompanyName {
			return e.Validation("Company name must be between 1 and %d characters.", maxCompanyName)
		}
		*name = trimmed
	}
	if description != nil && utf8.RuneCountInString(*description) > maxCompanyDescription {
		return e.Validation("Company description must be at most %d characters.", maxCompanyDescription)
	}
	return nil
}

// CreateCompany stores the company and makes ownerID its OWNER in the same
// transaction.
func (s *CompanyService) CreateCompany(ctx context.Context, company *models.Company, ownerID int64) (*models.Company, error) {
	if err := validateCompanyFields(&company.Name, &company.Description); err != nil {
		return nil, err
	}
	if company.Visibility == "" {
		company.Visibility = models.Visible
	}
	if !company.Visibility.Valid() {
		return nil, e.InvalidStatus(string(company.Visibility), string(models.Hidden), string(models.Visible))
	}

	exists, err := s.repo.CompanyExistsByName(ctx, company.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, e.CompanyAlreadyExist(company.Name)
	}

	company.OwnerID = ownerID
	err = s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if err := repo.CreateCompany(ctx, company); err != nil {
			return err
		}
		_, err := NewRoleRegistry(repo).AddRole(ctx, company.ID, ownerID, models.RoleOwner)
		return err
	})
	if err != nil {
		logFailure(s.logger, "create_company", err)
		return nil, err
	}

	s.logger.Info("company created",
		zap.Int64("company_id", company.ID),
		zap.Int64("owner_id", ownerID),
	)
	return company, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id int64) (*models.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// ListCompanies returns one page of visible companies.
func (s *CompanyService) ListCompanies(ctx context.Context, page models.Page) ([]*models.Company, error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}
	visible := models.Visible
	return s.repo.ListCompanies(ctx, &visible, page)
}

// UpdateCompany modifies the specified Company fields and returns the
// updated version.
func (s *CompanyService) UpdateCompany(ctx context.Context, update *models.CompanyUpdate, actorID int64) (*models.Company, error) {
	if err := validateCompanyFields(update.Name, update.Description); err != nil {
		return nil, err
	}
	if update.Visibility != nil && !update.Visibility.Valid() {
		return nil, e.InvalidStatus(string(*update.Visibility), string(models.Hidden), string(models.Visible))
	}

	var updated *models.Company
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.LockCompany(ctx, update.ID); err != nil {
			return err
		}
		guard := NewGuard(NewRoleRegistry(repo), s.metrics)
		if _, err := guard.RequireRole(ctx, update.ID, actorID, models.RoleOwner); err != nil {
			return err
		}
		if err := repo.UpdateCompany(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = repo.GetCompany(ctx, update.ID)
		return err
	})
	if err != nil {
		logFailure(s.logger, "update_company", err)
		return nil, err
	}
	return updated, nil
}

// ChangeVisibility is UpdateCompany restricted to the visibility field.
func (s *CompanyService) ChangeVisibility(ctx context.Context, companyID int64, visibility models.Visibility, actorID int64) (*models.Company, error) {
	return s.UpdateCompany(ctx, &models.CompanyUpdate{ID: companyID, Visibility: &visibility}, actorID)
}

// DeleteCompany removes a Company by ID together with its roles, invites
// and quizzes.
func (s *CompanyService) DeleteCompany(ctx context.Context, id, actorID int64) error {
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.LockCompany(ctx, id); err != nil {
			return err
		}
		guard := NewGuard(NewRoleRegistry(repo), s.metrics)
		if _, err := guard.RequireRole(ctx, id, actorID, models.RoleOwner); err != nil {
			return err
		}
		return repo.DeleteCompany(ctx, id)
	})
	if err != nil {
		logFailure(s.logger, "delete_company", err)
		return err
	}

	s.logger.Info("company deleted", zap.Int64("company_id", id), zap.Int64("actor_id", actorID))
	return nil
}
