package controller

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gartstein/companyhub/internal/company/auth"
	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	maxUserName       = 100
)

type TokenIssuer interface {
	GenerateToken(userID int64) (string, error)
}

type UserService struct {
	repo   Repository
	tokens TokenIssuer
	logger *zap.Logger
}

func NewUserService(repo Repository, tokens TokenIssuer, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		logger: logger.Named("user_service"),
	}
}

func validateSignUp(in *models.SignUp) error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return e.Validation("'%s' is not a valid email address.", in.Email)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		return e.Validation("Password must be at least %d characters long.", minPasswordLength)
	}
	return nil
}

// SignUp registers an active user with a bcrypt password hash.
func (s *UserService) SignUp(ctx context.Context, in *models.SignUp) (*models.User, error) {
	if err := validateSignUp(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, e.UserAlreadyExist(in.Email)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", zap.Int64("user_id", user.ID))
	return user, nil
}

// Login verifies the credentials and issues an access token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return "", e.ErrInvalidCredentials
		}
		return "", err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !ok || !user.IsActive {
		return "", e.ErrInvalidCredentials
	}

	return s.tokens.GenerateToken(user.ID)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers returns one page of users.
func (s *UserService) ListUsers(ctx context.Context, page models.Page) ([]*models.User, error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx, page)
}

func validateUserNames(names ...*string) error {
	for _, name := range names {
		if name == nil {
			continue
		}
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > maxUserName {
			return e.Validation("Name must be between 1 and %d characters.", maxUserName)
		}
		*name = trimmed
	}
	return nil
}

// UpdateUser changes the profile of the acting user. Other accounts are
// refused once they are known to exist.
func (s *UserService) UpdateUser(ctx context.Context, update *models.UserUpdate, actorID int64) (*models.User, error) {
	if err := validateUserNames(update.FirstName, update.LastName); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.GetUser(ctx, update.ID); err != nil {
			return err
		}
		if update.ID != actorID {
			return e.ErrDeniedUser
		}
		if err := repo.UpdateUser(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = repo.GetUser(ctx, update.ID)
		return err
	})
	if err != nil {
		logFailure(s.logger, "update_user", err)
		return nil, err
	}
	return updated, nil
}

// DeleteUser removes the acting user's account together with the companies
// it owns and every membership, invite and notification of the user.
func (s *UserService) DeleteUser(ctx context.Context, id, actorID int64) error {
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.GetUser(ctx, id); err != nil {
			return err
		}
		if id != actorID {
			return e.ErrDeniedUser
		}
		return repo.DeleteUser(ctx, id)
	})
	if err != nil {
		logFailure(s.logger, "delete_user", err)
		return err
	}

	s.logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}
