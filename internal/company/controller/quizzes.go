package controller

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

const (
	maxQuizTitle       = 255
	maxQuizDescription = 500
)

var quizEditors = []models.Role{models.RoleOwner, models.RoleAdmin}

// QuizService manages company quizzes. Owners and admins edit them; any
// role holder can list them.
type QuizService struct {
	repo     Repository
	guard    *Guard
	producer EventProducer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewQuizService(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger) *QuizService {
	return &QuizService{
		repo:     repo,
		guard:    NewGuard(NewRoleRegistry(repo), m),
		producer: producer,
		metrics:  m,
		logger:   logger.Named("quiz_service"),
	}
}

func validateQuizFields(title, description *string) error {
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" || utf8.RuneCountInString(trimmed) > maxQuizTitle {
			return e.Validation("Quiz title must be between 1 and %d characters.", maxQuizTitle)
		}
		*title = trimmed
	}
	if description != nil && utf8.RuneCountInString(*description) > maxQuizDescription {
		return e.Validation("Quiz description must be at most %d characters.", maxQuizDescription)
	}
	return nil
}

func (s *QuizService) CreateQuiz(ctx context.Context, quiz *models.Quiz, actorID int64) (*models.Quiz, error) {
	if err := validateQuizFields(&quiz.Title, &quiz.Description); err != nil {
		return nil, err
	}
	quiz.CreatedBy = actorID
	quiz.Status = models.QuizDraft

	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		if _, err := repo.LockCompany(ctx, quiz.CompanyID); err != nil {
			return err
		}
		if _, err := NewGuard(NewRoleRegistry(repo), s.metrics).RequireRole(ctx, quiz.CompanyID, actorID, quizEditors...); err != nil {
			return err
		}
		return repo.CreateQuiz(ctx, quiz)
	})
	if err != nil {
		logFailure(s.logger, "create_quiz", err)
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	return s.repo.GetQuiz(ctx, id)
}

// ListQuizzes is available to any role holder of the company.
func (s *QuizService) ListQuizzes(ctx context.Context, companyID, actorID int64, page models.Page) ([]*models.Quiz, error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireRole(ctx, companyID, actorID, models.RoleOwner, models.RoleAdmin, models.RoleMember); err != nil {
		return nil, err
	}
	return s.repo.ListQuizzes(ctx, companyID, page)
}

// editQuiz loads the quiz in a transaction and checks the actor may edit it.
func (s *QuizService) editQuiz(ctx context.Context, op string, quizID, actorID int64, fn func(repo *db.Repository, quiz *models.Quiz) error) error {
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		quiz, err := repo.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		if _, err := repo.LockCompany(ctx, quiz.CompanyID); err != nil {
			return err
		}
		if _, err := NewGuard(NewRoleRegistry(repo), s.metrics).RequireRole(ctx, quiz.CompanyID, actorID, quizEditors...); err != nil {
			return err
		}
		return fn(repo, quiz)
	})
	if err != nil {
		logFailure(s.logger, op, err)
	}
	return err
}

func (s *QuizService) UpdateQuiz(ctx context.Context, update *models.QuizUpdate, actorID int64) (*models.Quiz, error) {
	if err := validateQuizFields(update.Title, update.Description); err != nil {
		return nil, err
	}

	var updated *models.Quiz
	err := s.editQuiz(ctx, "update_quiz", update.ID, actorID, func(repo *db.Repository, _ *models.Quiz) error {
		if err := repo.UpdateQuiz(ctx, update); err != nil {
			return err
		}
		var err error
		updated, err = repo.GetQuiz(ctx, update.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ChangeStatus moves a quiz between draft, published and archived.
// Publishing produces a quiz_published event.
func (s *QuizService) ChangeStatus(ctx context.Context, quizID int64, status models.QuizStatus, actorID int64) (*models.Quiz, error) {
	if !status.Valid() {
		valid := make([]string, 0, len(models.QuizStatuses))
		for _, st := range models.QuizStatuses {
			valid = append(valid, string(st))
		}
		return nil, e.InvalidStatus(string(status), valid...)
	}

	var (
		updated   *models.Quiz
		published bool
	)
	err := s.editQuiz(ctx, "change_quiz_status", quizID, actorID, func(repo *db.Repository, quiz *models.Quiz) error {
		if err := repo.SetQuizStatus(ctx, quizID, status); err != nil {
			return err
		}
		published = status == models.QuizPublished && quiz.Status != models.QuizPublished
		quiz.Status = status
		updated = quiz
		return nil
	})
	if err != nil {
		return nil, err
	}

	if published && s.producer != nil {
		event := events.NewEvent(events.QuizPublished, updated.CompanyID, 0, actorID)
		event.QuizID = updated.ID
		s.producer.Produce(event)
	}
	return updated, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, quizID, actorID int64) error {
	return s.editQuiz(ctx, "delete_quiz", quizID, actorID, func(repo *db.Repository, _ *models.Quiz) error {
		return repo.DeleteQuiz(ctx, quizID)
	})
}
