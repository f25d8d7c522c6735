package db

import (
	"context"
	"fmt"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

func (r *Repository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if quiz.Status == "" {
		quiz.Status = models.QuizDraft
	}
	row := &dbmodels.Quiz{
		CompanyID:   quiz.CompanyID,
		CreatedBy:   quiz.CreatedBy,
		Title:       quiz.Title,
		Description: quiz.Description,
		Status:      string(quiz.Status),
	}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		switch {
		case isDuplicate(result.Error):
			return e.QuizAlreadyExist(quiz.Title)
		case isForeignKey(result.Error):
			return e.CompanyNotFound(quiz.CompanyID)
		}
		return fmt.Errorf("failed to create quiz: %w", result.Error)
	}
	*quiz = *row.ToModel()
	return nil
}

func (r *Repository) GetQuiz(ctx context.Context, id int64) (*models.Quiz, error) {
	var row dbmodels.Quiz
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if isNotFound(result.Error) {
			return nil, e.QuizNotFound(id)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", result.Error)
	}
	return row.ToModel(), nil
}

func (r *Repository) ListQuizzes(ctx context.Context, companyID int64, page models.Page) ([]*models.Quiz, error) {
	query := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("id")

	var rows []dbmodels.Quiz
	if err := paginate(query, page.Page, page.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	quizzes := make([]*models.Quiz, 0, len(rows))
	for i := range rows {
		quizzes = append(quizzes, rows[i].ToModel())
	}
	return quizzes, nil
}

func (r *Repository) UpdateQuiz(ctx context.Context, update *models.QuizUpdate) error {
	fields := map[string]any{}
	if update.Title != nil {
		fields["title"] = *update.Title
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if len(fields) == 0 {
		_, err := r.GetQuiz(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&dbmodels.Quiz{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		if isDuplicate(result.Error) && update.Title != nil {
			return e.QuizAlreadyExist(*update.Title)
		}
		return fmt.Errorf("failed to update quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.QuizNotFound(update.ID)
	}
	return nil
}

func (r *Repository) SetQuizStatus(ctx context.Context, id int64, status models.QuizStatus) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Quiz{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("failed to update quiz status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.QuizNotFound(id)
	}
	return nil
}

func (r *Repository) DeleteQuiz(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&dbmodels.Quiz{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete quiz: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return e.QuizNotFound(id)
	}
	return nil
}
