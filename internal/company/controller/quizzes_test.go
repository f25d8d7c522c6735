package controller

import (
	"testing"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/gartstein/companyhub/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizLifecycle(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin")
	f.member(t, admin)
	_, err := f.invites.AssignAdmin(f.ctx, f.company.ID, admin.ID, f.owner.ID)
	require.NoError(t, err)

	quiz, err := f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: f.company.ID, Title: " Safety "}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "Safety", quiz.Title)
	assert.Equal(t, models.QuizDraft, quiz.Status)
	assert.Equal(t, admin.ID, quiz.CreatedBy)

	_, err = f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: f.company.ID, Title: "Safety"}, f.owner.ID)
	assert.ErrorIs(t, err, e.ErrQuizAlreadyExist)

	updated, err := f.quizzes.UpdateQuiz(f.ctx, &models.QuizUpdate{ID: quiz.ID, Description: utils.Ptr("hard hats")}, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "hard hats", updated.Description)
	assert.Equal(t, "Safety", updated.Title)

	before := len(f.producer.produced())
	published, err := f.quizzes.ChangeStatus(f.ctx, quiz.ID, models.QuizPublished, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuizPublished, published.Status)
	require.Len(t, f.producer.produced(), before+1)
	event := f.producer.last()
	assert.Equal(t, events.QuizPublished, event.Type)
	assert.Equal(t, quiz.ID, event.QuizID)

	// publishing again is not a transition
	_, err = f.quizzes.ChangeStatus(f.ctx, quiz.ID, models.QuizPublished, admin.ID)
	require.NoError(t, err)
	assert.Len(t, f.producer.produced(), before+1)

	_, err = f.quizzes.ChangeStatus(f.ctx, quiz.ID, "live", admin.ID)
	assert.ErrorIs(t, err, e.ErrInvalidStatus)
	assert.Equal(t, "Invalid status: live. Available statuses are: draft, published, archived.", err.Error())

	require.NoError(t, f.quizzes.DeleteQuiz(f.ctx, quiz.ID, f.owner.ID))
	_, err = f.quizzes.GetQuiz(f.ctx, quiz.ID)
	assert.ErrorIs(t, err, e.ErrQuizNotFound)
}

func TestQuizPermissions(t *testing.T) {
	f := newFixture(t)
	member := f.user(t, "member")
	outsider := f.user(t, "outsider")
	f.member(t, member)

	_, err := f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: f.company.ID, Title: "Ethics"}, member.ID)
	assert.ErrorIs(t, err, e.ErrPermission)

	quiz, err := f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: f.company.ID, Title: "Ethics"}, f.owner.ID)
	require.NoError(t, err)

	_, err = f.quizzes.UpdateQuiz(f.ctx, &models.QuizUpdate{ID: quiz.ID, Title: utils.Ptr("Morals")}, member.ID)
	assert.ErrorIs(t, err, e.ErrPermission)
	err = f.quizzes.DeleteQuiz(f.ctx, quiz.ID, member.ID)
	assert.ErrorIs(t, err, e.ErrPermission)

	quizzes, err := f.quizzes.ListQuizzes(f.ctx, f.company.ID, member.ID, models.Page{})
	require.NoError(t, err)
	require.Len(t, quizzes, 1)

	_, err = f.quizzes.ListQuizzes(f.ctx, f.company.ID, outsider.ID, models.Page{})
	assert.ErrorIs(t, err, e.ErrPermission)

	_, err = f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: 999, Title: "Ghost"}, f.owner.ID)
	assert.ErrorIs(t, err, e.ErrCompanyNotFound)

	_, err = f.quizzes.CreateQuiz(f.ctx, &models.Quiz{CompanyID: f.company.ID, Title: ""}, f.owner.ID)
	assert.ErrorIs(t, err, e.ErrValidation)

	err = f.quizzes.DeleteQuiz(f.ctx, 999, f.owner.ID)
	assert.ErrorIs(t, err, e.ErrQuizNotFound)
}
