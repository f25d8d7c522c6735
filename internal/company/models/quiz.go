package models

import "time"

// QuizStatus is the publication state of a quiz.
type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizArchived  QuizStatus = "archived"
)

// QuizStatuses lists every valid status.
var QuizStatuses = []QuizStatus{QuizDraft, QuizPublished, QuizArchived}

func (s QuizStatus) Valid() bool {
	for _, v := range QuizStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Quiz belongs to a company; its title is unique within that company.
type Quiz struct {
	ID          int64
	CompanyID   int64
	CreatedBy   int64
	Title       string
	Description string
	Status      QuizStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// QuizUpdate carries the editable fields of a quiz.
type QuizUpdate struct {
	ID          int64
	Title       *string
	Description *string
}
