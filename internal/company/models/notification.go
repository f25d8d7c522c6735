package models

import "time"

type NotificationStatus string

const (
	NotificationNew  NotificationStatus = "new"
	NotificationRead NotificationStatus = "read"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        int64
	UserID    int64
	Text      string
	Status    NotificationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
