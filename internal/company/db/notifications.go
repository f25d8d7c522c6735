package db

import (
	"context"
	"fmt"

	dbmodels "github.com/gartstein/companyhub/internal/company/db/models"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
)

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	status := n.Status
	if status == "" {
		status = models.NotificationNew
	}
	row := &dbmodels.Notification{UserID: n.UserID, Text: n.Text, Status: string(status)}
	result := r.db.WithContext(ctx).Create(row)
	if result.Error != nil {
		if isForeignKey(result.Error) {
			return e.UserNotFound(n.UserID)
		}
		return fmt.Errorf("failed to create notification: %w", result.Error)
	}
	*n = *row.ToModel()
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID int64, page models.Page) ([]*models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")

	var rows []dbmodels.Notification
	if err := paginate(query, page.Page, page.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]*models.Notification, 0, len(rows))
	for i := range rows {
		notifications = append(notifications, rows[i].ToModel())
	}
	return notifications, nil
}

// MarkNotificationRead flips a notification owned by userID to read.
// Notifications of other users are reported as not found.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID int64) (*models.Notification, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", string(models.NotificationRead))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, e.NotificationNotFound(id)
	}

	var row dbmodels.Notification
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return row.ToModel(), nil
}
