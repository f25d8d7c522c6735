package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

// NotificationService stores in-app notifications derived from membership
// and quiz events.
type NotificationService struct {
	repo   Repository
	logger *zap.Logger
}

func NewNotificationService(repo Repository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.Named("notification_service"),
	}
}

func (s *NotificationService) ListNotifications(ctx context.Context, userID int64, page models.Page) ([]*models.Notification, error) {
	page, err := NormalizePage(page)
	if err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, userID, page)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) (*models.Notification, error) {
	return s.repo.MarkNotificationRead(ctx, id, userID)
}

// HandleEvent turns one event into notifications for the users it
// concerns. Events about companies or users that no longer exist are skipped.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	company, err := s.repo.GetCompany(ctx, event.CompanyID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logger.Debug("skipping event for missing company",
				zap.String("event_type", string(event.Type)),
				zap.Int64("company_id", event.CompanyID),
			)
			return nil
		}
		return err
	}

	recipients, text, err := s.compose(ctx, event, company)
	if err != nil {
		return err
	}
	for _, userID := range recipients {
		if err := s.notify(ctx, userID, text); err != nil {
			return err
		}
	}
	return nil
}

func (s *NotificationService) compose(ctx context.Context, event events.Event, company *models.Company) ([]int64, string, error) {
	owner := []int64{company.OwnerID}
	user := []int64{event.UserID}
	// accept and reject are performed either by the invited user or by the
	// owner deciding a join request
	byUser := event.ActorID == event.UserID

	switch event.Type {
	case events.InviteSent:
		return user, fmt.Sprintf("You have been invited to join the company '%s'.", company.Name), nil
	case events.InviteCancelled:
		return user, fmt.Sprintf("Your invitation to the company '%s' was cancelled.", company.Name), nil
	case events.JoinRequested:
		return owner, fmt.Sprintf("User with ID %d requested to join the company '%s'.", event.UserID, company.Name), nil
	case events.JoinRequestCancelled:
		return owner, fmt.Sprintf("User with ID %d withdrew the request to join the company '%s'.", event.UserID, company.Name), nil
	case events.InviteAccepted:
		if byUser {
			return owner, fmt.Sprintf("User with ID %d accepted the invitation to the company '%s'.", event.UserID, company.Name), nil
		}
		return user, fmt.Sprintf("Your request to join the company '%s' was accepted.", company.Name), nil
	case events.InviteRejected:
		if byUser {
			return owner, fmt.Sprintf("User with ID %d rejected the invitation to the company '%s'.", event.UserID, company.Name), nil
		}
		return user, fmt.Sprintf("Your request to join the company '%s' was rejected.", company.Name), nil
	case events.MemberLeft:
		return owner, fmt.Sprintf("User with ID %d left the company '%s'.", event.UserID, company.Name), nil
	case events.MemberRemoved:
		return user, fmt.Sprintf("You were removed from the company '%s'.", company.Name), nil
	case events.AdminAssigned:
		return user, fmt.Sprintf("You are now an admin of the company '%s'.", company.Name), nil
	case events.AdminRemoved:
		return user, fmt.Sprintf("You are no longer an admin of the company '%s'.", company.Name), nil
	case events.QuizPublished:
		members, err := s.repo.ListMemberships(ctx, company.ID)
		if err != nil {
			return nil, "", err
		}
		recipients := make([]int64, 0, len(members))
		for _, m := range members {
			if m.UserID != event.ActorID {
				recipients = append(recipients, m.UserID)
			}
		}
		return recipients, fmt.Sprintf("A new quiz was published in the company '%s'.", company.Name), nil
	}

	s.logger.Warn("unknown event type", zap.String("event_type", string(event.Type)))
	return nil, "", nil
}

func (s *NotificationService) notify(ctx context.Context, userID int64, text string) error {
	err := s.repo.CreateNotification(ctx, &models.Notification{UserID: userID, Text: text})
	if errors.Is(err, e.ErrUserNotFound) {
		s.logger.Debug("skipping notification for missing user", zap.Int64("user_id", userID))
		return nil
	}
	return err
}

// SendReminders notifies the party that has to act on every invite pending
// for longer than olderThan: the invited user for invitations and the owner
// for join requests. It returns the number of notifications created.
func (s *NotificationService) SendReminders(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	pending, err := s.repo.ListInvites(ctx, db.InviteFilter{
		Status:        models.InvitePending,
		CreatedBefore: now.Add(-olderThan),
	})
	if err != nil {
		return 0, err
	}

	companies := map[int64]*models.Company{}
	sent := 0
	for _, invite := range pending {
		company, ok := companies[invite.CompanyID]
		if !ok {
			company, err = s.repo.GetCompany(ctx, invite.CompanyID)
			if err != nil {
				if errors.Is(err, e.ErrNotFound) {
					continue
				}
				return sent, err
			}
			companies[invite.CompanyID] = company
		}

		recipient := invite.UserID
		text := fmt.Sprintf("Reminder: you have a pending invitation to the company '%s'.", company.Name)
		if invite.Kind == models.KindRequest {
			recipient = company.OwnerID
			text = fmt.Sprintf("Reminder: user with ID %d is waiting for an answer to the request to join the company '%s'.",
				invite.UserID, company.Name)
		}
		if err := s.notify(ctx, recipient, text); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
