// Package events publishes membership and quiz lifecycle events to Kafka
// and consumes them back to build in-app notifications.
package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	InviteSent           EventType = "invite_sent"
	InviteCancelled      EventType = "invite_cancelled"
	JoinRequested        EventType = "join_requested"
	JoinRequestCancelled EventType = "join_request_cancelled"
	InviteAccepted       EventType = "invite_accepted"
	InviteRejected       EventType = "invite_rejected"
	MemberLeft           EventType = "member_left"
	MemberRemoved        EventType = "member_removed"
	AdminAssigned        EventType = "admin_assigned"
	AdminRemoved         EventType = "admin_removed"
	QuizPublished        EventType = "quiz_published"
)

// Event describes a committed state change. UserID is the user the change
// is about; ActorID is the user who performed it.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	CompanyID  int64     `json:"company_id"`
	UserID     int64     `json:"user_id,omitempty"`
	ActorID    int64     `json:"actor_id,omitempty"`
	InviteID   int64     `json:"invite_id,omitempty"`
	QuizID     int64     `json:"quiz_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh event id and the current time.
func NewEvent(eventType EventType, companyID, userID, actorID int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		CompanyID:  companyID,
		UserID:     userID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Key partitions events by company so that one company's events stay ordered.
func (e Event) Key() []byte {
	return []byte(strconv.FormatInt(e.CompanyID, 10))
}
