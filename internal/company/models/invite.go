package models

import "time"

// InviteStatus is the lifecycle state of an invite.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

// Terminal reports whether no further status transition is permitted.
func (s InviteStatus) Terminal() bool {
	return s == InviteAccepted || s == InviteRejected
}

// InviteKind records which side opened the invite.
type InviteKind string

const (
	// KindInvitation is opened by the company owner.
	KindInvitation InviteKind = "invitation"
	// KindRequest is a join request opened by the user.
	KindRequest InviteKind = "request"
)

func (k InviteKind) Valid() bool {
	return k == KindInvitation || k == KindRequest
}

// InviteAction is the decision applied to a pending invite.
type InviteAction string

const (
	ActionAccept InviteAction = "accept"
	ActionReject InviteAction = "reject"
)

// Status maps an action to the terminal status it produces.
func (a InviteAction) Status() (InviteStatus, bool) {
	switch a {
	case ActionAccept:
		return InviteAccepted, true
	case ActionReject:
		return InviteRejected, true
	}
	return "", false
}

// Invite is a proposed relationship between a user and a company.
type Invite struct {
	ID        int64
	CompanyID int64
	UserID    int64
	Kind      InviteKind
	Status    InviteStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InviteDecision is the outcome of accepting or rejecting an invite.
// Membership is set when the decision promoted the user to a member.
type InviteDecision struct {
	Invite     *Invite
	Membership *Membership
}
