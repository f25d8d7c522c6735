package models

import "time"

// Role is an established relationship between a user and a company.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Membership is the role row for a (company, user) pair. At most one exists per pair.
type Membership struct {
	ID        int64
	CompanyID int64
	UserID    int64
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RelationshipKind tags the variants of Relationship.
type RelationshipKind string

const (
	RelationshipNone              RelationshipKind = "none"
	RelationshipRole              RelationshipKind = "role"
	RelationshipPendingInvitation RelationshipKind = "pending_invitation"
	RelationshipPendingRequest    RelationshipKind = "pending_request"
	RelationshipRejected          RelationshipKind = "rejected"
)

// Relationship is the combined view of the role and invite relations for a
// (company, user) pair. Role is set only when Kind is RelationshipRole and
// Invite only for the pending and rejected kinds.
type Relationship struct {
	Kind   RelationshipKind
	Role   Role
	Invite *Invite
}
