package controller

import (
	"context"
	"errors"

	"github.com/gartstein/companyhub/internal/company/db"
	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/events"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
	"go.uber.org/zap"
)

// InviteService is the invitation and membership lifecycle engine. Per
// (company, user) pair an invite moves from none to pending and from
// pending to accepted or rejected; cancellation deletes it.
type InviteService struct {
	repo           Repository
	roles          *RoleRegistry
	guard          *Guard
	producer       EventProducer
	metrics        *metrics.Metrics
	logger         *zap.Logger
	concealForeign bool
}

type InviteOption func(*InviteService)

// WithConcealedForeignInvites reports invites addressed to another user as
// not found instead of denied.
func WithConcealedForeignInvites(conceal bool) InviteOption {
	return func(s *InviteService) {
		s.concealForeign = conceal
	}
}

func NewInviteService(repo Repository, producer EventProducer, m *metrics.Metrics, logger *zap.Logger, opts ...InviteOption) *InviteService {
	roles := NewRoleRegistry(repo)
	s := &InviteService{
		repo:     repo,
		roles:    roles,
		guard:    NewGuard(roles, m),
		producer: producer,
		metrics:  m,
		logger:   logger.Named("invite_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// txScope binds the registry and guard to one transaction.
type txScope struct {
	repo   *db.Repository
	roles  *RoleRegistry
	guard  *Guard
	events *outbox
}

func (s *InviteService) mutate(ctx context.Context, op string, fn func(tx *txScope) error) error {
	var box outbox
	err := s.repo.WithTransaction(ctx, func(repo *db.Repository) error {
		roles := NewRoleRegistry(repo)
		return fn(&txScope{
			repo:   repo,
			roles:  roles,
			guard:  NewGuard(roles, s.metrics),
			events: &box,
		})
	})
	s.metrics.Operation(op, err)
	if err != nil {
		logFailure(s.logger, op, err)
		return err
	}
	box.flush(s.producer)
	return nil
}

// ownedCompany locks the company and requires actorID to be its owner.
func (tx *txScope) ownedCompany(ctx context.Context, companyID, actorID int64) (*models.Company, error) {
	company, err := tx.repo.LockCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.guard.RequireRole(ctx, companyID, actorID, models.RoleOwner); err != nil {
		return nil, err
	}
	return company, nil
}

// openInvite creates a pending invite of the given kind. A decided row for
// the pair is replaced; a role or a pending row is a conflict.
func (tx *txScope) openInvite(ctx context.Context, companyID, userID int64, kind models.InviteKind) (*models.Invite, error) {
	membership, err := tx.roles.GetRole(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return nil, e.UserAlreadyMember(companyID, userID, string(membership.Role))
	}

	existing, err := tx.repo.FindInvite(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.InvitePending {
			return nil, e.InvitationAlreadyExist(userID)
		}
		if err := tx.repo.DeleteInvite(ctx, existing.ID); err != nil {
			return nil, err
		}
	}

	invite := &models.Invite{
		CompanyID: companyID,
		UserID:    userID,
		Kind:      kind,
		Status:    models.InvitePending,
	}
	if err := tx.repo.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

// decide moves a pending invite to status. Accepting grants the MEMBER
// role in the same transaction.
func (tx *txScope) decide(ctx context.Context, invite *models.Invite, status models.InviteStatus, actorID int64) (*models.InviteDecision, error) {
	if invite.Status.Terminal() {
		if invite.Status == models.InviteAccepted {
			return nil, e.InvitationAlreadyAccepted(invite.ID)
		}
		return nil, e.InvitationAlreadyRejected(invite.ID)
	}

	if err := tx.repo.UpdateInviteStatus(ctx, invite.ID, status); err != nil {
		return nil, err
	}
	invite.Status = status
	decision := &models.InviteDecision{Invite: invite}

	eventType := events.InviteRejected
	if status == models.InviteAccepted {
		membership, err := tx.roles.AddRole(ctx, invite.CompanyID, invite.UserID, models.RoleMember)
		if err != nil {
			return nil, err
		}
		decision.Membership = membership
		eventType = events.InviteAccepted
	}

	event := events.NewEvent(eventType, invite.CompanyID, invite.UserID, actorID)
	event.InviteID = invite.ID
	tx.events.add(event)
	return decision, nil
}

// SendInvite lets the owner invite targetID into the company.
func (s *InviteService) SendInvite(ctx context.Context, companyID, targetID, actorID int64) (*models.Invite, error) {
	var invite *models.Invite
	err := s.mutate(ctx, "send_invite", func(tx *txScope) error {
		if _, err := tx.ownedCompany(ctx, companyID, actorID); err != nil {
			return err
		}
		if targetID == actorID {
			return e.ErrCannotInviteYourself
		}
		if _, err := tx.repo.GetUser(ctx, targetID); err != nil {
			return err
		}

		var err error
		invite, err = tx.openInvite(ctx, companyID, targetID, models.KindInvitation)
		if err != nil {
			return err
		}
		event := events.NewEvent(events.InviteSent, companyID, targetID, actorID)
		event.InviteID = invite.ID
		tx.events.add(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// CancelInvite deletes the owner's pending invitation of targetID.
func (s *InviteService) CancelInvite(ctx context.Context, companyID, targetID, actorID int64) error {
	return s.mutate(ctx, "cancel_invite", func(tx *txScope) error {
		if _, err := tx.ownedCompany(ctx, companyID, actorID); err != nil {
			return err
		}
		invite, err := tx.repo.FindInvite(ctx, companyID, targetID)
		if err != nil {
			return err
		}
		if !isPending(invite, models.KindInvitation) {
			return e.InvitationNotExistsForPair(companyID, targetID)
		}
		if err := tx.repo.DeleteInvite(ctx, invite.ID); err != nil {
			return err
		}

		event := events.NewEvent(events.InviteCancelled, companyID, targetID, actorID)
		event.InviteID = invite.ID
		tx.events.add(event)
		return nil
	})
}

// DecideRequest lets the owner accept or reject a join request.
func (s *InviteService) DecideRequest(ctx context.Context, companyID, inviteID int64, action models.InviteAction, actorID int64) (*models.InviteDecision, error) {
	status, ok := action.Status()
	if !ok {
		err := e.InvalidAction(string(action))
		s.metrics.Operation("decide_request", err)
		return nil, err
	}

	var decision *models.InviteDecision
	err := s.mutate(ctx, "decide_request", func(tx *txScope) error {
		if _, err := tx.ownedCompany(ctx, companyID, actorID); err != nil {
			return err
		}
		invite, err := tx.repo.LockInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if invite.CompanyID != companyID || invite.Kind != models.KindRequest {
			return e.InvitationNotExists(inviteID)
		}

		decision, err = tx.decide(ctx, invite, status, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// RespondToInvite lets the invited user accept or reject an invitation.
func (s *InviteService) RespondToInvite(ctx context.Context, inviteID int64, action models.InviteAction, actorID int64) (*models.InviteDecision, error) {
	status, ok := action.Status()
	if !ok {
		err := e.InvalidAction(string(action))
		s.metrics.Operation("respond_to_invite", err)
		return nil, err
	}

	var decision *models.InviteDecision
	err := s.mutate(ctx, "respond_to_invite", func(tx *txScope) error {
		invite, err := tx.repo.GetInvite(ctx, inviteID)
		if err != nil {
			return err
		}
		if invite.UserID != actorID || invite.Kind != models.KindInvitation {
			return s.foreignInvite(inviteID)
		}

		// company before invite, the same lock order as DecideRequest
		if _, err := tx.repo.LockCompany(ctx, invite.CompanyID); err != nil {
			return err
		}
		if invite, err = tx.repo.LockInvite(ctx, inviteID); err != nil {
			return err
		}

		decision, err = tx.decide(ctx, invite, status, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

func (s *InviteService) AcceptInvite(ctx context.Context, inviteID, actorID int64) (*models.InviteDecision, error) {
	return s.RespondToInvite(ctx, inviteID, models.ActionAccept, actorID)
}

func (s *InviteService) RejectInvite(ctx context.Context, inviteID, actorID int64) (*models.InviteDecision, error) {
	return s.RespondToInvite(ctx, inviteID, models.ActionReject, actorID)
}

func (s *InviteService) foreignInvite(inviteID int64) error {
	if s.concealForeign {
		return e.InvitationNotExists(inviteID)
	}
	return e.ErrDeniedUser
}

// SendJoinRequest opens a join request of actorID to the company.
func (s *InviteService) SendJoinRequest(ctx context.Context, companyID, actorID int64) (*models.Invite, error) {
	var invite *models.Invite
	err := s.mutate(ctx, "send_join_request", func(tx *txScope) error {
		company, err := tx.repo.LockCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if company.OwnerID == actorID {
			return e.ErrCannotInviteYourself
		}

		invite, err = tx.openInvite(ctx, companyID, actorID, models.KindRequest)
		if err != nil {
			return err
		}
		event := events.NewEvent(events.JoinRequested, companyID, actorID, actorID)
		event.InviteID = invite.ID
		tx.events.add(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// CancelJoinRequest withdraws the actor's pending join request.
func (s *InviteService) CancelJoinRequest(ctx context.Context, companyID, actorID int64) error {
	return s.mutate(ctx, "cancel_join_request", func(tx *txScope) error {
		if _, err := tx.repo.LockCompany(ctx, companyID); err != nil {
			return err
		}
		invite, err := tx.repo.FindInvite(ctx, companyID, actorID)
		if err != nil {
			return err
		}
		if !isPending(invite, models.KindRequest) {
			return e.InvitationNotExistsForPair(companyID, actorID)
		}
		if err := tx.repo.DeleteInvite(ctx, invite.ID); err != nil {
			return err
		}

		event := events.NewEvent(events.JoinRequestCancelled, companyID, actorID, actorID)
		event.InviteID = invite.ID
		tx.events.add(event)
		return nil
	})
}

// LeaveCompany removes the actor's own role. The owner cannot leave.
func (s *InviteService) LeaveCompany(ctx context.Context, companyID, actorID int64) error {
	return s.mutate(ctx, "leave_company", func(tx *txScope) error {
		company, err := tx.repo.LockCompany(ctx, companyID)
		if err != nil {
			return err
		}
		membership, err := tx.roles.GetRole(ctx, companyID, actorID)
		if err != nil {
			return err
		}
		if membership == nil {
			return e.UserNotMember(companyID, actorID)
		}
		if membership.Role == models.RoleOwner || company.OwnerID == actorID {
			return e.ErrOwnerCannotLeave
		}

		if err := tx.roles.RemoveRole(ctx, companyID, actorID); err != nil {
			return err
		}
		if err := tx.repo.DeleteInvitesForPair(ctx, companyID, actorID); err != nil {
			return err
		}
		tx.events.add(events.NewEvent(events.MemberLeft, companyID, actorID, actorID))
		return nil
	})
}

// RemoveUser lets the owner expel a role holder.
func (s *InviteService) RemoveUser(ctx context.Context, companyID, targetID, actorID int64) error {
	return s.mutate(ctx, "remove_user", func(tx *txScope) error {
		if _, err := tx.ownedCompany(ctx, companyID, actorID); err != nil {
			return err
		}
		if targetID == actorID {
			return e.ErrCannotDeleteYourself
		}
		membership, err := tx.roles.GetRole(ctx, companyID, targetID)
		if err != nil {
			return err
		}
		if membership == nil {
			return e.UserNotMember(companyID, targetID)
		}

		if err := tx.roles.RemoveRole(ctx, companyID, targetID); err != nil {
			return err
		}
		if err := tx.repo.DeleteInvitesForPair(ctx, companyID, targetID); err != nil {
			return err
		}
		tx.events.add(events.NewEvent(events.MemberRemoved, companyID, targetID, actorID))
		return nil
	})
}

// AssignAdmin promotes a member to ADMIN.
func (s *InviteService) AssignAdmin(ctx context.Context, companyID, targetID, actorID int64) (*models.Membership, error) {
	return s.changeRole(ctx, "assign_admin", companyID, targetID, actorID, models.RoleAdmin, events.AdminAssigned)
}

// RemoveAdmin demotes an admin back to MEMBER.
func (s *InviteService) RemoveAdmin(ctx context.Context, companyID, targetID, actorID int64) (*models.Membership, error) {
	return s.changeRole(ctx, "remove_admin", companyID, targetID, actorID, models.RoleMember, events.AdminRemoved)
}

func (s *InviteService) changeRole(ctx context.Context, op string, companyID, targetID, actorID int64, role models.Role, eventType events.EventType) (*models.Membership, error) {
	var membership *models.Membership
	err := s.mutate(ctx, op, func(tx *txScope) error {
		if _, err := tx.ownedCompany(ctx, companyID, actorID); err != nil {
			return err
		}
		if targetID == actorID {
			return e.ErrCannotChangeOwnRole
		}

		var err error
		membership, err = tx.roles.SetRole(ctx, companyID, targetID, role)
		if err != nil {
			return err
		}
		tx.events.add(events.NewEvent(eventType, companyID, targetID, actorID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// ListUserInvites returns the pending invitations addressed to the actor.
func (s *InviteService) ListUserInvites(ctx context.Context, actorID int64) ([]*models.Invite, error) {
	return s.repo.ListInvites(ctx, db.InviteFilter{
		UserID: actorID,
		Kind:   models.KindInvitation,
		Status: models.InvitePending,
	})
}

// ListCompanyInvites returns the pending invites of a company, optionally of
// one kind. Owners and admins only.
func (s *InviteService) ListCompanyInvites(ctx context.Context, companyID, actorID int64, kind models.InviteKind) ([]*models.Invite, error) {
	if kind != "" && !kind.Valid() {
		return nil, e.Validation("Unknown invite kind '%s'. Please use 'invitation' or 'request'.", kind)
	}
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireRole(ctx, companyID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListInvites(ctx, db.InviteFilter{
		CompanyID: companyID,
		Kind:      kind,
		Status:    models.InvitePending,
	})
}

// ListAdmins is available to owners and admins.
func (s *InviteService) ListAdmins(ctx context.Context, companyID, actorID int64) ([]*models.Membership, error) {
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireRole(ctx, companyID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.roles.ListAdmins(ctx, companyID)
}

// ListMembers is available to any role holder of the company.
func (s *InviteService) ListMembers(ctx context.Context, companyID, actorID int64) ([]*models.Membership, error) {
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireRole(ctx, companyID, actorID, models.RoleOwner, models.RoleAdmin, models.RoleMember); err != nil {
		return nil, err
	}
	return s.roles.ListMembers(ctx, companyID)
}

// Relationship combines the role and invite rows of the pair into one view.
func (s *InviteService) Relationship(ctx context.Context, companyID, userID int64) (*models.Relationship, error) {
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, err
	}
	membership, err := s.roles.GetRole(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if membership != nil {
		return &models.Relationship{Kind: models.RelationshipRole, Role: membership.Role}, nil
	}

	invite, err := s.repo.FindInvite(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	switch {
	case invite == nil || invite.Status == models.InviteAccepted:
		return &models.Relationship{Kind: models.RelationshipNone}, nil
	case invite.Status == models.InviteRejected:
		return &models.Relationship{Kind: models.RelationshipRejected, Invite: invite}, nil
	case invite.Kind == models.KindRequest:
		return &models.Relationship{Kind: models.RelationshipPendingRequest, Invite: invite}, nil
	default:
		return &models.Relationship{Kind: models.RelationshipPendingInvitation, Invite: invite}, nil
	}
}

func isPending(invite *models.Invite, kind models.InviteKind) bool {
	return invite != nil && invite.Kind == kind && invite.Status == models.InvitePending
}

// logFailure logs expected outcomes at debug and everything else at error.
func logFailure(logger *zap.Logger, op string, err error) {
	var coded *e.Error
	if errors.As(err, &coded) {
		logger.Debug("operation refused",
			zap.String("operation", op),
			zap.String("code", coded.Code),
		)
		return
	}
	logger.Error("operation failed",
		zap.String("operation", op),
		zap.Error(err),
	)
}
