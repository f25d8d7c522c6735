// Package errors defines the error taxonomy shared by the repository,
// service and transport layers. Every expected, user-triggerable outcome is
// an *Error carrying one of the kind sentinels below; the transport layer
// maps kinds to status codes and never inspects anything else.
package errors

import (
	"fmt"
	"strings"
)

// Error kinds.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrConflict         = fmt.Errorf("conflict")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrSelfReference    = fmt.Errorf("self reference")
	ErrUnauthenticated  = fmt.Errorf("unauthenticated")
)

// Error is a coded, human-readable outcome. Two *Error values match under
// errors.Is when their codes are equal; an *Error also matches its kind.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind error, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels usable as errors.Is targets. Constructors below produce the same
// codes with id-specific messages.
var (
	ErrCompanyNotFound           = &Error{Kind: ErrNotFound, Code: "company_not_found"}
	ErrUserNotFound              = &Error{Kind: ErrNotFound, Code: "user_not_found"}
	ErrQuizNotFound              = &Error{Kind: ErrNotFound, Code: "quiz_not_found"}
	ErrNotificationNotFound      = &Error{Kind: ErrNotFound, Code: "notification_not_found"}
	ErrInvitationNotExists       = &Error{Kind: ErrNotFound, Code: "invitation_not_exists"}
	ErrUserNotMember             = &Error{Kind: ErrNotFound, Code: "user_not_member"}
	ErrInvitationAlreadyExist    = &Error{Kind: ErrConflict, Code: "invitation_already_exist"}
	ErrUserAlreadyMember         = &Error{Kind: ErrConflict, Code: "user_already_member"}
	ErrInvitationAlreadyAccepted = &Error{Kind: ErrConflict, Code: "invitation_already_accepted"}
	ErrInvitationAlreadyRejected = &Error{Kind: ErrConflict, Code: "invitation_already_rejected"}
	ErrCompanyAlreadyExist       = &Error{Kind: ErrConflict, Code: "company_already_exist"}
	ErrUserAlreadyExist          = &Error{Kind: ErrConflict, Code: "user_already_exist"}
	ErrQuizAlreadyExist          = &Error{Kind: ErrConflict, Code: "quiz_already_exist"}
	ErrPermission                = &Error{Kind: ErrPermissionDenied, Code: "permission_denied"}
	ErrDeniedUser                = &Error{Kind: ErrPermissionDenied, Code: "denied_user", Message: "You do not have permission to perform this action."}
	ErrInvalidAction             = &Error{Kind: ErrInvalidInput, Code: "invalid_action"}
	ErrInvalidStatus             = &Error{Kind: ErrInvalidInput, Code: "invalid_status"}
	ErrValidation                = &Error{Kind: ErrInvalidInput, Code: "validation"}
	ErrCannotInviteYourself      = &Error{Kind: ErrSelfReference, Code: "cannot_invite_yourself", Message: "You cannot send an invitation or request to join because you are the owner of this company."}
	ErrCannotDeleteYourself      = &Error{Kind: ErrSelfReference, Code: "cannot_delete_yourself", Message: "You cannot remove yourself from the company."}
	ErrCannotChangeOwnRole       = &Error{Kind: ErrSelfReference, Code: "cannot_change_own_role", Message: "You cannot change your own role in the company."}
	ErrOwnerCannotLeave          = &Error{Kind: ErrSelfReference, Code: "owner_cannot_leave", Message: "The owner cannot leave their own company."}
	ErrInvalidCredentials        = &Error{Kind: ErrUnauthenticated, Code: "invalid_credentials", Message: "Incorrect email or password."}
	ErrInvalidToken              = &Error{Kind: ErrUnauthenticated, Code: "invalid_token", Message: "JWT Token invalid."}
)

func CompanyNotFound(companyID int64) *Error {
	return newError(ErrNotFound, ErrCompanyNotFound.Code, "Company with ID %d not found.", companyID)
}

func UserNotFound(userID int64) *Error {
	return newError(ErrNotFound, ErrUserNotFound.Code, "User with ID %d not found.", userID)
}

func UserNotFoundByEmail(email string) *Error {
	return newError(ErrNotFound, ErrUserNotFound.Code, "User with email '%s' not found.", email)
}

func QuizNotFound(quizID int64) *Error {
	return newError(ErrNotFound, ErrQuizNotFound.Code, "Quiz with ID %d not found.", quizID)
}

func NotificationNotFound(notificationID int64) *Error {
	return newError(ErrNotFound, ErrNotificationNotFound.Code, "Notification with ID %d not found.", notificationID)
}

func InvitationNotExists(inviteID int64) *Error {
	return newError(ErrNotFound, ErrInvitationNotExists.Code, "Invitation with ID %d not found.", inviteID)
}

// InvitationNotExistsForPair reports a missing pending invite or request of
// userID in companyID.
func InvitationNotExistsForPair(companyID, userID int64) *Error {
	return newError(ErrNotFound, ErrInvitationNotExists.Code,
		"No pending invitation found for the user with ID %d in the company with ID %d.", userID, companyID)
}

func UserNotMember(companyID, userID int64) *Error {
	return newError(ErrNotFound, ErrUserNotMember.Code,
		"User with ID %d is not a member of the company with ID %d.", userID, companyID)
}

func InvitationAlreadyExist(userID int64) *Error {
	return newError(ErrConflict, ErrInvitationAlreadyExist.Code, "Invitation already sent for the user with ID %d.", userID)
}

func UserAlreadyMember(companyID, userID int64, role string) *Error {
	return newError(ErrConflict, ErrUserAlreadyMember.Code,
		"User with ID %d is already a member of the company with ID %d and has role %s.",
		userID, companyID, strings.ToUpper(role))
}

func InvitationAlreadyAccepted(inviteID int64) *Error {
	return newError(ErrConflict, ErrInvitationAlreadyAccepted.Code, "Invitation with ID %d has already been accepted.", inviteID)
}

func InvitationAlreadyRejected(inviteID int64) *Error {
	return newError(ErrConflict, ErrInvitationAlreadyRejected.Code, "Invitation with ID %d has already been rejected.", inviteID)
}

func CompanyAlreadyExist(name string) *Error {
	return newError(ErrConflict, ErrCompanyAlreadyExist.Code, "Company with name %s already exists.", name)
}

func UserAlreadyExist(email string) *Error {
	return newError(ErrConflict, ErrUserAlreadyExist.Code, "User with email '%s' already exists.", email)
}

func QuizAlreadyExist(title string) *Error {
	return newError(ErrConflict, ErrQuizAlreadyExist.Code, "Quiz with title '%s' already exists in this company.", title)
}

// PermissionDenied names the roles the operation requires.
func PermissionDenied(requiredRoles ...string) *Error {
	return newError(ErrPermissionDenied, ErrPermission.Code,
		"Role [%s] are required for this operation.", strings.Join(requiredRoles, ", "))
}

func InvalidAction(action string) *Error {
	return newError(ErrInvalidInput, ErrInvalidAction.Code,
		"The action '%s' is invalid. Please use 'accept' or 'reject'.", action)
}

func InvalidStatus(status string, valid ...string) *Error {
	return newError(ErrInvalidInput, ErrInvalidStatus.Code,
		"Invalid status: %s. Available statuses are: %s.", status, strings.Join(valid, ", "))
}

func Validation(format string, args ...any) *Error {
	return newError(ErrInvalidInput, ErrValidation.Code, format, args...)
}
