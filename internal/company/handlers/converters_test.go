package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", e.CompanyNotFound(7), http.StatusNotFound, "Company with ID 7 not found."},
		{"not member", e.UserNotMember(4, 9), http.StatusNotFound, "User with ID 9 is not a member of the company with ID 4."},
		{"conflict", e.InvitationAlreadyExist(3), http.StatusConflict, "Invitation already sent for the user with ID 3."},
		{"permission", e.PermissionDenied("owner"), http.StatusForbidden, "Role [owner] are required for this operation."},
		{"denied user", e.ErrDeniedUser, http.StatusForbidden, e.ErrDeniedUser.Message},
		{"invalid action", e.InvalidAction("maybe"), http.StatusBadRequest, "The action 'maybe' is invalid. Please use 'accept' or 'reject'."},
		{"self reference", e.ErrCannotInviteYourself, http.StatusBadRequest, e.ErrCannotInviteYourself.Message},
		{"unauthenticated", e.ErrInvalidToken, http.StatusUnauthorized, "JWT Token invalid."},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := mapServiceError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestPathID(t *testing.T) {
	id, err := pathID(map[string]string{"company_id": "42"}, "company_id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "abc", "0", "-3"} {
		_, err := pathID(map[string]string{"company_id": raw}, "company_id")
		assert.ErrorIs(t, err, e.ErrInvalidInput, raw)
	}
}

func TestQueryPage(t *testing.T) {
	page, err := queryPage(httptest.NewRequest(http.MethodGet, "/v1/companies?page=2&page_size=5", nil))
	require.NoError(t, err)
	assert.Equal(t, models.Page{Page: 2, PageSize: 5}, page)

	page, err = queryPage(httptest.NewRequest(http.MethodGet, "/v1/companies", nil))
	require.NoError(t, err)
	assert.Equal(t, models.Page{}, page)

	_, err = queryPage(httptest.NewRequest(http.MethodGet, "/v1/companies?page=two", nil))
	assert.ErrorIs(t, err, e.ErrValidation)
}

func TestDecisionToJSON(t *testing.T) {
	invite := &models.Invite{ID: 1, CompanyID: 2, UserID: 3, Kind: models.KindInvitation, Status: models.InviteRejected}

	rejected := decisionToJSON(&models.InviteDecision{Invite: invite})
	assert.Equal(t, "rejected", rejected.Invite.Status)
	assert.Nil(t, rejected.Membership)

	accepted := decisionToJSON(&models.InviteDecision{
		Invite:     invite,
		Membership: &models.Membership{CompanyID: 2, UserID: 3, Role: models.RoleMember},
	})
	require.NotNil(t, accepted.Membership)
	assert.Equal(t, "member", accepted.Membership.Role)
}

func TestCompanyUpdateRequestToModel(t *testing.T) {
	hidden := "hidden"
	update := (&companyUpdateRequest{Visibility: &hidden}).toModel(9)

	assert.Equal(t, int64(9), update.ID)
	assert.Nil(t, update.Name)
	require.NotNil(t, update.Visibility)
	assert.Equal(t, models.Hidden, *update.Visibility)
}
