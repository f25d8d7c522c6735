package controller

import (
	"context"
	"testing"

	e "github.com/gartstein/companyhub/internal/company/errors"
	"github.com/gartstein/companyhub/internal/company/metrics"
	"github.com/gartstein/companyhub/internal/company/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRoleStore struct {
	mock.Mock
}

func (m *MockRoleStore) GetMembership(ctx context.Context, companyID, userID int64) (*models.Membership, error) {
	args := m.Called(ctx, companyID, userID)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MockRoleStore) CreateMembership(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	args := m.Called(ctx, companyID, userID, role)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MockRoleStore) UpdateMembershipRole(ctx context.Context, companyID, userID int64, role models.Role) (*models.Membership, error) {
	args := m.Called(ctx, companyID, userID, role)
	membership, _ := args.Get(0).(*models.Membership)
	return membership, args.Error(1)
}

func (m *MockRoleStore) DeleteMembership(ctx context.Context, companyID, userID int64) error {
	return m.Called(ctx, companyID, userID).Error(0)
}

func (m *MockRoleStore) ListMemberships(ctx context.Context, companyID int64, roles ...models.Role) ([]*models.Membership, error) {
	args := m.Called(ctx, companyID, roles)
	memberships, _ := args.Get(0).([]*models.Membership)
	return memberships, args.Error(1)
}

func TestRoleRegistryAddRole(t *testing.T) {
	ctx := context.Background()

	t.Run("valid role", func(t *testing.T) {
		store := new(MockRoleStore)
		want := &models.Membership{ID: 1, CompanyID: 1, UserID: 2, Role: models.RoleMember}
		store.On("CreateMembership", ctx, int64(1), int64(2), models.RoleMember).Return(want, nil)

		got, err := NewRoleRegistry(store).AddRole(ctx, 1, 2, models.RoleMember)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		store.AssertExpectations(t)
	})

	t.Run("unknown role", func(t *testing.T) {
		store := new(MockRoleStore)

		_, err := NewRoleRegistry(store).AddRole(ctx, 1, 2, "superuser")

		assert.ErrorIs(t, err, e.ErrInvalidInput)
		store.AssertNotCalled(t, "CreateMembership", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("existing role is a conflict", func(t *testing.T) {
		store := new(MockRoleStore)
		store.On("CreateMembership", ctx, int64(1), int64(2), models.RoleMember).
			Return(nil, e.UserAlreadyMember(1, 2, string(models.RoleAdmin)))

		_, err := NewRoleRegistry(store).AddRole(ctx, 1, 2, models.RoleMember)

		assert.ErrorIs(t, err, e.ErrUserAlreadyMember)
		assert.Equal(t, "User with ID 2 is already a member of the company with ID 1 and has role ADMIN.", err.Error())
	})
}

func TestRoleRegistrySetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("not a member", func(t *testing.T) {
		store := new(MockRoleStore)
		store.On("GetMembership", ctx, int64(1), int64(2)).Return(nil, nil)

		_, err := NewRoleRegistry(store).SetRole(ctx, 1, 2, models.RoleAdmin)

		assert.ErrorIs(t, err, e.ErrUserNotMember)
		store.AssertNotCalled(t, "UpdateMembershipRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("same role is a no-op", func(t *testing.T) {
		store := new(MockRoleStore)
		current := &models.Membership{CompanyID: 1, UserID: 2, Role: models.RoleAdmin}
		store.On("GetMembership", ctx, int64(1), int64(2)).Return(current, nil)

		got, err := NewRoleRegistry(store).SetRole(ctx, 1, 2, models.RoleAdmin)

		require.NoError(t, err)
		assert.Same(t, current, got)
		store.AssertNotCalled(t, "UpdateMembershipRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("promotes", func(t *testing.T) {
		store := new(MockRoleStore)
		store.On("GetMembership", ctx, int64(1), int64(2)).
			Return(&models.Membership{CompanyID: 1, UserID: 2, Role: models.RoleMember}, nil)
		store.On("UpdateMembershipRole", ctx, int64(1), int64(2), models.RoleAdmin).
			Return(&models.Membership{CompanyID: 1, UserID: 2, Role: models.RoleAdmin}, nil)

		got, err := NewRoleRegistry(store).SetRole(ctx, 1, 2, models.RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
		store.AssertExpectations(t)
	})
}

func TestRoleRegistryListings(t *testing.T) {
	ctx := context.Background()
	store := new(MockRoleStore)
	admins := []*models.Membership{{UserID: 3, Role: models.RoleAdmin}}
	store.On("ListMemberships", ctx, int64(1), []models.Role{models.RoleAdmin}).Return(admins, nil)
	store.On("ListMemberships", ctx, int64(1), []models.Role(nil)).Return(admins, nil)
	store.On("DeleteMembership", ctx, int64(1), int64(3)).Return(nil)

	registry := NewRoleRegistry(store)
	got, err := registry.ListAdmins(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, admins, got)

	_, err = registry.ListMembers(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, registry.RemoveRole(ctx, 1, 3))
	store.AssertExpectations(t)
}

func TestGuardRequireRole(t *testing.T) {
	ctx := context.Background()
	admin := &models.Membership{CompanyID: 1, UserID: 2, Role: models.RoleAdmin}

	tests := []struct {
		name       string
		membership *models.Membership
		allowed    []models.Role
		wantErr    string
	}{
		{"allowed role", admin, []models.Role{models.RoleOwner, models.RoleAdmin}, ""},
		{"insufficient role", admin, []models.Role{models.RoleOwner}, "Role [owner] are required for this operation."},
		{"no role", nil, []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleMember},
			"Role [owner, admin, member] are required for this operation."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRoleStore)
			store.On("GetMembership", ctx, int64(1), int64(2)).Return(tt.membership, nil)
			m := metrics.New()

			got, err := NewGuard(NewRoleRegistry(store), m).RequireRole(ctx, 1, 2, tt.allowed...)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.membership, got)
				assert.Zero(t, testutil.ToFloat64(m.GuardDenialsTotal))
				return
			}
			assert.ErrorIs(t, err, e.ErrPermission)
			assert.ErrorIs(t, err, e.ErrPermissionDenied)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.Nil(t, got)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.GuardDenialsTotal))
		})
	}
}

func TestGuardPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := new(MockRoleStore)
	storeErr := assert.AnError
	store.On("GetMembership", ctx, int64(1), int64(2)).Return(nil, storeErr)

	_, err := NewGuard(NewRoleRegistry(store), nil).RequireRole(ctx, 1, 2, models.RoleOwner)

	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, e.ErrPermissionDenied)
}
