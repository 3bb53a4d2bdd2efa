package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"syncroom-service/internal/auth"
	"syncroom-service/internal/mocks"
	"syncroom-service/internal/models"
	"syncroom-service/internal/repositories"
)

func intPtr(v int) *int { return &v }

func TestRequireMember(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	gate := auth.NewGate(members)

	members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil).Once()
	members.On("RoleOf", mock.Anything, 10, 9).Return(models.Role(""), repositories.ErrNotAMember).Once()

	role, err := gate.RequireMember(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	_, err = gate.RequireMember(context.Background(), 10, 9)
	require.ErrorIs(t, err, auth.ErrNotAMember)
}

func TestRequireRoleRejectsOutsideAllowSet(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	gate := auth.NewGate(members)

	members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil).Once()

	_, err := gate.RequireRole(context.Background(), 10, 1, []models.Role{models.RoleOwner, models.RoleAdmin})
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestAuthorizeDeleteMatrix(t *testing.T) {
	cases := []struct {
		name      string
		actorRole models.Role
		actorID   int
		ownerID   *int
		wantErr   error
	}{
		{"author member deletes own", models.RoleMember, 1, intPtr(1), nil},
		{"member deletes others", models.RoleMember, 1, intPtr(2), auth.ErrForbidden},
		{"admin deletes others", models.RoleAdmin, 1, intPtr(2), nil},
		{"owner deletes others", models.RoleOwner, 1, intPtr(2), nil},
		{"member deletes assistant message", models.RoleMember, 1, nil, auth.ErrForbidden},
		{"admin deletes assistant message", models.RoleAdmin, 1, nil, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			members := new(mocks.MembershipRepositoryMock)
			gate := auth.NewGate(members)
			members.On("RoleOf", mock.Anything, 10, tc.actorID).Return(tc.actorRole, nil).Once()

			_, err := gate.AuthorizeDelete(context.Background(), 10, tc.actorID, tc.ownerID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAuthorizeKick(t *testing.T) {
	t.Run("self kick forbidden", func(t *testing.T) {
		gate := auth.NewGate(new(mocks.MembershipRepositoryMock))
		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 1)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("member cannot kick", func(t *testing.T) {
		members := new(mocks.MembershipRepositoryMock)
		gate := auth.NewGate(members)
		members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil).Once()

		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 2)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("admin kicks member", func(t *testing.T) {
		members := new(mocks.MembershipRepositoryMock)
		gate := auth.NewGate(members)
		members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleAdmin, nil).Once()
		members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleMember, nil).Once()

		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 2)
		require.NoError(t, err)
	})

	t.Run("admin cannot kick owner", func(t *testing.T) {
		members := new(mocks.MembershipRepositoryMock)
		gate := auth.NewGate(members)
		members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleAdmin, nil).Once()
		members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleOwner, nil).Once()

		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 2)
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("owner kicks admin", func(t *testing.T) {
		members := new(mocks.MembershipRepositoryMock)
		gate := auth.NewGate(members)
		members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleOwner, nil).Once()
		members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleAdmin, nil).Once()

		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 2)
		require.NoError(t, err)
	})

	t.Run("absent target masked as forbidden", func(t *testing.T) {
		members := new(mocks.MembershipRepositoryMock)
		gate := auth.NewGate(members)
		members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleOwner, nil).Once()
		members.On("RoleOf", mock.Anything, 10, 2).Return(models.Role(""), repositories.ErrNotAMember).Once()

		_, err := gate.AuthorizeKick(context.Background(), 10, 1, 2)
		require.ErrorIs(t, err, auth.ErrForbidden)
		assert.NotErrorIs(t, err, auth.ErrNotAMember)
	})
}

func TestAuthorizeRoleChangeOwnerOnly(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	gate := auth.NewGate(members)

	members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleAdmin, nil).Once()
	_, err := gate.AuthorizeRoleChange(context.Background(), 10, 1, 2)
	require.ErrorIs(t, err, auth.ErrForbidden)

	members.On("RoleOf", mock.Anything, 10, 3).Return(models.RoleOwner, nil).Twice()
	_, err = gate.AuthorizeRoleChange(context.Background(), 10, 3, 2)
	require.NoError(t, err)

	_, err = gate.AuthorizeRoleChange(context.Background(), 10, 3, 3)
	require.ErrorIs(t, err, auth.ErrForbidden)
}

func TestAuthorizeRoomDeleteOwnerOnly(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	gate := auth.NewGate(members)

	members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleOwner, nil).Once()
	_, err := gate.AuthorizeRoomDelete(context.Background(), 10, 1)
	require.NoError(t, err)

	members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleAdmin, nil).Once()
	_, err = gate.AuthorizeRoomDelete(context.Background(), 10, 2)
	require.ErrorIs(t, err, auth.ErrForbidden)
}
