package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleLevels(t *testing.T) {
	require.True(t, RoleOwner.AtLeast(RoleAdmin))
	require.True(t, RoleAdmin.AtLeast(RoleDeveloper))
	require.True(t, RoleDeveloper.AtLeast(RoleTester))
	require.True(t, RoleTester.AtLeast(RoleViewer))
	require.False(t, RoleViewer.AtLeast(RoleTester))
	require.False(t, Role("bogus").AtLeast(RoleViewer))
}

func TestNormalize(t *testing.T) {
	require.Equal(t, RoleDeveloper, Normalize("developer"))
	// Unknown strings fall back to the least privileged role.
	require.Equal(t, RoleViewer, Normalize("superuser"))
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		role    Role
		action  Action
		allowed bool
	}{
		{RoleOwner, ActionDeleteProject, true},
		{RoleAdmin, ActionDeleteProject, false},
		{RoleAdmin, ActionManageMembers, true},
		{RoleDeveloper, ActionManageMembers, false},
		{RoleDeveloper, ActionCreateTicket, true},
		{RoleDeveloper, ActionReorderTickets, true},
		{RoleDeveloper, ActionMoveTicket, true},
		{RoleTester, ActionCreateTicket, false},
		{RoleTester, ActionCreateComment, true},
		{RoleViewer, ActionCreateComment, false},
		{RoleViewer, ActionViewActivity, true},
	}

	for _, tc := range cases {
		err := Authorize(tc.role, tc.action)
		if tc.allowed {
			require.NoError(t, err, "%s should be allowed %s", tc.role, tc.action)
		} else {
			require.ErrorIs(t, err, ErrDenied, "%s should be denied %s", tc.role, tc.action)
		}
	}
}

func TestAuthorizeUnknownRole(t *testing.T) {
	require.ErrorIs(t, Authorize(Role(""), ActionViewActivity), ErrDenied)
	require.ErrorIs(t, Authorize(Role("bogus"), ActionCreateComment), ErrDenied)
}

func TestCanModifyTicket(t *testing.T) {
	const creator, other = uint64(1), uint64(2)

	// Developer and above modify any ticket.
	require.True(t, CanModifyTicket(RoleDeveloper, creator, other))
	require.True(t, CanModifyTicket(RoleAdmin, creator, other))
	require.True(t, CanModifyTicket(RoleOwner, creator, other))

	// A tester only their own.
	require.True(t, CanModifyTicket(RoleTester, creator, creator))
	require.False(t, CanModifyTicket(RoleTester, creator, other))

	// A viewer never, even their own.
	require.False(t, CanModifyTicket(RoleViewer, creator, creator))
}

func TestCanDelete(t *testing.T) {
	const creator, other = uint64(1), uint64(2)

	// The creator may delete their own entity.
	require.True(t, CanDelete(RoleTester, creator, creator))

	// Developer and above may delete anyone's.
	require.True(t, CanDelete(RoleDeveloper, creator, other))

	// Below developer, only the creator.
	require.False(t, CanDelete(RoleTester, creator, other))

	// A viewer cannot delete at all.
	require.False(t, CanDelete(RoleViewer, creator, creator))
}
