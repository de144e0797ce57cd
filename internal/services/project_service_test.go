package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
)

func TestProjectCreateMakesCreatorOwner(t *testing.T) {
	env := newServiceEnv(t)

	project, err := env.projects.Create("Fresh", env.developer.ID)
	require.NoError(t, err)
	require.Equal(t, env.developer.ID, project.OwnerID)

	members, err := env.projects.Members(project.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, authz.RoleOwner, members[0].Role)
}

func TestProjectUpdateOwnerOnly(t *testing.T) {
	env := newServiceEnv(t)

	_, err := env.projects.Update(env.project.ID, env.admin.ID, "Renamed")
	require.ErrorIs(t, err, authz.ErrDenied)

	project, err := env.projects.Update(env.project.ID, env.owner.ID, "Renamed")
	require.NoError(t, err)
	require.Equal(t, "Renamed", project.Name)
}

func TestAddMemberByEmail(t *testing.T) {
	env := newServiceEnv(t)
	newcomer := env.createUser(t, "newcomer")

	member, err := env.projects.AddMember(env.project.ID, env.admin.ID, "Newcomer@Example.com ", authz.RoleTester)
	require.NoError(t, err)
	require.Equal(t, newcomer.ID, member.UserID)
	require.Equal(t, authz.RoleTester, member.Role)

	// Adding again fails.
	_, err = env.projects.AddMember(env.project.ID, env.admin.ID, "newcomer@example.com", authz.RoleTester)
	require.ErrorIs(t, err, ErrMemberExists)

	// Unknown email fails.
	_, err = env.projects.AddMember(env.project.ID, env.admin.ID, "nobody@example.com", authz.RoleTester)
	require.ErrorIs(t, err, ErrNoSuchUser)

	// The owner role is never granted.
	env.createUser(t, "stranger")
	_, err = env.projects.AddMember(env.project.ID, env.admin.ID, "stranger@example.com", authz.RoleOwner)
	require.ErrorIs(t, err, ErrInvalidRole)

	// A developer may not manage members at all.
	_, err = env.projects.AddMember(env.project.ID, env.developer.ID, "stranger@example.com", authz.RoleTester)
	require.ErrorIs(t, err, authz.ErrDenied)
}

func TestOwnerMembershipIsProtected(t *testing.T) {
	env := newServiceEnv(t)

	err := env.projects.RemoveMember(env.project.ID, env.admin.ID, env.owner.ID)
	require.ErrorIs(t, err, ErrCannotTouchOwner)

	err = env.projects.ChangeMemberRole(env.project.ID, env.admin.ID, env.owner.ID, authz.RoleViewer)
	require.ErrorIs(t, err, ErrCannotTouchOwner)

	// Regular members can be demoted and removed.
	require.NoError(t, env.projects.ChangeMemberRole(env.project.ID, env.admin.ID, env.tester.ID, authz.RoleViewer))
	require.NoError(t, env.projects.RemoveMember(env.project.ID, env.admin.ID, env.tester.ID))
}

func TestProjectDeleteSweepsStorage(t *testing.T) {
	env := newServiceEnv(t)
	ticket := env.createTicket(t, env.developer.ID)

	_, err := env.attachments.Upload(context.Background(), UploadInput{
		OwnerType:   "ticket",
		OwnerID:     ticket.ID,
		FileName:    "shot.png",
		ContentType: "image/png",
		Size:        4,
		Reader:      bytesReader("data"),
		ActorID:     env.developer.ID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.store.Len())

	// Only the owner may delete the project.
	err = env.projects.Delete(context.Background(), env.project.ID, env.admin.ID)
	require.ErrorIs(t, err, authz.ErrDenied)

	require.NoError(t, env.projects.Delete(context.Background(), env.project.ID, env.owner.ID))
	require.Equal(t, 0, env.store.Len())

	_, err = env.projects.ListForUser(env.owner.ID)
	require.NoError(t, err)
}
