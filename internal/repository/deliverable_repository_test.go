package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/issue-tracker-api/internal/authz"
	"github.com/yukikurage/issue-tracker-api/internal/constants"
	"github.com/yukikurage/issue-tracker-api/internal/models"
)

func TestDeliverableCreateAssignsTailOrder(t *testing.T) {
	f := newFixture(t)

	// The fixture deliverable holds position 0.
	require.Equal(t, 0, f.deliverable.DisplayOrder)

	second := models.Deliverable{ProjectID: f.project.ID, Name: "Milestone 2", CreatorID: f.developer.ID}
	require.NoError(t, f.deliverables.Create(&second))
	require.Equal(t, 1, second.DisplayOrder)
}

func TestDeliverableReorderScopeMismatchRollsBack(t *testing.T) {
	f := newFixture(t)

	second := models.Deliverable{ProjectID: f.project.ID, Name: "Milestone 2", CreatorID: f.developer.ID}
	require.NoError(t, f.deliverables.Create(&second))

	otherProject := models.Project{Name: "Other", OwnerID: f.owner.ID}
	otherMember := models.ProjectMember{}
	require.NoError(t, f.projects.CreateWithOwner(&otherProject, &otherMember))
	foreign := models.Deliverable{ProjectID: otherProject.ID, Name: "Foreign", CreatorID: f.owner.ID}
	require.NoError(t, f.deliverables.Create(&foreign))

	err := f.deliverables.Reorder(f.project.ID, []uint64{foreign.ID, f.deliverable.ID, second.ID}, f.developer.ID)
	require.ErrorIs(t, err, ErrScopeMismatch)

	list, err := f.deliverables.ListByProject(f.project.ID)
	require.NoError(t, err)
	require.Equal(t, 0, list[0].DisplayOrder)
	require.Equal(t, 1, list[1].DisplayOrder)
}

func TestDeliverableReorderDeniedForViewer(t *testing.T) {
	f := newFixture(t)

	err := f.deliverables.Reorder(f.project.ID, []uint64{f.deliverable.ID}, f.viewer.ID)
	require.ErrorIs(t, err, authz.ErrDenied)
}

func TestDeliverableReorder(t *testing.T) {
	f := newFixture(t)

	second := models.Deliverable{ProjectID: f.project.ID, Name: "Milestone 2", CreatorID: f.developer.ID}
	require.NoError(t, f.deliverables.Create(&second))

	require.NoError(t, f.deliverables.Reorder(f.project.ID, []uint64{second.ID, f.deliverable.ID}, f.developer.ID))

	list, err := f.deliverables.ListByProject(f.project.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, f.deliverable.ID, list[1].ID)
}

func TestDeliverableReorderResubmittingCurrentOrderSucceeds(t *testing.T) {
	f := newFixture(t)

	second := models.Deliverable{ProjectID: f.project.ID, Name: "Milestone 2", CreatorID: f.developer.ID}
	require.NoError(t, f.deliverables.Create(&second))

	require.NoError(t, f.deliverables.Reorder(f.project.ID, []uint64{f.deliverable.ID, second.ID}, f.developer.ID))

	list, err := f.deliverables.ListByProject(f.project.ID)
	require.NoError(t, err)
	require.Equal(t, f.deliverable.ID, list[0].ID)
	require.Equal(t, second.ID, list[1].ID)
}

func TestDeliverableDeleteCascadesToTickets(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t, f.developer.ID, 3)
	comment := models.Comment{TicketID: ticket.ID, Body: "note", CreatorID: f.tester.ID}
	require.NoError(t, f.comments.Create(&comment))
	f.createAttachment(t, constants.OwnerTypeTicket, ticket.ID, f.developer.ID, "key-1")

	removedKeys, err := f.deliverables.Delete(f.deliverable.ID, f.developer.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"key-1"}, removedKeys)

	_, err = f.deliverables.FindByID(f.deliverable.ID)
	require.Error(t, err)
	tickets, err := f.tickets.ListByDeliverable(f.deliverable.ID)
	require.NoError(t, err)
	require.Empty(t, tickets)
	_, err = f.comments.FindByID(comment.ID)
	require.Error(t, err)
}

func TestProjectDeleteCascadesEverything(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t, f.developer.ID, 3)
	comment := models.Comment{TicketID: ticket.ID, Body: "note", CreatorID: f.tester.ID}
	require.NoError(t, f.comments.Create(&comment))
	f.createAttachment(t, constants.OwnerTypeTicket, ticket.ID, f.developer.ID, "key-a")
	f.createAttachment(t, constants.OwnerTypeComment, comment.ID, f.tester.ID, "key-b")

	// Only the owner may delete a project; the admin is denied inside the
	// transaction.
	_, err := f.projects.Delete(f.project.ID, f.admin.ID)
	require.ErrorIs(t, err, authz.ErrDenied)

	removedKeys, err := f.projects.Delete(f.project.ID, f.owner.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"key-a", "key-b"}, removedKeys)

	_, err = f.projects.FindByID(f.project.ID)
	require.Error(t, err)
	_, err = f.projects.FindMember(f.project.ID, f.owner.ID)
	require.Error(t, err)
	_, err = f.tickets.FindByID(ticket.ID)
	require.Error(t, err)
}
