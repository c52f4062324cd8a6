package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Serdarq1/calendar-api/internal/identity"
)

type stubProvider struct {
	users map[string]identity.User
}

func (s *stubProvider) GetUser(_ context.Context, userID string) (identity.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func newTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	repo := NewMemoryRepository()
	provider := &stubProvider{users: map[string]identity.User{}}
	return NewService(repo, provider), repo
}

func seedProfile(t *testing.T, repo Repository, id, email, name string) {
	t.Helper()
	err := repo.UpsertProfile(context.Background(), Profile{ID: id, Email: email, FullName: name})
	require.NoError(t, err)
}

func TestAccessibleCalendars(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	owned, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Mine"})
	require.NoError(t, err)

	shared, err := svc.CreateCalendar(ctx, "u2", CreateCalendarInput{Name: "Theirs"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: shared.ID, UserID: "u1", Role: RoleViewer, Accepted: true}))

	pending, err := svc.CreateCalendar(ctx, "u3", CreateCalendarInput{Name: "Pending"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: pending.ID, UserID: "u1", Role: RoleEditor, Accepted: false}))

	ids, err := svc.AccessibleCalendars(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, ids, owned.ID)
	assert.Contains(t, ids, shared.ID)
	assert.NotContains(t, ids, pending.ID, "pending membership must not grant access")

	none, err := svc.AccessibleCalendars(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateCalendarWritesOwnerMembership(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, ref.Role)

	member, err := repo.GetMember(ctx, ref.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, member, "owner must get an implicit membership row")
	assert.Equal(t, RoleOwner, member.Role)
	assert.True(t, member.Accepted)
}

func TestListCalendarsDeduplicatesOwnerRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	refs, err := svc.ListCalendars(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, refs, 1, "implicit owner membership must not double-list the calendar")
	assert.Equal(t, ref.ID, refs[0].ID)
	assert.Equal(t, RoleOwner, refs[0].Role)
}

func TestRenameCalendarRejectsBlankName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	for _, name := range []string{"", "   ", "\t"} {
		_, err := svc.RenameCalendar(ctx, "u1", ref.ID, name)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestRenameCalendarRequiresEditor(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: ref.ID, UserID: "viewer", Role: RoleViewer, Accepted: true}))
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: ref.ID, UserID: "editor", Role: RoleEditor, Accepted: true}))

	_, err = svc.RenameCalendar(ctx, "viewer", ref.ID, "Nope")
	assert.ErrorIs(t, err, ErrForbidden)

	name, err := svc.RenameCalendar(ctx, "editor", ref.ID, "  Holidays  ")
	require.NoError(t, err)
	assert.Equal(t, "Holidays", name)

	_, err = svc.RenameCalendar(ctx, "u1", "missing", "New")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCalendarOwnerOnly(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: ref.ID, UserID: "editor", Role: RoleEditor, Accepted: true}))

	err = svc.DeleteCalendar(ctx, "editor", ref.ID)
	assert.ErrorIs(t, err, ErrForbidden, "editors must not delete calendars")

	require.NoError(t, svc.DeleteCalendar(ctx, "u1", ref.ID))

	cal, err := repo.GetCalendar(ctx, ref.ID)
	require.NoError(t, err)
	assert.Nil(t, cal)
}

func TestInviteUpsertsRole(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedProfile(t, repo, "u2", "friend@example.com", "Friend")

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	require.NoError(t, svc.Invite(ctx, "u1", ref.ID, "  Friend@Example.COM ", RoleViewer))

	member, err := repo.GetMember(ctx, ref.ID, "u2")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, RoleViewer, member.Role)
	assert.True(t, member.Accepted, "instant-join model: accepted immediately")

	// Inviting again updates the role in place.
	require.NoError(t, svc.Invite(ctx, "u1", ref.ID, "friend@example.com", RoleEditor))
	member, err = repo.GetMember(ctx, ref.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, member.Role)
}

func TestInviteErrors(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedProfile(t, repo, "u2", "friend@example.com", "Friend")

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: ref.ID, UserID: "viewer", Role: RoleViewer, Accepted: true}))

	assert.ErrorIs(t, svc.Invite(ctx, "u1", ref.ID, "", RoleEditor), ErrInvalidInput)
	assert.ErrorIs(t, svc.Invite(ctx, "u1", ref.ID, "ghost@example.com", RoleEditor), ErrUserNotFound)
	assert.ErrorIs(t, svc.Invite(ctx, "viewer", ref.ID, "friend@example.com", RoleEditor), ErrForbidden)
	assert.ErrorIs(t, svc.Invite(ctx, "u1", "missing", "friend@example.com", RoleEditor), ErrNotFound)
	assert.ErrorIs(t, svc.Invite(ctx, "u1", ref.ID, "friend@example.com", Role("admin")), ErrInvalidInput)
}

func TestCreateEventInfersType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	single, err := svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dentist", Status: "Tek", Date: "2025-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, EventTypeSingle, single.Type)

	together, err := svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: StatusTogether, Date: "2025-03-11",
	})
	require.NoError(t, err)
	assert.Equal(t, EventTypeCollaborative, together.Type)
}

func TestCreateEventRejectsConflictingStatusAndType(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	_, err = svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: StatusTogether, Date: "2025-03-11",
		Type: EventTypeSingle,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: "Tek", Date: "2025-03-11",
		Type: EventType("group"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateEvent(ctx, "u1", CreateEventInput{Title: "No calendar", Status: "Tek", Date: "2025-01-01"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateEvent(ctx, "u1", CreateEventInput{CalendarID: "missing", Title: "x", Status: "Tek", Date: "2025-01-01"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestViewerCannotMutateEvents(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertMember(ctx, Member{CalendarID: ref.ID, UserID: "viewer", Role: RoleViewer, Accepted: true}))

	event, err := svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: "Tek", Date: "2025-03-11",
	})
	require.NoError(t, err)

	// Viewers read but do not write.
	got, err := svc.GetEvent(ctx, "viewer", event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)

	_, err = svc.CreateEvent(ctx, "viewer", CreateEventInput{
		CalendarID: ref.ID, Title: "Party", Status: "Tek", Date: "2025-03-12",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	title := "Renamed"
	_, err = svc.UpdateEvent(ctx, "viewer", event.ID, EventPatch{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, svc.DeleteEvent(ctx, "viewer", event.ID), ErrForbidden)
}

func TestGetEventOutsideAccessSet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	event, err := svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: "Tek", Date: "2025-03-11",
	})
	require.NoError(t, err)

	_, err = svc.GetEvent(ctx, "stranger", event.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetEvent(ctx, "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEventIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.DeleteEvent(ctx, "u1", "never-existed")
	assert.NoError(t, err, "deleting a missing event succeeds")
}

func TestUpdateEventPartialPatch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	ref, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	event, err := svc.CreateEvent(ctx, "u1", CreateEventInput{
		CalendarID: ref.ID, Title: "Dinner", Status: "Tek", Date: "2025-03-11", Time: "19:00",
	})
	require.NoError(t, err)

	title := "Lunch"
	date := "2025-04-01T12:30:00Z"
	updated, err := svc.UpdateEvent(ctx, "u1", event.ID, EventPatch{Title: &title, Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "Lunch", updated.Title)
	assert.Equal(t, "2025-04-01", updated.Date, "patched date is normalized to YYYY-MM-DD")
	assert.Equal(t, 1, updated.Day)
	assert.Equal(t, "19:00", updated.Time, "omitted fields keep their value")

	status := StatusTogether
	wrongType := EventTypeSingle
	_, err = svc.UpdateEvent(ctx, "u1", event.ID, EventPatch{Status: &status, Type: &wrongType})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSyncProfile(t *testing.T) {
	repo := NewMemoryRepository()
	provider := &stubProvider{users: map[string]identity.User{
		"u1": {ID: "u1", Email: "U1@Example.com ", FullName: "User One", AvatarURL: "https://img.example/u1.png"},
	}}
	svc := NewService(repo, provider)
	ctx := context.Background()

	require.NoError(t, svc.SyncProfile(ctx, "u1"))

	profile, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "u1@example.com", profile.Email, "emails stored lowercased and trimmed")
	assert.Equal(t, "User One", profile.FullName)

	// Repeated syncs overwrite in place.
	provider.users["u1"] = identity.User{ID: "u1", Email: "new@example.com", FullName: "Renamed"}
	require.NoError(t, svc.SyncProfile(ctx, "u1"))
	profile, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", profile.FullName)

	err = svc.SyncProfile(ctx, "unknown")
	assert.True(t, errors.Is(err, identity.ErrUserNotFound))
}

func TestSharedCalendarFlow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	seedProfile(t, repo, "u1", "owner@example.com", "Owner One")
	seedProfile(t, repo, "u2", "editor@example.com", "Editor Two")

	trips, err := svc.CreateCalendar(ctx, "u1", CreateCalendarInput{Name: "Trips"})
	require.NoError(t, err)

	member, err := repo.GetMember(ctx, trips.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, member, "creator appears as implicit owner member")

	require.NoError(t, svc.Invite(ctx, "u1", trips.ID, "editor@example.com", RoleEditor))

	ids, err := svc.AccessibleCalendars(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, ids, trips.ID)

	event, err := svc.CreateEvent(ctx, "u2", CreateEventInput{
		CalendarID: trips.ID, Title: "Road trip", Status: StatusTogether, Date: "2025-07-04",
	})
	require.NoError(t, err)
	assert.Equal(t, EventTypeCollaborative, event.Type)

	memberIDs := make([]string, 0, len(event.Members))
	for _, m := range event.Members {
		memberIDs = append(memberIDs, m.ID)
	}
	assert.Contains(t, memberIDs, "u1")
	assert.Contains(t, memberIDs, "u2")
}
