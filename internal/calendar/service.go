package calendar

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Serdarq1/calendar-api/internal/identity"
)

// Service exposes the calendar domain operations the HTTP layer calls into.
type Service interface {
	SyncProfile(ctx context.Context, userID string) error

	AccessibleCalendars(ctx context.Context, userID string) ([]string, error)
	ListCalendars(ctx context.Context, userID string) ([]CalendarRef, error)
	CreateCalendar(ctx context.Context, userID string, in CreateCalendarInput) (*CalendarRef, error)
	GetCalendar(ctx context.Context, userID, calendarID string) (*CalendarDetail, error)
	RenameCalendar(ctx context.Context, userID, calendarID, name string) (string, error)
	DeleteCalendar(ctx context.Context, userID, calendarID string) error
	Invite(ctx context.Context, inviterID, calendarID, email string, role Role) error

	ListEvents(ctx context.Context, userID, calendarID string) ([]EventView, error)
	CreateEvent(ctx context.Context, userID string, in CreateEventInput) (*EventView, error)
	GetEvent(ctx context.Context, userID, eventID string) (*EventView, error)
	UpdateEvent(ctx context.Context, userID, eventID string, patch EventPatch) (*EventView, error)
	DeleteEvent(ctx context.Context, userID, eventID string) error
}

type service struct {
	repo     Repository
	provider identity.Provider
}

// NewService creates a calendar service backed by the given repository and identity provider.
func NewService(repo Repository, provider identity.Provider) Service {
	return &service{repo: repo, provider: provider}
}

// SyncProfile pulls the caller's identity record and upserts the profile row.
// Safe to call on every sign-in.
func (s *service) SyncProfile(ctx context.Context, userID string) error {
	user, err := s.provider.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve identity: %w", err)
	}

	profile := Profile{
		ID:        userID,
		Email:     strings.ToLower(strings.TrimSpace(user.Email)),
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
	}
	if err := s.repo.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// AccessibleCalendars returns the ids of calendars the user owns plus the ones
// with an accepted membership row. Absence of rows yields an empty set.
func (s *service) AccessibleCalendars(ctx context.Context, userID string) ([]string, error) {
	owned, err := s.repo.ListOwnedCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}
	memberCals, _, err := s.repo.ListMemberCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(memberCals))
	ids := make([]string, 0, len(owned)+len(memberCals))
	for _, cal := range owned {
		if _, ok := seen[cal.ID]; ok {
			continue
		}
		seen[cal.ID] = struct{}{}
		ids = append(ids, cal.ID)
	}
	for _, cal := range memberCals {
		if _, ok := seen[cal.ID]; ok {
			continue
		}
		seen[cal.ID] = struct{}{}
		ids = append(ids, cal.ID)
	}
	return ids, nil
}

func (s *service) ListCalendars(ctx context.Context, userID string) ([]CalendarRef, error) {
	owned, err := s.repo.ListOwnedCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}
	memberCals, memberships, err := s.repo.ListMemberCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Owned calendars come first. The owner also holds an implicit membership
	// row, so the second pass must not list them again.
	seen := make(map[string]struct{}, len(owned))
	refs := make([]CalendarRef, 0, len(owned)+len(memberCals))
	for _, cal := range owned {
		seen[cal.ID] = struct{}{}
		refs = append(refs, CalendarRef{ID: cal.ID, Name: cal.Name, Role: RoleOwner})
	}
	for i, cal := range memberCals {
		if _, ok := seen[cal.ID]; ok {
			continue
		}
		seen[cal.ID] = struct{}{}
		role := RoleEditor
		if i < len(memberships) && memberships[i].Role.Valid() {
			role = memberships[i].Role
		}
		refs = append(refs, CalendarRef{ID: cal.ID, Name: cal.Name, Role: role})
	}
	return refs, nil
}

func (s *service) CreateCalendar(ctx context.Context, userID string, in CreateCalendarInput) (*CalendarRef, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	cal := Calendar{ID: id, Name: name, OwnerID: userID}
	owner := Member{CalendarID: id, UserID: userID, Role: RoleOwner, Accepted: true}
	if err := s.repo.CreateCalendar(ctx, cal, owner); err != nil {
		return nil, fmt.Errorf("create calendar: %w", err)
	}

	return &CalendarRef{ID: cal.ID, Name: cal.Name, Role: RoleOwner}, nil
}

func (s *service) GetCalendar(ctx context.Context, userID, calendarID string) (*CalendarDetail, error) {
	cal, err := s.repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, ErrNotFound
	}

	role, ok, err := s.effectiveRole(ctx, cal, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	return &CalendarDetail{Calendar: *cal, Role: role}, nil
}

func (s *service) RenameCalendar(ctx context.Context, userID, calendarID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name required", ErrInvalidInput)
	}

	cal, err := s.repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return "", err
	}
	if cal == nil {
		return "", ErrNotFound
	}

	if err := s.requireLevel(ctx, cal, userID, RoleEditor); err != nil {
		return "", err
	}

	if err := s.repo.RenameCalendar(ctx, calendarID, name); err != nil {
		return "", fmt.Errorf("rename calendar: %w", err)
	}
	return name, nil
}

func (s *service) DeleteCalendar(ctx context.Context, userID, calendarID string) error {
	cal, err := s.repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	// Delete requires ownership; an absent calendar reads the same as someone
	// else's, matching the 403-only contract of this endpoint.
	if cal == nil || cal.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.repo.DeleteCalendar(ctx, calendarID); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return nil
}

// Invite grants a profile, looked up by email, immediate accepted membership.
// Repeat invites update the role in place.
func (s *service) Invite(ctx context.Context, inviterID, calendarID, email string, role Role) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	if role == "" {
		role = RoleEditor
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	cal, err := s.repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return ErrNotFound
	}

	if err := s.requireLevel(ctx, cal, inviterID, RoleEditor); err != nil {
		return err
	}

	profile, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		return err
	}
	if profile == nil {
		// Invitees must have signed in at least once to have a profile row.
		return ErrUserNotFound
	}

	member := Member{CalendarID: calendarID, UserID: profile.ID, Role: role, Accepted: true}
	if err := s.repo.UpsertMember(ctx, member); err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *service) ListEvents(ctx context.Context, userID, calendarID string) ([]EventView, error) {
	accessible, err := s.AccessibleCalendars(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accessible) == 0 {
		return []EventView{}, nil
	}

	targets := accessible
	if calendarID != "" {
		if !contains(accessible, calendarID) {
			return []EventView{}, nil
		}
		targets = []string{calendarID}
	}

	events, err := s.repo.ListEvents(ctx, targets)
	if err != nil {
		return nil, err
	}

	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		view, err := s.materialize(ctx, ev)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *service) CreateEvent(ctx context.Context, userID string, in CreateEventInput) (*EventView, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Date) == "" ||
		strings.TrimSpace(in.Status) == "" || strings.TrimSpace(in.CalendarID) == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrInvalidInput)
	}

	eventType, err := resolveEventType(in.Status, in.Type)
	if err != nil {
		return nil, err
	}

	cal, err := s.repo.GetCalendar(ctx, in.CalendarID)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, ErrForbidden
	}
	// Event mutation requires editor or better. Viewers keep read access only.
	if err := s.requireLevel(ctx, cal, userID, RoleEditor); err != nil {
		return nil, err
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}

	event := Event{
		ID:         id,
		CalendarID: in.CalendarID,
		OwnerID:    userID,
		Title:      in.Title,
		Status:     in.Status,
		Date:       normalizeDate(in.Date),
		Time:       in.Time,
		Type:       eventType,
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	view, err := s.materialize(ctx, event)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) GetEvent(ctx context.Context, userID, eventID string) (*EventView, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrNotFound
	}

	if err := s.requireAccess(ctx, userID, event.CalendarID); err != nil {
		return nil, err
	}

	view, err := s.materialize(ctx, *event)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *service) UpdateEvent(ctx context.Context, userID, eventID string, patch EventPatch) (*EventView, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrNotFound
	}

	if err := s.requireMutation(ctx, userID, event.CalendarID); err != nil {
		return nil, err
	}

	if patch.Status != nil && patch.Type != nil {
		if _, err := resolveEventType(*patch.Status, *patch.Type); err != nil {
			return nil, err
		}
	}

	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if patch.Date != nil {
		event.Date = normalizeDate(*patch.Date)
	}
	if patch.Time != nil {
		event.Time = *patch.Time
	}
	if patch.Type != nil {
		if !isEventType(*patch.Type) {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, *patch.Type)
		}
		event.Type = *patch.Type
	}

	if err := s.repo.UpdateEvent(ctx, *event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	view, err := s.materialize(ctx, *event)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteEvent is idempotent: deleting an event that no longer exists succeeds.
func (s *service) DeleteEvent(ctx context.Context, userID, eventID string) error {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}

	if err := s.requireMutation(ctx, userID, event.CalendarID); err != nil {
		return err
	}

	if err := s.repo.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// effectiveRole computes the caller's level on a calendar: owner by ownership,
// otherwise the role of their accepted membership row. The boolean reports
// whether the caller has any access at all. The role is re-read on every call
// rather than cached; a check-then-act window against concurrent role changes
// remains and is accepted (single-row writes, last write wins).
func (s *service) effectiveRole(ctx context.Context, cal *Calendar, userID string) (Role, bool, error) {
	if cal.OwnerID == userID {
		return RoleOwner, true, nil
	}

	member, err := s.repo.GetMember(ctx, cal.ID, userID)
	if err != nil {
		return "", false, err
	}
	if member == nil || !member.Accepted {
		return "", false, nil
	}
	return member.Role, true, nil
}

func (s *service) requireLevel(ctx context.Context, cal *Calendar, userID string, required Role) error {
	role, ok, err := s.effectiveRole(ctx, cal, userID)
	if err != nil {
		return err
	}
	if !ok || !role.AtLeast(required) {
		return ErrForbidden
	}
	return nil
}

func (s *service) requireAccess(ctx context.Context, userID, calendarID string) error {
	accessible, err := s.AccessibleCalendars(ctx, userID)
	if err != nil {
		return err
	}
	if !contains(accessible, calendarID) {
		return ErrForbidden
	}
	return nil
}

func (s *service) requireMutation(ctx context.Context, userID, calendarID string) error {
	cal, err := s.repo.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return ErrForbidden
	}
	return s.requireLevel(ctx, cal, userID, RoleEditor)
}

// resolveEventType infers the event type from the status when it is not
// explicitly supplied, and rejects an explicit type that contradicts the
// status convention.
func resolveEventType(status string, explicit EventType) (EventType, error) {
	inferred := EventTypeSingle
	if status == StatusTogether {
		inferred = EventTypeCollaborative
	}

	if explicit == "" {
		return inferred, nil
	}
	if !isEventType(explicit) {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, explicit)
	}
	if explicit != inferred {
		return "", fmt.Errorf("%w: status %q implies type %q", ErrInvalidInput, status, inferred)
	}
	return explicit, nil
}

func isEventType(t EventType) bool {
	return t == EventTypeSingle || t == EventTypeCollaborative
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
