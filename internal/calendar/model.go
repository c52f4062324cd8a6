package calendar

import "context"

// Role orders calendar permissions from weakest to strongest.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// rank maps a role to its position in the viewer < editor < owner ordering.
// Unknown roles rank below viewer.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether the role grants at least the required level.
func (r Role) AtLeast(required Role) bool {
	return r.rank() >= required.rank()
}

// Valid reports whether the role is one of the three known levels.
func (r Role) Valid() bool {
	return r == RoleViewer || r == RoleEditor || r == RoleOwner
}

// EventType distinguishes personal events from ones shared with the whole calendar.
type EventType string

const (
	EventTypeSingle        EventType = "single"
	EventTypeCollaborative EventType = "collaborative"
)

// StatusTogether is the status value that implies a collaborative event.
const StatusTogether = "Birlikte"

// Profile mirrors the identity-provider user synced into the store on sign-in.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Calendar is a named container of events with one immutable owner.
type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

// CalendarRef is the calendar listing entry, annotated with the caller's role.
type CalendarRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// CalendarDetail is a calendar plus the caller's effective role on it.
type CalendarDetail struct {
	Calendar
	Role Role `json:"role"`
}

// Member is a user's relationship to a calendar. The composite key is
// (CalendarID, UserID); the owner gets an implicit accepted row at creation.
type Member struct {
	CalendarID string `json:"calendar_id"`
	UserID     string `json:"user_id"`
	Role       Role   `json:"role"`
	Accepted   bool   `json:"accepted"`
}

// Event is the persisted event row. Members are derived at read time, never stored.
type Event struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Time       string    `json:"time,omitempty"`
	Type       EventType `json:"type"`
}

// MemberProfile is an accepted member joined with its profile row. Members
// whose profile has not been synced yet carry empty name/avatar fields.
type MemberProfile struct {
	UserID    string
	FullName  string
	AvatarURL string
}

// EventMember is one entry of a materialized member list.
type EventMember struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// EventView is the client-facing representation of an event.
type EventView struct {
	ID         string        `json:"id"`
	CalendarID string        `json:"calendar_id"`
	OwnerID    string        `json:"owner_id"`
	Title      string        `json:"title"`
	Status     string        `json:"status"`
	Date       string        `json:"date"`
	Day        int           `json:"day"`
	Time       string        `json:"time,omitempty"`
	Type       EventType     `json:"type"`
	Members    []EventMember `json:"members"`
}

// CreateCalendarInput carries the fields accepted by calendar creation.
type CreateCalendarInput struct {
	ID   string
	Name string
}

// CreateEventInput carries the fields accepted by event creation.
type CreateEventInput struct {
	ID         string
	CalendarID string
	Title      string
	Status     string
	Date       string
	Time       string
	Type       EventType
}

// EventPatch distinguishes omitted fields from explicit updates.
type EventPatch struct {
	Title  *string
	Status *string
	Date   *string
	Time   *string
	Type   *EventType
}

// Repository is the persistence boundary for calendars, members, events and profiles.
type Repository interface {
	UpsertProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)

	// CreateCalendar writes the calendar and its owner membership row atomically.
	CreateCalendar(ctx context.Context, cal Calendar, owner Member) error
	GetCalendar(ctx context.Context, id string) (*Calendar, error)
	RenameCalendar(ctx context.Context, id, name string) error
	DeleteCalendar(ctx context.Context, id string) error
	ListOwnedCalendars(ctx context.Context, userID string) ([]Calendar, error)
	// ListMemberCalendars returns the calendars the user is an accepted member
	// of, paired index-for-index with the membership rows.
	ListMemberCalendars(ctx context.Context, userID string) ([]Calendar, []Member, error)

	GetMember(ctx context.Context, calendarID, userID string) (*Member, error)
	UpsertMember(ctx context.Context, member Member) error
	ListAcceptedMemberProfiles(ctx context.Context, calendarID string) ([]MemberProfile, error)

	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, calendarIDs []string) ([]Event, error)
}
