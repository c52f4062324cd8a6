package calendar

import (
	"context"
	"sort"
	"sync"
)

// memoryRepository implements Repository with in-memory maps. It backs tests
// and local development (DATASTORE=memory).
type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	cals     map[string]Calendar
	members  map[string]map[string]Member // calendar id -> user id -> member
	events   map[string]Event
	eventSeq []string // preserves insertion order for listings
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		profiles: make(map[string]Profile),
		cals:     make(map[string]Calendar),
		members:  make(map[string]map[string]Member),
		events:   make(map[string]Event),
	}
}

func (r *memoryRepository) UpsertProfile(_ context.Context, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.ID] = profile
	return nil
}

func (r *memoryRepository) GetProfile(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (r *memoryRepository) GetProfileByEmail(_ context.Context, email string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, profile := range r.profiles {
		if profile.Email == email {
			p := profile
			return &p, nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) CreateCalendar(_ context.Context, cal Calendar, owner Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cals[cal.ID] = cal
	if r.members[cal.ID] == nil {
		r.members[cal.ID] = make(map[string]Member)
	}
	r.members[cal.ID][owner.UserID] = owner
	return nil
}

func (r *memoryRepository) GetCalendar(_ context.Context, id string) (*Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.cals[id]
	if !ok {
		return nil, nil
	}
	return &cal, nil
}

func (r *memoryRepository) RenameCalendar(_ context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cal, ok := r.cals[id]
	if !ok {
		return ErrNotFound
	}
	cal.Name = name
	r.cals[id] = cal
	return nil
}

func (r *memoryRepository) DeleteCalendar(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cals, id)
	delete(r.members, id)
	for eventID, event := range r.events {
		if event.CalendarID == id {
			delete(r.events, eventID)
		}
	}
	r.eventSeq = filterIDs(r.eventSeq, func(eventID string) bool {
		_, ok := r.events[eventID]
		return ok
	})
	return nil
}

func (r *memoryRepository) ListOwnedCalendars(_ context.Context, userID string) ([]Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owned []Calendar
	for _, cal := range r.cals {
		if cal.OwnerID == userID {
			owned = append(owned, cal)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned, nil
}

func (r *memoryRepository) ListMemberCalendars(_ context.Context, userID string) ([]Calendar, []Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		cals        []Calendar
		memberships []Member
	)
	ids := make([]string, 0, len(r.members))
	for calendarID := range r.members {
		ids = append(ids, calendarID)
	}
	sort.Strings(ids)
	for _, calendarID := range ids {
		member, ok := r.members[calendarID][userID]
		if !ok || !member.Accepted {
			continue
		}
		cal, ok := r.cals[calendarID]
		if !ok {
			continue
		}
		cals = append(cals, cal)
		memberships = append(memberships, member)
	}
	return cals, memberships, nil
}

func (r *memoryRepository) GetMember(_ context.Context, calendarID, userID string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	member, ok := r.members[calendarID][userID]
	if !ok {
		return nil, nil
	}
	return &member, nil
}

func (r *memoryRepository) UpsertMember(_ context.Context, member Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[member.CalendarID] == nil {
		r.members[member.CalendarID] = make(map[string]Member)
	}
	r.members[member.CalendarID][member.UserID] = member
	return nil
}

func (r *memoryRepository) ListAcceptedMemberProfiles(_ context.Context, calendarID string) ([]MemberProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userIDs := make([]string, 0, len(r.members[calendarID]))
	for userID, member := range r.members[calendarID] {
		if member.Accepted {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Strings(userIDs)

	profiles := make([]MemberProfile, 0, len(userIDs))
	for _, userID := range userIDs {
		mp := MemberProfile{UserID: userID}
		if profile, ok := r.profiles[userID]; ok {
			mp.FullName = profile.FullName
			mp.AvatarURL = profile.AvatarURL
		}
		profiles = append(profiles, mp)
	}
	return profiles, nil
}

func (r *memoryRepository) CreateEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		r.eventSeq = append(r.eventSeq, event.ID)
	}
	r.events[event.ID] = event
	return nil
}

func (r *memoryRepository) GetEvent(_ context.Context, id string) (*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	event, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (r *memoryRepository) UpdateEvent(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[event.ID]; !ok {
		return ErrNotFound
	}
	r.events[event.ID] = event
	return nil
}

func (r *memoryRepository) DeleteEvent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	r.eventSeq = filterIDs(r.eventSeq, func(eventID string) bool {
		_, ok := r.events[eventID]
		return ok
	})
	return nil
}

func (r *memoryRepository) ListEvents(_ context.Context, calendarIDs []string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	allowed := make(map[string]struct{}, len(calendarIDs))
	for _, id := range calendarIDs {
		allowed[id] = struct{}{}
	}

	var events []Event
	for _, eventID := range r.eventSeq {
		event, ok := r.events[eventID]
		if !ok {
			continue
		}
		if _, ok := allowed[event.CalendarID]; ok {
			events = append(events, event)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func filterIDs(ids []string, keep func(string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
