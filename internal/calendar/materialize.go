package calendar

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

const (
	memberFallbackName = "Member"
	ownerFallbackName  = "Owner"
)

// materialize expands a persisted event row into its client-facing view,
// resolving the member list according to the event type.
func (s *service) materialize(ctx context.Context, event Event) (EventView, error) {
	date := normalizeDate(event.Date)

	eventType := event.Type
	if eventType == "" {
		eventType = EventTypeSingle
	}

	view := EventView{
		ID:         event.ID,
		CalendarID: event.CalendarID,
		OwnerID:    event.OwnerID,
		Title:      event.Title,
		Status:     event.Status,
		Date:       date,
		Day:        dayOfMonth(date),
		Time:       event.Time,
		Type:       eventType,
		Members:    []EventMember{},
	}

	if eventType == EventTypeCollaborative {
		members, err := s.collaborativeMembers(ctx, event)
		if err != nil {
			return EventView{}, err
		}
		view.Members = members
		return view, nil
	}

	owner, err := s.repo.GetProfile(ctx, event.OwnerID)
	if err != nil {
		return EventView{}, err
	}
	view.Members = []EventMember{ownerMember(event.OwnerID, owner)}
	return view, nil
}

// collaborativeMembers lists every accepted member of the event's calendar,
// owner first. The owner profile and the member join are independent reads,
// so they run concurrently.
func (s *service) collaborativeMembers(ctx context.Context, event Event) ([]EventMember, error) {
	var (
		profiles []MemberProfile
		owner    *Profile
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		p, err := s.repo.ListAcceptedMemberProfiles(ctx, event.CalendarID)
		if err != nil {
			return err
		}
		profiles = p
		return nil
	})

	g.Go(func() error {
		p, err := s.repo.GetProfile(ctx, event.OwnerID)
		if err != nil {
			return err
		}
		owner = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Owner leads the list regardless of where their membership row lands
	// in the store.
	members := make([]EventMember, 0, len(profiles)+1)
	members = append(members, ownerMember(event.OwnerID, owner))
	seen := map[string]struct{}{event.OwnerID: {}}
	for _, p := range profiles {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}

		name := p.FullName
		if name == "" {
			name = memberFallbackName
		}
		members = append(members, EventMember{ID: p.UserID, Name: name, Avatar: p.AvatarURL})
	}
	return members, nil
}

func ownerMember(ownerID string, profile *Profile) EventMember {
	member := EventMember{ID: ownerID, Name: ownerFallbackName}
	if profile != nil {
		if profile.FullName != "" {
			member.Name = profile.FullName
		}
		member.Avatar = profile.AvatarURL
	}
	return member
}

// normalizeDate coerces a stored date to canonical YYYY-MM-DD. Unparseable or
// absent dates fall back to today; the store has historically held a few of
// those and the view must still render.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout)
		}
	}
	return time.Now().Format(dateLayout)
}

func dayOfMonth(date string) int {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return time.Now().Day()
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day == 0 {
		return time.Now().Day()
	}
	return day
}
