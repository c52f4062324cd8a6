package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// postgresRepository implements Repository on top of a Postgres database.
// All authorization happens in the service layer; the connection uses
// service-level credentials with full read/write.
type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a Postgres connection and verifies it.
func NewPostgresRepository(connStr string) (Repository, *sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &postgresRepository{db: db}, db, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			full_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS calendar_members (
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			accepted BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (calendar_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			time TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'single'
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *postgresRepository) UpsertProfile(ctx context.Context, profile Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = $2, full_name = $3, avatar_url = $4`
	_, err := r.db.ExecContext(ctx, query, profile.ID, profile.Email, profile.FullName, profile.AvatarURL)
	return err
}

func (r *postgresRepository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	query := `SELECT id, email, full_name, avatar_url FROM profiles WHERE id = $1`
	var p Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	query := `SELECT id, email, full_name, avatar_url FROM profiles WHERE LOWER(email) = $1`
	var p Profile
	err := r.db.QueryRowContext(ctx, query, email).Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateCalendar writes the calendar row and the owner membership row in one
// transaction so a calendar never exists without its owner member.
func (r *postgresRepository) CreateCalendar(ctx context.Context, cal Calendar, owner Member) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendars (id, name, owner_id) VALUES ($1, $2, $3)`,
		cal.ID, cal.Name, cal.OwnerID,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_members (calendar_id, user_id, role, accepted)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (calendar_id, user_id) DO UPDATE SET role = $3, accepted = $4`,
		owner.CalendarID, owner.UserID, string(owner.Role), owner.Accepted,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) GetCalendar(ctx context.Context, id string) (*Calendar, error) {
	query := `SELECT id, name, owner_id FROM calendars WHERE id = $1`
	var cal Calendar
	err := r.db.QueryRowContext(ctx, query, id).Scan(&cal.ID, &cal.Name, &cal.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cal, nil
}

func (r *postgresRepository) RenameCalendar(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE calendars SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteCalendar(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	return err
}

func (r *postgresRepository) ListOwnedCalendars(ctx context.Context, userID string) ([]Calendar, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, owner_id FROM calendars WHERE owner_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cals []Calendar
	for rows.Next() {
		var cal Calendar
		if err := rows.Scan(&cal.ID, &cal.Name, &cal.OwnerID); err != nil {
			return nil, err
		}
		cals = append(cals, cal)
	}
	return cals, rows.Err()
}

func (r *postgresRepository) ListMemberCalendars(ctx context.Context, userID string) ([]Calendar, []Member, error) {
	query := `
		SELECT c.id, c.name, c.owner_id, m.role, m.accepted
		FROM calendar_members m
		JOIN calendars c ON c.id = m.calendar_id
		WHERE m.user_id = $1 AND m.accepted = TRUE
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		cals        []Calendar
		memberships []Member
	)
	for rows.Next() {
		var (
			cal  Calendar
			role string
			acc  bool
		)
		if err := rows.Scan(&cal.ID, &cal.Name, &cal.OwnerID, &role, &acc); err != nil {
			return nil, nil, err
		}
		cals = append(cals, cal)
		memberships = append(memberships, Member{
			CalendarID: cal.ID,
			UserID:     userID,
			Role:       Role(role),
			Accepted:   acc,
		})
	}
	return cals, memberships, rows.Err()
}

func (r *postgresRepository) GetMember(ctx context.Context, calendarID, userID string) (*Member, error) {
	query := `
		SELECT calendar_id, user_id, role, accepted
		FROM calendar_members WHERE calendar_id = $1 AND user_id = $2`
	var (
		member Member
		role   string
	)
	err := r.db.QueryRowContext(ctx, query, calendarID, userID).
		Scan(&member.CalendarID, &member.UserID, &role, &member.Accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	member.Role = Role(role)
	return &member, nil
}

func (r *postgresRepository) UpsertMember(ctx context.Context, member Member) error {
	query := `
		INSERT INTO calendar_members (calendar_id, user_id, role, accepted)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (calendar_id, user_id) DO UPDATE SET role = $3, accepted = $4`
	_, err := r.db.ExecContext(ctx, query, member.CalendarID, member.UserID, string(member.Role), member.Accepted)
	return err
}

func (r *postgresRepository) ListAcceptedMemberProfiles(ctx context.Context, calendarID string) ([]MemberProfile, error) {
	query := `
		SELECT m.user_id, COALESCE(p.full_name, ''), COALESCE(p.avatar_url, '')
		FROM calendar_members m
		LEFT JOIN profiles p ON p.id = m.user_id
		WHERE m.calendar_id = $1 AND m.accepted = TRUE`
	rows, err := r.db.QueryContext(ctx, query, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []MemberProfile
	for rows.Next() {
		var mp MemberProfile
		if err := rows.Scan(&mp.UserID, &mp.FullName, &mp.AvatarURL); err != nil {
			return nil, err
		}
		profiles = append(profiles, mp)
	}
	return profiles, rows.Err()
}

func (r *postgresRepository) CreateEvent(ctx context.Context, event Event) error {
	query := `
		INSERT INTO events (id, calendar_id, owner_id, title, status, date, time, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.CalendarID, event.OwnerID, event.Title,
		event.Status, event.Date, event.Time, string(event.Type))
	return err
}

func (r *postgresRepository) GetEvent(ctx context.Context, id string) (*Event, error) {
	query := `SELECT id, calendar_id, owner_id, title, status, date, time, type FROM events WHERE id = $1`
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *postgresRepository) UpdateEvent(ctx context.Context, event Event) error {
	query := `
		UPDATE events SET title = $2, status = $3, date = $4, time = $5, type = $6
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Status, event.Date, event.Time, string(event.Type))
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteEvent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

func (r *postgresRepository) ListEvents(ctx context.Context, calendarIDs []string) ([]Event, error) {
	if len(calendarIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, calendar_id, owner_id, title, status, date, time, type
		FROM events WHERE calendar_id = ANY($1) ORDER BY date ASC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(calendarIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event     Event
		eventType string
	)
	if err := row.Scan(&event.ID, &event.CalendarID, &event.OwnerID, &event.Title,
		&event.Status, &event.Date, &event.Time, &eventType); err != nil {
		return nil, err
	}
	event.Type = EventType(eventType)
	return &event, nil
}
