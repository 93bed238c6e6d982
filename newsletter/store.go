// Package newsletter stores newsletter subscribers and serves the signup
// endpoints.
package newsletter

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultSource is recorded when a signup does not say where it came from.
const DefaultSource = "website"

// Custom errors for subscriber operations
var (
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrDuplicateEmail     = errors.New("email is already subscribed")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Subscriber is one newsletter signup.
type Subscriber struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Source         string     `json:"source"`
	LeadMagnet     bool       `json:"leadMagnet"`
	Tags           []string   `json:"tags"`
	Confirmed      bool       `json:"confirmed"`
	SubscribedAt   time.Time  `json:"subscribedAt"`
	UnsubscribedAt *time.Time `json:"unsubscribedAt,omitempty"`
}

// Active reports whether the subscriber still receives mail.
func (s *Subscriber) Active() bool {
	return s.UnsubscribedAt == nil
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	Source    *string
	Confirmed *bool
	Active    *bool
	Limit     int
	Offset    int
}

// SubscriberStore manages subscribers using SQLite.
type SubscriberStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSubscriberStore opens (or creates) the subscriber database at dbPath.
func NewSubscriberStore(dbPath string) (*SubscriberStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SubscriberStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SubscriberStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subscribers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		source TEXT NOT NULL,
		lead_magnet INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		subscribed_at TEXT NOT NULL,
		unsubscribed_at TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SubscriberStore) Close() error {
	return s.db.Close()
}

// ValidateEmail checks that email is a bare address.
func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// SubscriberTags returns the tags a new subscriber is filed under.
func SubscriberTags(source string, leadMagnet bool) []string {
	if leadMagnet {
		return []string{"lead-magnet", source}
	}
	return []string{source}
}

// Subscribe records a new, unconfirmed subscriber.
func (s *SubscriberStore) Subscribe(email, source string, leadMagnet bool) (*Subscriber, error) {
	email = strings.TrimSpace(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if source == "" {
		source = DefaultSource
	}

	sub := &Subscriber{
		ID:           uuid.New(),
		Email:        email,
		Source:       source,
		LeadMagnet:   leadMagnet,
		Tags:         SubscriberTags(source, leadMagnet),
		SubscribedAt: s.now().Truncate(0),
	}

	tags, err := json.Marshal(sub.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO subscribers (id, email, source, lead_magnet, tags, confirmed, subscribed_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, sub.ID.String(), sub.Email, sub.Source, sub.LeadMagnet, string(tags), formatTime(&sub.SubscribedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to insert subscriber: %w", err)
	}

	return sub, nil
}

const selectColumns = `SELECT id, email, source, lead_magnet, tags, confirmed, subscribed_at, unsubscribed_at FROM subscribers`

// Get retrieves a subscriber by ID.
func (s *SubscriberStore) Get(id uuid.UUID) (*Subscriber, error) {
	row := s.db.QueryRow(selectColumns+` WHERE id = ?`, id.String())
	return scanSubscriber(row)
}

// GetByEmail retrieves a subscriber by address, ignoring case.
func (s *SubscriberStore) GetByEmail(email string) (*Subscriber, error) {
	row := s.db.QueryRow(selectColumns+` WHERE email = ?`, strings.TrimSpace(email))
	return scanSubscriber(row)
}

// List returns subscribers matching filter, newest first.
func (s *SubscriberStore) List(filter Filter) ([]Subscriber, error) {
	query := selectColumns + ` WHERE 1=1`
	var args []any

	if filter.Source != nil {
		query += ` AND source = ?`
		args = append(args, *filter.Source)
	}
	if filter.Confirmed != nil {
		query += ` AND confirmed = ?`
		args = append(args, *filter.Confirmed)
	}
	if filter.Active != nil {
		if *filter.Active {
			query += ` AND unsubscribed_at IS NULL`
		} else {
			query += ` AND unsubscribed_at IS NOT NULL`
		}
	}

	query += ` ORDER BY subscribed_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	subs := []Subscriber{}
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

// Confirm marks a subscriber's address as confirmed.
func (s *SubscriberStore) Confirm(id uuid.UUID) error {
	result, err := s.db.Exec(`UPDATE subscribers SET confirmed = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to confirm subscriber: %w", err)
	}
	return requireRow(result)
}

// Unsubscribe stops mail to email. Unsubscribing twice keeps the first
// timestamp.
func (s *SubscriberStore) Unsubscribe(email string) error {
	now := s.now()
	result, err := s.db.Exec(`
		UPDATE subscribers SET unsubscribed_at = COALESCE(unsubscribed_at, ?)
		WHERE email = ?
	`, formatTime(&now), strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return ErrSubscriberNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row scanner) (*Subscriber, error) {
	var idStr, email, source, tagsJSON, subscribedAt string
	var leadMagnet, confirmed bool
	var unsubscribedAt sql.NullString

	err := row.Scan(&idStr, &email, &source, &leadMagnet, &tagsJSON, &confirmed, &subscribedAt, &unsubscribedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscriber: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subscriber id: %w", err)
	}

	sub := &Subscriber{
		ID:           id,
		Email:        email,
		Source:       source,
		LeadMagnet:   leadMagnet,
		Confirmed:    confirmed,
		SubscribedAt: parseTime(subscribedAt),
	}
	if err := json.Unmarshal([]byte(tagsJSON), &sub.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if unsubscribedAt.Valid {
		t := parseTime(unsubscribedAt.String)
		sub.UnsubscribedAt = &t
	}

	return sub, nil
}

// Times are stored at a fixed width so ORDER BY on the text column matches
// time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Truncate(0).UTC().Format(storedTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(storedTimeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.Truncate(0)
}
