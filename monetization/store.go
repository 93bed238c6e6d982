// Package monetization records deal alert signups and revenue events and
// serves the revenue dashboard aggregates.
package monetization

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Event types accepted by the revenue tracker.
const (
	EventAffiliateClick  = "affiliate_click"
	EventPremiumSignup   = "premium_signup"
	EventDealAlertSignup = "deal_alert_signup"
	EventNewsletter      = "newsletter_signup"
)

// EventTypes lists every accepted event type.
var EventTypes = []string{EventAffiliateClick, EventPremiumSignup, EventDealAlertSignup, EventNewsletter}

// Custom errors for monetization operations
var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrTargetNotBelow   = errors.New("target price must be lower than current price")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrMissingEventType = errors.New("event type is required")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidPeriod    = errors.New("period must look like 30d or 4w")
	ErrUnknownMetric    = errors.New("unknown metric")
)

// DealAlert asks to be told when a product drops to TargetPrice.
type DealAlert struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	ProductName  string    `json:"productName"`
	TargetPrice  float64   `json:"targetPrice"`
	CurrentPrice float64   `json:"currentPrice"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Event is one tracked revenue interaction.
type Event struct {
	ID          string         `json:"eventId"`
	Type        string         `json:"eventType"`
	ProductName string         `json:"productName,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	Value       float64        `json:"value"`
	UserID      string         `json:"userId,omitempty"`
	SessionID   string         `json:"sessionId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	UserAgent   string         `json:"userAgent,omitempty"`
	Referer     string         `json:"referer,omitempty"`
	IP          string         `json:"ip"`
}

// Store keeps deal alerts and revenue events in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the monetization database at dbPath. A nil
// clock means time.Now.
func NewStore(dbPath string, now func() time.Time) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if now == nil {
		now = time.Now
	}

	store := &Store{db: db, now: now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deal_alerts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL COLLATE NOCASE,
		product_name TEXT NOT NULL,
		target_price REAL NOT NULL,
		current_price REAL NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_deal_alerts_email ON deal_alerts(email);

	CREATE TABLE IF NOT EXISTS revenue_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		product_name TEXT,
		provider TEXT,
		value REAL NOT NULL DEFAULT 0,
		user_id TEXT,
		session_id TEXT,
		metadata TEXT,
		created_at TEXT NOT NULL,
		user_agent TEXT,
		referer TEXT,
		ip TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revenue_events_created ON revenue_events(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

// CreateAlert validates and stores a new active alert.
func (s *Store) CreateAlert(email, productName string, targetPrice, currentPrice float64) (*DealAlert, error) {
	if err := ValidateAlert(email, productName, targetPrice, currentPrice); err != nil {
		return nil, err
	}

	alert := &DealAlert{
		ID:           uuid.New(),
		Email:        email,
		ProductName:  productName,
		TargetPrice:  targetPrice,
		CurrentPrice: currentPrice,
		IsActive:     true,
		CreatedAt:    s.now().UTC().Truncate(0),
	}

	_, err := s.db.Exec(`
		INSERT INTO deal_alerts (id, email, product_name, target_price, current_price, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, alert.ID.String(), alert.Email, alert.ProductName, alert.TargetPrice, alert.CurrentPrice,
		formatTime(alert.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert deal alert: %w", err)
	}

	return alert, nil
}

// ActiveAlerts returns the active alerts registered for email, oldest first.
func (s *Store) ActiveAlerts(email string) ([]DealAlert, error) {
	rows, err := s.db.Query(`
		SELECT id, email, product_name, target_price, current_price, is_active, created_at
		FROM deal_alerts
		WHERE email = ? AND is_active = 1
		ORDER BY created_at ASC
	`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal alerts: %w", err)
	}
	defer rows.Close()

	alerts := []DealAlert{}
	for rows.Next() {
		var a DealAlert
		var idStr, createdAt string
		if err := rows.Scan(&idStr, &a.Email, &a.ProductName, &a.TargetPrice, &a.CurrentPrice, &a.IsActive, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal alert: %w", err)
		}
		if a.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse deal alert id: %w", err)
		}
		a.CreatedAt = parseTime(createdAt)
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// RecordEvent stamps e with an ID and the current time and stores it.
func (s *Store) RecordEvent(e Event) (*Event, error) {
	if e.Type == "" {
		return nil, ErrMissingEventType
	}
	if !slices.Contains(EventTypes, e.Type) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, e.Type)
	}

	e.ID = "evt_" + uuid.NewString()
	e.Timestamp = s.now().UTC().Truncate(0)
	if e.IP == "" {
		e.IP = "unknown"
	}

	var metadata *string
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		str := string(data)
		metadata = &str
	}

	_, err := s.db.Exec(`
		INSERT INTO revenue_events (
			id, event_type, product_name, provider, value, user_id, session_id,
			metadata, created_at, user_agent, referer, ip
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Type, e.ProductName, e.Provider, e.Value, e.UserID, e.SessionID,
		metadata, formatTime(e.Timestamp), e.UserAgent, e.Referer, e.IP)
	if err != nil {
		return nil, fmt.Errorf("failed to insert revenue event: %w", err)
	}

	return &e, nil
}

// EventsSince returns events recorded at or after since, oldest first.
func (s *Store) EventsSince(since time.Time) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, event_type, product_name, provider, value, user_id, session_id,
		       metadata, created_at, user_agent, referer, ip
		FROM revenue_events
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query revenue events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var createdAt string
		var productName, provider, userID, sessionID, metadata, userAgent, referer sql.NullString
		err := rows.Scan(&e.ID, &e.Type, &productName, &provider, &e.Value, &userID, &sessionID,
			&metadata, &createdAt, &userAgent, &referer, &e.IP)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revenue event: %w", err)
		}
		e.ProductName = productName.String
		e.Provider = provider.String
		e.UserID = userID.String
		e.SessionID = sessionID.String
		e.UserAgent = userAgent.String
		e.Referer = referer.String
		e.Timestamp = parseTime(createdAt)
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// Times are stored at a fixed width so string order matches time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(storedTimeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.Truncate(0)
}
