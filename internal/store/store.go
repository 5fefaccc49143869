package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/intelligrit/wingstack/internal/model"
)

var (
	// ErrNotFound is returned when a trip or summary does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid trip status")
)

// Store manages all data persistence via DuckDB.
type Store struct {
	DB      *sql.DB
	DataDir string

	now func() time.Time
}

// New opens (or creates) a DuckDB database in the given data directory.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "wingstack.duckdb")
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	s := &Store{DB: db, DataDir: dataDir, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) migrate() error {
	if _, err := s.DB.Exec("CREATE SEQUENCE IF NOT EXISTS messages_seq"); err != nil {
		return fmt.Errorf("creating sequence: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trips (
			id TEXT PRIMARY KEY,
			route TEXT NOT NULL,
			departure_date TEXT NOT NULL,
			passenger_count TEXT NOT NULL,
			budget TEXT NOT NULL,
			notes TEXT NOT NULL,
			planner_name TEXT NOT NULL,
			planner_email TEXT NOT NULL,
			partner_names TEXT NOT NULL,
			partner_emails TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trip_legs (
			trip_id TEXT NOT NULL,
			leg_index INTEGER NOT NULL,
			from_code TEXT NOT NULL,
			to_code TEXT NOT NULL,
			leg_date TEXT NOT NULL,
			leg_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			id TEXT PRIMARY KEY,
			trip_id TEXT NOT NULL,
			broker_name TEXT NOT NULL,
			operator_name TEXT NOT NULL,
			aircraft_type TEXT NOT NULL,
			aircraft_category TEXT NOT NULL,
			aircraft_year TEXT NOT NULL,
			price TEXT NOT NULL,
			taxes_included BOOLEAN NOT NULL,
			wifi BOOLEAN NOT NULL,
			yom TEXT NOT NULL,
			refurbished_year TEXT NOT NULL,
			cancellation_policy TEXT NOT NULL,
			notes TEXT NOT NULL,
			submitted_by_email TEXT NOT NULL,
			shared_with_emails TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT nextval('messages_seq'),
			trip_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_summaries (
			trip_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// timestamp returns the current time at the precision DuckDB stores.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// CreateTrip assigns an ID and timestamps to t and stores it with its legs.
// An empty status defaults to pending; an empty route or departure date is
// derived from the legs.
func (s *Store) CreateTrip(t *model.Trip) error {
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Legs == nil {
		t.Legs = []model.TripLeg{}
	}
	if t.Route == "" {
		t.Route = routeOf(t.Legs)
	}
	if t.DepartureDate == "" && len(t.Legs) > 0 {
		t.DepartureDate = t.Legs[0].Date
	}

	t.ID = uuid.NewString()
	t.CreatedAt = s.timestamp()
	t.UpdatedAt = t.CreatedAt

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	names, _ := json.Marshal(nonNil(t.PartnerNames))
	emails, _ := json.Marshal(nonNil(t.PartnerEmails))
	if _, err := tx.Exec(`INSERT INTO trips (id, route, departure_date, passenger_count, budget, notes,
		planner_name, planner_email, partner_names, partner_emails, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Route, t.DepartureDate, t.PassengerCount, t.Budget, t.Notes,
		t.PlannerName, t.PlannerEmail, string(names), string(emails), string(t.Status), t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}

	if err := writeLegs(tx, t.ID, t.Legs); err != nil {
		return err
	}
	return tx.Commit()
}

func writeLegs(tx *sql.Tx, tripID string, legs []model.TripLeg) error {
	if _, err := tx.Exec("DELETE FROM trip_legs WHERE trip_id = ?", tripID); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO trip_legs (trip_id, leg_index, from_code, to_code, leg_date, leg_time) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, leg := range legs {
		if _, err := stmt.Exec(tripID, i, leg.From, leg.To, leg.Date, leg.Time); err != nil {
			return fmt.Errorf("inserting leg %d: %w", i, err)
		}
	}
	return nil
}

const tripColumns = `id, route, departure_date, passenger_count, budget, notes, planner_name, planner_email,
	partner_names, partner_emails, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*model.Trip, error) {
	var t model.Trip
	var names, emails, status string
	if err := row.Scan(&t.ID, &t.Route, &t.DepartureDate, &t.PassengerCount, &t.Budget, &t.Notes,
		&t.PlannerName, &t.PlannerEmail, &names, &emails, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TripStatus(status)
	if err := json.Unmarshal([]byte(names), &t.PartnerNames); err != nil {
		return nil, fmt.Errorf("decoding partner_names of trip %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(emails), &t.PartnerEmails); err != nil {
		return nil, fmt.Errorf("decoding partner_emails of trip %s: %w", t.ID, err)
	}
	t.Legs = []model.TripLeg{}
	return &t, nil
}

// GetTrip loads one trip with its legs.
func (s *Store) GetTrip(id string) (*model.Trip, error) {
	t, err := scanTrip(s.DB.QueryRow("SELECT "+tripColumns+" FROM trips WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadLegs(map[string]*model.Trip{t.ID: t}); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTrips returns trips matching f, newest first. Without a status filter
// deleted trips are left out.
func (s *Store) ListTrips(f model.TripFilter) ([]*model.Trip, error) {
	var where []string
	var args []any
	switch {
	case f.Status != "":
		if !f.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
		}
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	default:
		where = append(where, "status <> ?")
		args = append(args, string(model.StatusDeleted))
	}
	if f.PlannerEmail != "" {
		where = append(where, "lower(planner_email) = lower(?)")
		args = append(args, f.PlannerEmail)
	}

	query := "SELECT " + tripColumns + " FROM trips WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC, id"
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []*model.Trip{}
	byID := map[string]*model.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadLegs(byID); err != nil {
		return nil, err
	}
	return trips, nil
}

func (s *Store) loadLegs(trips map[string]*model.Trip) error {
	if len(trips) == 0 {
		return nil
	}
	ids := make([]string, 0, len(trips))
	args := make([]any, 0, len(trips))
	for id := range trips {
		ids = append(ids, "?")
		args = append(args, id)
	}

	rows, err := s.DB.Query("SELECT trip_id, from_code, to_code, leg_date, leg_time FROM trip_legs WHERE trip_id IN ("+
		strings.Join(ids, ", ")+") ORDER BY trip_id, leg_index", args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tripID string
		var leg model.TripLeg
		if err := rows.Scan(&tripID, &leg.From, &leg.To, &leg.Date, &leg.Time); err != nil {
			return err
		}
		t := trips[tripID]
		t.Legs = append(t.Legs, leg)
	}
	return rows.Err()
}

// PatchTrip applies the non-nil fields of p. Any valid status may replace any
// other.
func (s *Store) PatchTrip(id string, p model.TripPatch) (*model.Trip, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
	}

	t, err := s.GetTrip(id)
	if err != nil {
		return nil, err
	}

	setString(&t.Route, p.Route)
	setString(&t.DepartureDate, p.DepartureDate)
	setString(&t.PassengerCount, p.PassengerCount)
	setString(&t.Budget, p.Budget)
	setString(&t.Notes, p.Notes)
	if p.PartnerNames != nil {
		t.PartnerNames = p.PartnerNames
	}
	if p.PartnerEmails != nil {
		t.PartnerEmails = p.PartnerEmails
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = s.timestamp()

	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	names, _ := json.Marshal(nonNil(t.PartnerNames))
	emails, _ := json.Marshal(nonNil(t.PartnerEmails))
	if _, err := tx.Exec(`UPDATE trips SET route = ?, departure_date = ?, passenger_count = ?, budget = ?, notes = ?,
		partner_names = ?, partner_emails = ?, status = ?, updated_at = ? WHERE id = ?`,
		t.Route, t.DepartureDate, t.PassengerCount, t.Budget, t.Notes,
		string(names), string(emails), string(t.Status), t.UpdatedAt, t.ID); err != nil {
		return nil, fmt.Errorf("updating trip: %w", err)
	}

	if p.Legs != nil {
		t.Legs = p.Legs
		if err := writeLegs(tx, t.ID, t.Legs); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) tripExists(id string) error {
	var n int
	err := s.DB.QueryRow("SELECT 1 FROM trips WHERE id = ?", id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return err
}

// CreateQuote stores q against an existing trip.
func (s *Store) CreateQuote(q *model.Quote) error {
	if err := s.tripExists(q.TripID); err != nil {
		return err
	}
	q.ID = uuid.NewString()
	q.CreatedAt = s.timestamp()

	_, err := s.DB.Exec(`INSERT INTO quotes (id, trip_id, broker_name, operator_name, aircraft_type, aircraft_category,
		aircraft_year, price, taxes_included, wifi, yom, refurbished_year, cancellation_policy, notes,
		submitted_by_email, shared_with_emails, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.TripID, q.BrokerName, q.OperatorName, q.AircraftType, q.AircraftCategory,
		q.AircraftYear, q.Price, q.TaxesIncluded, q.Wifi, q.YearOfMake, q.RefurbishedYear, q.CancellationPolicy, q.Notes,
		q.SubmittedByEmail, q.SharedWithEmails, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting quote: %w", err)
	}
	return nil
}

// ListQuotes returns a trip's quotes oldest first. A non-empty email limits
// the result to quotes that address submitted or shared with.
func (s *Store) ListQuotes(tripID, email string) ([]*model.Quote, error) {
	rows, err := s.DB.Query(`SELECT id, trip_id, broker_name, operator_name, aircraft_type, aircraft_category,
		aircraft_year, price, taxes_included, wifi, yom, refurbished_year, cancellation_policy, notes,
		submitted_by_email, shared_with_emails, created_at
		FROM quotes WHERE trip_id = ? ORDER BY created_at, id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotes := []*model.Quote{}
	for rows.Next() {
		var q model.Quote
		if err := rows.Scan(&q.ID, &q.TripID, &q.BrokerName, &q.OperatorName, &q.AircraftType, &q.AircraftCategory,
			&q.AircraftYear, &q.Price, &q.TaxesIncluded, &q.Wifi, &q.YearOfMake, &q.RefurbishedYear, &q.CancellationPolicy, &q.Notes,
			&q.SubmittedByEmail, &q.SharedWithEmails, &q.CreatedAt); err != nil {
			return nil, err
		}
		if email == "" || addressedTo(&q, email) {
			quotes = append(quotes, &q)
		}
	}
	return quotes, rows.Err()
}

// addressedTo reports whether email submitted q or appears in its
// comma-separated share list. Comparison ignores case and spacing.
func addressedTo(q *model.Quote, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if strings.ToLower(strings.TrimSpace(q.SubmittedByEmail)) == email {
		return true
	}
	for _, shared := range strings.Split(q.SharedWithEmails, ",") {
		if strings.ToLower(strings.TrimSpace(shared)) == email {
			return true
		}
	}
	return false
}

// AppendMessage adds a chat message to a trip.
func (s *Store) AppendMessage(m *model.Message) error {
	if err := s.tripExists(m.TripID); err != nil {
		return err
	}
	m.ID = uuid.NewString()
	m.CreatedAt = s.timestamp()
	_, err := s.DB.Exec("INSERT INTO messages (id, trip_id, sender, body, created_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.TripID, m.Sender, m.Body, m.CreatedAt)
	return err
}

// ListMessages returns a trip's messages in the order they were posted.
func (s *Store) ListMessages(tripID string) ([]model.Message, error) {
	rows, err := s.DB.Query("SELECT id, trip_id, sender, body, created_at FROM messages WHERE trip_id = ? ORDER BY created_at, seq", tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.TripID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SetSummary replaces a trip's chat summary.
func (s *Store) SetSummary(tripID, summary string) (*model.ChatSummary, error) {
	if err := s.tripExists(tripID); err != nil {
		return nil, err
	}
	cs := &model.ChatSummary{TripID: tripID, Summary: summary, UpdatedAt: s.timestamp()}
	_, err := s.DB.Exec("INSERT OR REPLACE INTO chat_summaries (trip_id, summary, updated_at) VALUES (?, ?, ?)",
		cs.TripID, cs.Summary, cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return cs, nil
}

// GetSummary returns a trip's chat summary, or ErrNotFound if none was made.
func (s *Store) GetSummary(tripID string) (*model.ChatSummary, error) {
	var cs model.ChatSummary
	err := s.DB.QueryRow("SELECT trip_id, summary, updated_at FROM chat_summaries WHERE trip_id = ?", tripID).
		Scan(&cs.TripID, &cs.Summary, &cs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for trip %s: %w", tripID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// Counts returns trips per status and total quotes and messages.
func (s *Store) Counts() (model.StatusCounts, error) {
	counts := model.StatusCounts{TripsByStatus: map[model.TripStatus]int{}}

	rows, err := s.DB.Query("SELECT status, COUNT(*) FROM trips GROUP BY status")
	if err != nil {
		return counts, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		counts.TripsByStatus[model.TripStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return counts, err
	}

	if err := s.DB.QueryRow("SELECT COUNT(*) FROM quotes").Scan(&counts.Quotes); err != nil {
		return counts, err
	}
	if err := s.DB.QueryRow("SELECT COUNT(*) FROM messages").Scan(&counts.Messages); err != nil {
		return counts, err
	}
	return counts, nil
}

func routeOf(legs []model.TripLeg) string {
	if len(legs) == 0 {
		return ""
	}
	stops := []string{legs[0].From}
	for _, leg := range legs {
		if leg.From != stops[len(stops)-1] {
			stops = append(stops, leg.From)
		}
		stops = append(stops, leg.To)
	}
	return strings.Join(stops, " - ")
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
