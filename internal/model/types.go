package model

import "time"

// TripLeg is one directional flight segment. Date is MM/DD/YYYY and Time is
// 24-hour HH:MM; either may be empty when unknown.
type TripLeg struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// ParsedTripRequest is the output contract of the trip extraction flow.
// PassengerCount and Budget are decimal strings, empty when unknown.
type ParsedTripRequest struct {
	Legs           []TripLeg `json:"legs"`
	PassengerCount string    `json:"passenger_count"`
	Budget         string    `json:"budget"`
}

// EmptyTripRequest returns a request with a non-nil, empty legs slice.
func EmptyTripRequest() ParsedTripRequest {
	return ParsedTripRequest{Legs: []TripLeg{}}
}

// TripSource records which extractor produced a ParsedTripRequest.
type TripSource string

const (
	SourceModel    TripSource = "model"
	SourceFallback TripSource = "fallback"
)

// TripResult wraps a parsed trip with its provenance.
type TripResult struct {
	Request ParsedTripRequest `json:"request"`
	Source  TripSource        `json:"source"`
	Reason  string            `json:"reason,omitempty"`
}

// ParsedQuote is the extraction output for quote documents. A nil field means
// the value was not found in the source text.
type ParsedQuote struct {
	Aircraft           *string `json:"aircraft"`
	Price              *string `json:"price"`
	Category           *string `json:"category"`
	BrokerName         *string `json:"broker_name"`
	OperatorName       *string `json:"operator_name"`
	CancellationPolicy *string `json:"cancellation_policy"`
	Wifi               *bool   `json:"wifi"`
	TaxesIncluded      *bool   `json:"taxes_included"`
	YearOfMake         *string `json:"yom"`
	RefurbishedYear    *string `json:"refurbished_year"`
	Notes              *string `json:"notes"`
}

// ExtractionFailureRecord is one append-only entry written when the model
// response for a trip request could not be used.
type ExtractionFailureRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Flow      string            `json:"flow"`
	Reason    string            `json:"reason"`
	Input     string            `json:"input"`
	Fallback  ParsedTripRequest `json:"fallback"`
}

// TripStatus is the lifecycle label of a stored trip. Any status may be set
// from any other.
type TripStatus string

const (
	StatusPending  TripStatus = "pending"
	StatusBooked   TripStatus = "booked"
	StatusArchived TripStatus = "archived"
	StatusDeleted  TripStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case StatusPending, StatusBooked, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// Trip is a stored trip request.
type Trip struct {
	ID             string     `json:"id"`
	Route          string     `json:"route"`
	DepartureDate  string     `json:"departure_date"`
	PassengerCount string     `json:"passenger_count"`
	Budget         string     `json:"budget"`
	Notes          string     `json:"notes"`
	PlannerName    string     `json:"planner_name"`
	PlannerEmail   string     `json:"planner_email"`
	PartnerNames   []string   `json:"partner_names"`
	PartnerEmails  []string   `json:"partner_emails"`
	Status         TripStatus `json:"status"`
	Legs           []TripLeg  `json:"legs"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TripPatch holds the fields of a partial trip update. Nil fields are left
// unchanged.
type TripPatch struct {
	Route          *string     `json:"route,omitempty"`
	DepartureDate  *string     `json:"departure_date,omitempty"`
	PassengerCount *string     `json:"passenger_count,omitempty"`
	Budget         *string     `json:"budget,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	PartnerNames   []string    `json:"partner_names,omitempty"`
	PartnerEmails  []string    `json:"partner_emails,omitempty"`
	Status         *TripStatus `json:"status,omitempty"`
	Legs           []TripLeg   `json:"legs,omitempty"`
}

// TripFilter narrows ListTrips results. Empty fields match everything.
type TripFilter struct {
	Status       TripStatus
	PlannerEmail string
}

// Quote is a broker/operator price quote stored against a trip.
type Quote struct {
	ID                 string    `json:"id"`
	TripID             string    `json:"trip_id"`
	BrokerName         string    `json:"broker_name"`
	OperatorName       string    `json:"operator_name"`
	AircraftType       string    `json:"aircraft_type"`
	AircraftCategory   string    `json:"aircraft_category"`
	AircraftYear       string    `json:"aircraft_year"`
	Price              string    `json:"price"`
	TaxesIncluded      bool      `json:"taxes_included"`
	Wifi               bool      `json:"wifi"`
	YearOfMake         string    `json:"yom"`
	RefurbishedYear    string    `json:"refurbished_year"`
	CancellationPolicy string    `json:"cancellation_policy"`
	Notes              string    `json:"notes"`
	SubmittedByEmail   string    `json:"submitted_by_email"`
	SharedWithEmails   string    `json:"shared_with_emails"`
	CreatedAt          time.Time `json:"created_at"`
}

// Message is one chat message posted on a trip.
type Message struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatSummary is the AI-generated digest of a trip's chat.
type ChatSummary struct {
	TripID    string    `json:"trip_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCounts is a snapshot of store contents for the status command.
type StatusCounts struct {
	TripsByStatus map[TripStatus]int
	Quotes        int
	Messages      int
}
