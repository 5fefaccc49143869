package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/pipeline"
	"github.com/intelligrit/wingstack/internal/scraper"
	"github.com/intelligrit/wingstack/internal/store"
)

const maxBodyBytes = 1 << 20

type quoteFormat string

const (
	quoteFormatEmail quoteFormat = "email"
	quoteFormatPDF   quoteFormat = "pdf"
)

type textRequest struct {
	Text string `json:"text"`
}

type linkRequest struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

type linkResponse struct {
	URL   string             `json:"url"`
	Title string             `json:"title"`
	Trip  *model.TripResult  `json:"trip,omitempty"`
	Quote *model.ParsedQuote `json:"quote,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

// tripRequest is a trip as posted by a planner. Text, when present, is parsed
// and fills any legs, passenger count or budget the request leaves empty.
type tripRequest struct {
	model.Trip
	Text string `json:"text"`
}

// quoteRequest is a quote as posted by a broker. Text, when present, is parsed
// as an email (or PDF text when Format is "pdf") and fills empty fields.
type quoteRequest struct {
	model.Quote
	Text   string `json:"text"`
	Format string `json:"format"`
}

type messageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

func (s *Server) handleExtractTrip(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, s.Pipeline.ParseTrip(r.Context(), req.Text))
}

func (s *Server) handleExtractQuote(format quoteFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}
		quote, err := s.parseQuote(r, format, req.Text)
		if err != nil {
			s.writeExtractionError(w, err)
			return
		}
		writeJSON(w, quote)
	}
}

func (s *Server) parseQuote(r *http.Request, format quoteFormat, text string) (*model.ParsedQuote, error) {
	if format == quoteFormatPDF {
		return s.Pipeline.ParsePDFQuote(r.Context(), text)
	}
	return s.Pipeline.ParseEmailQuote(r.Context(), text)
}

func (s *Server) handleExtractLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if s.Fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "link extraction is not configured")
		return
	}

	page, err := s.Fetcher.Fetch(r.Context(), req.URL)
	if errors.Is(err, scraper.ErrBlockedAddress) {
		s.logger().Warn("link fetch refused", "url", req.URL, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger().Warn("link fetch failed", "url", req.URL, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if page.Text == "" {
		writeError(w, http.StatusUnprocessableEntity, "page has no readable text")
		return
	}

	resp := linkResponse{URL: page.URL, Title: page.Title}
	switch strings.ToLower(req.Kind) {
	case "", "trip", "trip-request":
		result := s.Pipeline.ParseTrip(r.Context(), page.Text)
		resp.Trip = &result
	case "email", "email-quote", "quote":
		resp.Quote, err = s.Pipeline.ParseEmailQuote(r.Context(), page.Text)
	case "pdf", "pdf-quote":
		resp.Quote, err = s.Pipeline.ParsePDFQuote(r.Context(), page.Text)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", req.Kind))
		return
	}
	if err != nil {
		s.writeExtractionError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if !decodeBody(w, r, &req) {
		return
	}
	trip := req.Trip

	if strings.TrimSpace(req.Text) != "" {
		result := s.Pipeline.ParseTrip(r.Context(), req.Text)
		fillTrip(&trip, result.Request)
		if trip.Notes == "" {
			trip.Notes = req.Text
		}
	}

	if err := s.Store.CreateTrip(&trip); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, trip)
}

func fillTrip(t *model.Trip, parsed model.ParsedTripRequest) {
	if len(t.Legs) == 0 {
		t.Legs = parsed.Legs
	}
	if t.PassengerCount == "" {
		t.PassengerCount = parsed.PassengerCount
	}
	if t.Budget == "" {
		t.Budget = parsed.Budget
	}
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trips, err := s.Store.ListTrips(model.TripFilter{
		Status:       model.TripStatus(q.Get("status")),
		PlannerEmail: q.Get("planner_email"),
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, trips)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.Store.GetTrip(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, trip)
}

func (s *Server) handlePatchTrip(w http.ResponseWriter, r *http.Request) {
	var patch model.TripPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	trip, err := s.Store.PatchTrip(chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, trip)
}

func (s *Server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	quote := req.Quote
	quote.TripID = chi.URLParam(r, "id")

	if strings.TrimSpace(req.Text) != "" {
		format := quoteFormatEmail
		if strings.EqualFold(req.Format, string(quoteFormatPDF)) {
			format = quoteFormatPDF
		}
		parsed, err := s.parseQuote(r, format, req.Text)
		if err != nil {
			s.writeExtractionError(w, err)
			return
		}
		fillQuote(&quote, parsed)
	}

	if err := s.Store.CreateQuote(&quote); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, quote)
}

// fillQuote copies parsed values into the quote's empty fields.
func fillQuote(q *model.Quote, p *model.ParsedQuote) {
	fill := func(dst *string, v *string) {
		if *dst == "" && v != nil {
			*dst = *v
		}
	}
	fill(&q.AircraftType, p.Aircraft)
	fill(&q.AircraftCategory, p.Category)
	fill(&q.Price, p.Price)
	fill(&q.BrokerName, p.BrokerName)
	fill(&q.OperatorName, p.OperatorName)
	fill(&q.CancellationPolicy, p.CancellationPolicy)
	fill(&q.YearOfMake, p.YearOfMake)
	fill(&q.RefurbishedYear, p.RefurbishedYear)
	fill(&q.Notes, p.Notes)
	if q.AircraftYear == "" {
		q.AircraftYear = q.YearOfMake
	}
	if !q.Wifi && p.Wifi != nil {
		q.Wifi = *p.Wifi
	}
	if !q.TaxesIncluded && p.TaxesIncluded != nil {
		q.TaxesIncluded = *p.TaxesIncluded
	}
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Store.GetTrip(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	quotes, err := s.Store.ListQuotes(id, r.URL.Query().Get("email"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, quotes)
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "body is required")
		return
	}
	msg := model.Message{TripID: chi.URLParam(r, "id"), Sender: req.Sender, Body: req.Body}
	if err := s.Store.AppendMessage(&msg); err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, msg)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Store.GetTrip(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	msgs, err := s.Store.ListMessages(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, msgs)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Store.GetSummary(chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleRefreshSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Store.GetTrip(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	msgs, err := s.Store.ListMessages(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	text, err := s.Pipeline.Summarize(r.Context(), msgs)
	if err != nil {
		s.writeExtractionError(w, err)
		return
	}
	summary, err := s.Store.SetSummary(id, text)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, summary)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger().Error("store failure", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeExtractionError(w http.ResponseWriter, err error) {
	var extErr *pipeline.ExtractionError
	if errors.As(err, &extErr) {
		writeJSONStatus(w, http.StatusUnprocessableEntity, errorResponse{Error: extErr.Error(), Raw: extErr.Raw})
		return
	}
	s.logger().Error("extraction failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
