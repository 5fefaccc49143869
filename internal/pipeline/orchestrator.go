// Package pipeline drives the extraction flows: it calls the model gateway,
// validates what comes back, and decides between the model's answer, the
// deterministic fallback, or a rejection.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intelligrit/wingstack/internal/airport"
	"github.com/intelligrit/wingstack/internal/extractor"
	"github.com/intelligrit/wingstack/internal/fallback"
	"github.com/intelligrit/wingstack/internal/metrics"
	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/normalize"
)

// Gateway is the model call the orchestrator depends on. *extractor.Gateway
// satisfies it.
type Gateway interface {
	Extract(ctx context.Context, kind extractor.TaskKind, payload string) (string, error)
}

// FailureRecorder stores one record per trip request that fell back.
type FailureRecorder interface {
	Record(ctx context.Context, rec model.ExtractionFailureRecord) error
}

// ExtractionError is the terminal failure of a quote or summary flow. Raw is
// the unparsed model output when the model answered at all.
type ExtractionError struct {
	Flow   extractor.TaskKind
	Reason string
	Raw    string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %s", e.Flow, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Orchestrator runs extraction flows. It is safe for concurrent use as long
// as its Gateway and FailureRecorder are.
type Orchestrator struct {
	gateway  Gateway
	resolver *airport.Resolver
	failures FailureRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// New builds an Orchestrator. A nil resolver uses the built-in alias table and
// a nil recorder drops failure records.
func New(gw Gateway, resolver *airport.Resolver, failures FailureRecorder, logger *slog.Logger) *Orchestrator {
	if resolver == nil {
		resolver = airport.New(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:  gw,
		resolver: resolver,
		failures: failures,
		logger:   logger,
		now:      time.Now,
	}
}

// ParseTrip turns a free-form trip request into a ParsedTripRequest. It never
// fails: when the model cannot be used the fallback extractor's result is
// returned with Source set to fallback.
func (o *Orchestrator) ParseTrip(ctx context.Context, text string) model.TripResult {
	raw, err := o.gateway.Extract(ctx, extractor.TaskTripRequest, text)
	if err != nil {
		return o.fallBack(ctx, text, err)
	}

	doc, err := extractor.DecodeJSON(raw)
	if err != nil {
		return o.fallBack(ctx, text, err)
	}

	req, err := validateTrip(doc, raw)
	if err != nil {
		return o.fallBack(ctx, text, err)
	}

	req = o.normalizeTrip(req)
	metrics.ExtractionOutcomes.WithLabelValues(string(extractor.TaskTripRequest), "accepted").Inc()
	o.logger.Info("trip request parsed", "source", model.SourceModel, "legs", len(req.Legs))
	return model.TripResult{Request: req, Source: model.SourceModel}
}

func (o *Orchestrator) fallBack(ctx context.Context, text string, cause error) model.TripResult {
	req := fallback.Extract(text)
	reason := cause.Error()

	metrics.ExtractionOutcomes.WithLabelValues(string(extractor.TaskTripRequest), "fallback").Inc()
	o.logger.Warn("trip request fell back to pattern extraction",
		"reason", reason, "legs", len(req.Legs))

	if o.failures != nil {
		rec := model.ExtractionFailureRecord{
			Timestamp: o.now().UTC(),
			Flow:      string(extractor.TaskTripRequest),
			Reason:    reason,
			Input:     text,
			Fallback:  req,
		}
		// The record is best effort; the caller still gets the fallback.
		if err := o.failures.Record(context.WithoutCancel(ctx), rec); err != nil {
			o.logger.Error("writing extraction failure record", "error", err)
		}
	}

	return model.TripResult{Request: req, Source: model.SourceFallback, Reason: reason}
}

// validateTrip checks the required-field contract: legs is an array of
// objects and passenger_count is present as a string or number.
func validateTrip(doc map[string]any, raw string) (model.ParsedTripRequest, error) {
	malformed := func(format string, args ...any) error {
		return &extractor.MalformedOutputError{Reason: fmt.Sprintf(format, args...), Raw: raw}
	}

	rawLegs, ok := doc["legs"]
	if !ok {
		return model.ParsedTripRequest{}, malformed("missing legs")
	}
	items, ok := rawLegs.([]any)
	if !ok {
		return model.ParsedTripRequest{}, malformed("legs is %T, not an array", rawLegs)
	}

	pax, ok := doc["passenger_count"]
	if !ok {
		return model.ParsedTripRequest{}, malformed("missing passenger_count")
	}
	paxText, ok := scalarString(pax)
	if !ok {
		return model.ParsedTripRequest{}, malformed("passenger_count is %T", pax)
	}

	req := model.EmptyTripRequest()
	req.PassengerCount = paxText
	req.Budget, _ = scalarString(doc["budget"])

	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return model.ParsedTripRequest{}, malformed("leg %d is %T, not an object", i, item)
		}
		leg := model.TripLeg{}
		leg.From, _ = scalarString(obj["from"])
		leg.To, _ = scalarString(obj["to"])
		leg.Date, _ = scalarString(obj["date"])
		leg.Time, _ = scalarString(obj["time"])
		req.Legs = append(req.Legs, leg)
	}
	return req, nil
}

func (o *Orchestrator) normalizeTrip(req model.ParsedTripRequest) model.ParsedTripRequest {
	for i, leg := range req.Legs {
		leg.From = o.resolver.Resolve(leg.From)
		leg.To = o.resolver.Resolve(leg.To)
		if leg.Date != "" {
			if d, err := normalize.Date(leg.Date); err == nil {
				leg.Date = d
			} else {
				o.logger.Debug("dropping unparseable leg date", "leg", i, "error", err)
				leg.Date = ""
			}
		}
		if t, err := normalize.Time(leg.Time); err == nil {
			leg.Time = t
		} else {
			o.logger.Debug("dropping unparseable leg time", "leg", i, "error", err)
			leg.Time = ""
		}
		req.Legs[i] = leg
	}
	req.PassengerCount = normalize.Count(req.PassengerCount)
	req.Budget = normalize.Amount(req.Budget)
	return req
}

// ParseEmailQuote extracts a quote from an email body.
func (o *Orchestrator) ParseEmailQuote(ctx context.Context, text string) (*model.ParsedQuote, error) {
	return o.parseQuote(ctx, extractor.TaskEmailQuote, text)
}

// ParsePDFQuote extracts a quote from text pulled out of a PDF.
func (o *Orchestrator) ParsePDFQuote(ctx context.Context, text string) (*model.ParsedQuote, error) {
	return o.parseQuote(ctx, extractor.TaskPDFQuote, text)
}

func (o *Orchestrator) parseQuote(ctx context.Context, kind extractor.TaskKind, text string) (*model.ParsedQuote, error) {
	raw, err := o.gateway.Extract(ctx, kind, text)
	if err != nil {
		return nil, o.reject(kind, "", err)
	}

	doc, err := extractor.DecodeJSON(raw)
	if err != nil {
		return nil, o.reject(kind, raw, err)
	}

	quote := decodeQuote(doc)
	metrics.ExtractionOutcomes.WithLabelValues(string(kind), "accepted").Inc()
	o.logger.Info("quote parsed", "flow", kind)
	return quote, nil
}

func (o *Orchestrator) reject(kind extractor.TaskKind, raw string, cause error) *ExtractionError {
	metrics.ExtractionOutcomes.WithLabelValues(string(kind), "rejected").Inc()
	o.logger.Warn("extraction rejected", "flow", kind, "error", cause, "raw_bytes", len(raw))

	var malformed *extractor.MalformedOutputError
	if raw == "" && errors.As(cause, &malformed) {
		raw = malformed.Raw
	}
	return &ExtractionError{Flow: kind, Reason: cause.Error(), Raw: raw, Err: cause}
}

// decodeQuote maps a parsed model answer onto ParsedQuote. Values of the wrong
// type are treated as not found.
func decodeQuote(doc map[string]any) *model.ParsedQuote {
	q := &model.ParsedQuote{
		Aircraft:           optString(doc["aircraft"]),
		Category:           optString(doc["category"]),
		BrokerName:         optString(doc["broker_name"]),
		OperatorName:       optString(doc["operator_name"]),
		CancellationPolicy: optString(doc["cancellation_policy"]),
		Wifi:               optBool(doc["wifi"]),
		TaxesIncluded:      optBool(doc["taxes_included"]),
		YearOfMake:         optString(doc["yom"]),
		RefurbishedYear:    optString(doc["refurbished_year"]),
		Notes:              optString(doc["notes"]),
	}
	if price := optString(doc["price"]); price != nil {
		// Keep the model's wording when it is not a single amount ("on request").
		if amount := normalize.Amount(*price); amount != "" {
			price = &amount
		}
		q.Price = price
	}
	return q
}

// Summarize condenses a trip's chat into a short digest.
func (o *Orchestrator) Summarize(ctx context.Context, messages []model.Message) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.UTC().Format(time.RFC3339), m.Sender, m.Body)
	}

	raw, err := o.gateway.Extract(ctx, extractor.TaskChatSummary, b.String())
	if err != nil {
		return "", o.reject(extractor.TaskChatSummary, "", err)
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", o.reject(extractor.TaskChatSummary, raw, errors.New("empty summary"))
	}
	metrics.ExtractionOutcomes.WithLabelValues(string(extractor.TaskChatSummary), "accepted").Inc()
	return summary, nil
}

// scalarString renders a JSON string or number as text. nil and other types
// report false.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return fmt.Sprintf("%g", t), true
	}
	return "", false
}

func optString(v any) *string {
	s, ok := scalarString(v)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func optBool(v any) *bool {
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "y", "included":
			b = true
		case "no", "false", "n", "not included":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}
