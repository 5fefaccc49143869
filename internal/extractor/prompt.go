package extractor

import (
	"fmt"
	"strings"
)

// TaskKind selects the instruction sent to the model.
type TaskKind string

const (
	TaskTripRequest TaskKind = "trip-request"
	TaskEmailQuote  TaskKind = "email-quote"
	TaskPDFQuote    TaskKind = "pdf-quote"
	TaskChatSummary TaskKind = "chat-summary"
)

// ParseTaskKind maps CLI and API spellings onto a TaskKind.
func ParseTaskKind(s string) (TaskKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trip", "trip-request":
		return TaskTripRequest, nil
	case "email", "email-quote", "quote":
		return TaskEmailQuote, nil
	case "pdf", "pdf-quote":
		return TaskPDFQuote, nil
	case "summary", "chat-summary":
		return TaskChatSummary, nil
	}
	return "", fmt.Errorf("unknown extraction kind %q", s)
}

// WantsJSON reports whether the task's answer is a JSON object.
func (k TaskKind) WantsJSON() bool {
	return k != TaskChatSummary
}

const tripSystemPrompt = `You are a private aviation trip request parser. You read free-form trip requests written by travel planners (emails, text messages, pasted notes) and extract the flight legs in structured JSON.

## Rules
1. Extract ONLY what the text states. Never invent legs, dates, times or amounts.
2. Each leg is one directional flight. Keep legs in travel order as written.
3. "from" and "to" are airport codes. Use a 4-letter ICAO code when the text gives one (e.g. KTEB, EGGW). Otherwise use the 3-letter FAA/IATA code of the airport a private jet would most likely use for the named city (e.g. New York -> TEB, Los Angeles -> VNY, Miami -> OPF). Fix obvious misspellings of city names.
4. "date" is MM/DD/YYYY. Assume the next future occurrence when the year is missing. Use "" when no date is given.
5. "time" is 24-hour HH:MM (3pm -> 15:00). Use "" when no time is given.
6. "passenger_count" is a whole number written as a string ("5"). Use "" when unknown.
7. "budget" is a plain number written as a string with no currency symbol or separators. Expand shorthand: "70k" -> "70000", "$1.2M" -> "1200000". Use "" when no budget is given.
8. A round trip ("returning Sunday") is two legs.`

const emailQuoteSystemPrompt = `You are a charter quote parser. You read emails from aircraft brokers and operators that quote a price for a private flight, and extract the quote in structured JSON.

## Rules
1. Extract ONLY what the email states. Use null for anything not mentioned.
2. "aircraft" is the make and model as written (e.g. "Citation XLS+", "Gulfstream G450").
3. "category" is the size class: one of "Turboprop", "Light", "Midsize", "Super Midsize", "Heavy", "Ultra Long Range". Infer it from the aircraft model only when the model is unambiguous.
4. "price" is the quoted total as a plain number string without symbols or separators ("$42,500" -> "42500").
5. "broker_name" is the brokerage or person sending the quote; "operator_name" is the company operating the aircraft, if different.
6. "wifi" and "taxes_included" are true or false when stated, otherwise null.
7. "yom" is the year of manufacture, "refurbished_year" the year of the last interior refurbishment, both as 4-digit strings.
8. "cancellation_policy" is the cancellation terms as written. "notes" holds any other conditions (positioning, overnight fees, catering).`

const pdfQuoteSystemPrompt = `You are a charter quote parser. You read text extracted from PDF quote sheets produced by aircraft operators and brokers. The text may have broken line wraps, repeated page headers and table columns flattened into lines.

## Rules
1. Extract ONLY what the document states. Use null for anything not mentioned.
2. Ignore page headers, footers, page numbers and legal boilerplate unless it is the cancellation policy.
3. "aircraft" is the make and model (e.g. "Challenger 350"). "category" is the size class: one of "Turboprop", "Light", "Midsize", "Super Midsize", "Heavy", "Ultra Long Range".
4. "price" is the grand total as a plain number string without symbols or separators. Prefer the total including taxes and fees when both appear.
5. "wifi" and "taxes_included" are true or false when stated, otherwise null.
6. "yom" is the year of manufacture, "refurbished_year" the year of the last refurbishment, both as 4-digit strings.
7. "broker_name", "operator_name", "cancellation_policy" and "notes" as written in the document.`

const chatSummarySystemPrompt = `You summarise the chat between a travel planner, their partners and charter brokers about one private flight trip. Write a short plain-text summary (at most 6 sentences) covering decisions made, open questions, preferred quotes and next steps. Do not use markdown.`

const quoteJSONShape = `{
  "aircraft": "Citation XLS+",
  "price": "42500",
  "category": "Midsize",
  "broker_name": "Skyline Charter",
  "operator_name": null,
  "cancellation_policy": "Non-refundable within 72 hours of departure",
  "wifi": true,
  "taxes_included": false,
  "yom": "2012",
  "refurbished_year": "2020",
  "notes": null
}`

// BuildPrompt returns the instruction and user segment for kind with payload
// embedded verbatim.
func BuildPrompt(kind TaskKind, payload string) (Prompt, error) {
	switch kind {
	case TaskTripRequest:
		return Prompt{
			System: tripSystemPrompt,
			User: `Extract the trip legs from this request.

Respond with ONLY valid JSON in this exact format (no markdown, no explanation):
{
  "legs": [
    {"from": "TEB", "to": "VNY", "date": "06/20/2025", "time": "09:00"}
  ],
  "passenger_count": "5",
  "budget": "70000"
}

If no legs are found, return: {"legs": [], "passenger_count": "", "budget": ""}

--- TRIP REQUEST ---
` + payload,
			JSON: kind.WantsJSON(),
		}, nil
	case TaskEmailQuote:
		return Prompt{
			System: emailQuoteSystemPrompt,
			User: `Extract the quote from this email.

Respond with ONLY valid JSON in this exact format (no markdown, no explanation):
` + quoteJSONShape + `

--- EMAIL ---
` + payload,
			JSON: kind.WantsJSON(),
		}, nil
	case TaskPDFQuote:
		return Prompt{
			System: pdfQuoteSystemPrompt,
			User: `Extract the quote from this PDF text.

Respond with ONLY valid JSON in this exact format (no markdown, no explanation):
` + quoteJSONShape + `

--- PDF TEXT ---
` + payload,
			JSON: kind.WantsJSON(),
		}, nil
	case TaskChatSummary:
		return Prompt{
			System: chatSummarySystemPrompt,
			User:   "--- CHAT ---\n" + payload,
		}, nil
	}
	return Prompt{}, fmt.Errorf("no prompt for task %q", kind)
}
