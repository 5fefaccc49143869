package extractor

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeJSON_Direct(t *testing.T) {
	input := `{"legs":[{"from":"TEB","to":"VNY","date":"06/20/2025","time":""}],"passenger_count":"5","budget":"70000"}`

	doc, err := DecodeJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	legs, ok := doc["legs"].([]any)
	if !ok || len(legs) != 1 {
		t.Fatalf("expected 1 leg, got %v", doc["legs"])
	}
	if doc["passenger_count"] != "5" {
		t.Errorf("expected passenger_count 5, got %v", doc["passenger_count"])
	}
}

func TestDecodeJSON_WithPreamble(t *testing.T) {
	input := `Here is the quote:
{
  "aircraft": "Citation XLS+",
  "price": "42500"
}
Let me know if you need anything else.`

	doc, err := DecodeJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc["aircraft"] != "Citation XLS+" {
		t.Errorf("expected aircraft Citation XLS+, got %v", doc["aircraft"])
	}
}

func TestDecodeJSON_CodeBlock(t *testing.T) {
	input := "Sure {see below}\n```json\n{\"legs\":[],\"passenger_count\":\"\",\"budget\":\"\"}\n```"

	doc, err := DecodeJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if legs := doc["legs"].([]any); len(legs) != 0 {
		t.Fatalf("expected 0 legs, got %d", len(legs))
	}
}

func TestDecodeJSON_KeepsNumbers(t *testing.T) {
	doc, err := DecodeJSON(`{"passenger_count": 12}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := doc["passenger_count"].(json.Number)
	if !ok || n.String() != "12" {
		t.Errorf("expected json.Number 12, got %#v", doc["passenger_count"])
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	for _, input := range []string{"not json at all", "", "[1,2,3]", "{\"a\":"} {
		_, err := DecodeJSON(input)
		var malformed *MalformedOutputError
		if !errors.As(err, &malformed) {
			t.Fatalf("%q: expected MalformedOutputError, got %v", input, err)
		}
		if malformed.Raw != input {
			t.Errorf("%q: raw output not preserved: %q", input, malformed.Raw)
		}
	}
}
