package ingest

import (
	"errors"
	"testing"
)

func TestParseContentTypeDispatch(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     bool
	}{
		{
			name:        "json",
			contentType: "application/json",
			body:        `{"search_name": "x"}`,
		},
		{
			name:        "json-with-charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"search_name": "x"}`,
		},
		{
			name:        "form",
			contentType: "application/x-www-form-urlencoded",
			body:        `search_name=x&sid=abc`,
		},
		{
			name:        "missing-content-type-json-body",
			contentType: "",
			body:        `{"search_name": "x"}`,
		},
		{
			name:        "missing-content-type-form-body",
			contentType: "",
			body:        `search_name=x`,
		},
		{
			name:        "invalid-json-under-json-type",
			contentType: "application/json",
			body:        `{not json`,
			wantErr:     true,
		},
		{
			name:        "totally-unparseable",
			contentType: "",
			body:        "\x00;;%zz=%",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.contentType, []byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedPayload) {
					t.Fatalf("expected ErrMalformedPayload, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := p["search_name"]; !ok {
				t.Fatalf("expected search_name in payload, got %v", p)
			}
		})
	}
}

func TestParseFormExpandsNestedJSON(t *testing.T) {
	body := `search_name=test&result=%7B%22value%22%3A%2225%22%2C%22time%22%3A%221700000000%22%7D`
	p, err := Parse("application/x-www-form-urlencoded", []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, ok := p["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result to be expanded into an object, got %T", p["result"])
	}
	if result["value"] != "25" {
		t.Errorf("expected nested value 25, got %v", result["value"])
	}
}

func TestParseFormKeepsRawStringOnNestedParseFailure(t *testing.T) {
	// result는 JSON처럼 시작하지만 깨진 값 - 원본 문자열을 유지해야 함
	body := `search_name=test&result=%7Bbroken`
	p, err := Parse("application/x-www-form-urlencoded", []byte(body))
	if err != nil {
		t.Fatalf("nested parse failure must not fail the request: %v", err)
	}
	if _, ok := p["result"].(string); !ok {
		t.Errorf("expected raw string to be kept, got %T", p["result"])
	}
}

func TestValueAtWalksNestedPaths(t *testing.T) {
	p := Payload{
		"result": map[string]any{
			"alert_type": "Brute Force",
		},
	}

	v, ok := valueAt(p, "result.alert_type")
	if !ok || v != "Brute Force" {
		t.Fatalf("expected Brute Force, got %v (ok=%v)", v, ok)
	}

	if _, ok := valueAt(p, "result.missing.deeper"); ok {
		t.Error("expected miss on nonexistent path")
	}
}

func TestEpochMillisScalesSeconds(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{1700000000, 1700000000000},    // seconds
		{1700000000000, 1700000000000}, // already millis
		{0, 0},
	}
	for _, tt := range tests {
		if got := epochMillis(tt.in); got != tt.want {
			t.Errorf("epochMillis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
