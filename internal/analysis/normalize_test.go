package analysis

import (
	"encoding/json"
	"testing"
)

func decodeResults(t *testing.T, raw string) Results {
	t.Helper()
	var r Results
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decoding results: %v", err)
	}
	return r
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			"string values in field order",
			`{"title": "Incident report", "body": "malware found"}`,
			"Incident report malware found",
		},
		{
			"list of strings",
			`{"lines": ["first", "second"]}`,
			"first second",
		},
		{
			"nested objects stringified",
			`{"items": [{"ip": "8.8.8.8"}]}`,
			`{"ip":"8.8.8.8"}`,
		},
		{
			"unsupported values skipped",
			`{"count": 42, "flag": true, "meta": {"a": 1}, "text": "kept"}`,
			"kept",
		},
		{
			"non-string list elements skipped",
			`{"mixed": ["kept", 7, null, "also kept"]}`,
			"kept also kept",
		},
		{
			"null field skipped",
			`{"note": null, "text": "kept"}`,
			"kept",
		},
		{
			"lone null list element",
			`{"only": [null]}`,
			"",
		},
		{
			"empty mapping",
			`{}`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decodeResults(t, tt.raw)
			if got := r.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize_PreservesWireOrder(t *testing.T) {
	// Go maps would shuffle these; the token-walk decoder must not.
	r := decodeResults(t, `{"z": "last field first", "a": "then this"}`)
	want := "last field first then this"
	if got := r.Normalize(); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestResults_RejectsNonObject(t *testing.T) {
	var r Results
	if err := json.Unmarshal([]byte(`["not", "an", "object"]`), &r); err == nil {
		t.Error("expected error decoding a non-object results value")
	}
}

func TestResults_NullValue(t *testing.T) {
	var r Results
	if err := json.Unmarshal([]byte(`null`), &r); err != nil {
		t.Fatalf("decoding null results: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("null results Len() = %d, want 0", r.Len())
	}
	if got := r.Normalize(); got != "" {
		t.Errorf("null results Normalize() = %q, want empty", got)
	}
}

func TestResults_RoundTrip(t *testing.T) {
	// Every value kind must re-encode as received, including the ones
	// normalization skips.
	raw := `{"title":"report","items":[{"ip":"8.8.8.8"},7,null,"x"],"count":42,"flag":null,"lines":["a","b"]}`
	r := decodeResults(t, raw)

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshaling results: %v", err)
	}
	if string(out) != raw {
		t.Errorf("round-trip = %s, want %s", out, raw)
	}

	var again Results
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("re-decoding results: %v", err)
	}
	if got, want := again.Normalize(), r.Normalize(); got != want {
		t.Errorf("round-trip Normalize() = %q, want %q", got, want)
	}
	if again.Len() != r.Len() {
		t.Errorf("round-trip Len() = %d, want %d", again.Len(), r.Len())
	}
}
