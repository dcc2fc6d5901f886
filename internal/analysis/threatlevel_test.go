package analysis

import (
	"strings"
	"testing"
	"time"
)

// lowSignalIOCs builds n indicators that each contribute exactly 1 point.
func lowSignalIOCs(n int) []IOC {
	iocs := make([]IOC, n)
	for i := range iocs {
		iocs[i] = IOC{Type: IOCTypeDomain, Value: "x.example", Confidence: 0.55}
	}
	return iocs
}

func TestAssessThreatLevel_ExactThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  ThreatLevel
	}{
		{0, ThreatLevelInfo},
		{1, ThreatLevelLow},
		{4, ThreatLevelLow},
		{5, ThreatLevelMedium},
		{9, ThreatLevelMedium},
		{10, ThreatLevelHigh},
		{19, ThreatLevelHigh},
		{20, ThreatLevelCritical},
	}

	for _, tt := range tests {
		iocs := lowSignalIOCs(tt.score)
		if got := ThreatScore("", nil, iocs); got != tt.score {
			t.Fatalf("ThreatScore setup = %d, want %d", got, tt.score)
		}
		if got := AssessThreatLevel("", nil, iocs); got != tt.want {
			t.Errorf("score %d -> %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestThreatScore_KeywordWeights(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"ransomware detected", 10},
		{"trojan dropped", 7},
		{"unusual login pattern", 4},
		{"routine advisory issued", 1},
		{"ransomware trojan unusual advisory", 22},
		// Substring presence, not occurrence count.
		{"ransomware ransomware ransomware", 10},
		{"nothing of note", 0},
	}

	for _, tt := range tests {
		if got := ThreatScore(tt.text, nil, nil); got != tt.want {
			t.Errorf("ThreatScore(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestThreatScore_KeywordCaseInsensitive(t *testing.T) {
	if got := ThreatScore("RANSOMWARE outbreak", nil, nil); got != 10 {
		t.Errorf("uppercase keyword score = %d, want 10", got)
	}
}

func TestThreatScore_IOCBands(t *testing.T) {
	iocs := []IOC{
		{Confidence: 0.95}, // +5
		{Confidence: 0.81}, // +5
		{Confidence: 0.80}, // +3 (not > 0.8)
		{Confidence: 0.70}, // +3
		{Confidence: 0.60}, // +1 (not > 0.6)
		{Confidence: 0.55}, // +1
	}
	if got := ThreatScore("", nil, iocs); got != 18 {
		t.Errorf("IOC band score = %d, want 18", got)
	}
}

func TestThreatScore_EntitySignal(t *testing.T) {
	entities := []ExtractedEntity{
		{Type: "ORG", Value: "Acme", Confidence: 0.9},     // +2
		{Type: "PERSON", Value: "Mallory", Confidence: 0.85}, // +2
		{Type: "ORG", Value: "Ignored", Confidence: 0.8},  // not > 0.8
		{Type: "GPE", Value: "Nowhere", Confidence: 0.99}, // wrong type
	}
	if got := ThreatScore("", entities, nil); got != 4 {
		t.Errorf("entity signal score = %d, want 4", got)
	}
}

func TestThreatScore_DuplicateIOCsScorePerOccurrence(t *testing.T) {
	// Repeated values keep contributing even though storage dedupes them.
	text := strings.Repeat("ping 8.8.8.8 ", 5)
	iocs := ExtractIOCs(text, time.Now().UTC())

	// 5 occurrences at confidence 0.80 contribute 3 points each.
	if got := ThreatScore("", nil, iocs); got != 15 {
		t.Errorf("duplicate occurrence score = %d, want 15", got)
	}
}
