package analysis

import (
	"reflect"
	"testing"
)

func TestMatchCampaigns_TextAliases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single alias", "activity attributed to Fancy Bear infrastructure", []string{"apt28"}},
		{"case insensitive", "COZY BEAR tooling observed", []string{"apt29"}},
		{"two aliases one campaign", "Cozy Bear droppers and cozyduke loaders", []string{"apt29"}},
		{"two campaigns", "hidden cobra overlaps with sednit tooling", []string{"apt28", "lazarus"}},
		{"no match", "routine patch advisory", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchCampaigns(tt.text, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchCampaigns(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestMatchCampaigns_EntityValues(t *testing.T) {
	entities := []ExtractedEntity{
		{Type: "ORG", Value: "The Dukes", Confidence: 0.92},
		{Type: "ORG", Value: "Equation", Confidence: 0.85},
	}

	got := MatchCampaigns("no aliases in the running text", entities)
	want := []string{"apt29", "equation_group"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchCampaigns entities = %v, want %v", got, want)
	}
}

func TestMatchCampaigns_TextAndEntityDedupe(t *testing.T) {
	// A campaign already matched from text must not be re-added from an
	// entity hit.
	entities := []ExtractedEntity{
		{Type: "ORG", Value: "CozyDuke", Confidence: 0.9},
	}

	got := MatchCampaigns("report mentions Cozy Bear explicitly", entities)
	want := []string{"apt29"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchCampaigns = %v, want %v", got, want)
	}
}

func TestCampaignNames(t *testing.T) {
	want := []string{"apt29", "apt28", "lazarus", "equation_group"}
	if got := CampaignNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("CampaignNames() = %v, want %v", got, want)
	}
}
