package analysis

import "strings"

// campaignSignature maps an adversary campaign to its known lowercase
// aliases. Declaration order keeps attribution output deterministic.
type campaignSignature struct {
	name    string
	aliases []string
}

// Known adversary signature sets. Read-only reference data.
var campaignSignatures = []campaignSignature{
	{"apt29", []string{"cozy bear", "the dukes", "minidionis", "cozyduke"}},
	{"apt28", []string{"fancy bear", "pawn storm", "sednit", "tsar team"}},
	{"lazarus", []string{"hidden cobra", "zinc", "nickel academy"}},
	{"equation_group", []string{"equation", "eagleeye", "doublefantasy"}},
}

// CampaignNames returns the identifiers of all known campaigns.
func CampaignNames() []string {
	names := make([]string, len(campaignSignatures))
	for i, c := range campaignSignatures {
		names[i] = c.name
	}
	return names
}

// MatchCampaigns attributes text and extracted entities to known campaigns.
// Matching is case-insensitive substring search over the aliases. Each
// campaign appears at most once in the result regardless of how many of its
// aliases hit.
func MatchCampaigns(text string, entities []ExtractedEntity) []string {
	var matched []string
	seen := make(map[string]bool)

	textLower := strings.ToLower(text)
	for _, c := range campaignSignatures {
		for _, alias := range c.aliases {
			if strings.Contains(textLower, alias) {
				matched = append(matched, c.name)
				seen[c.name] = true
				break
			}
		}
	}

	for _, entity := range entities {
		valueLower := strings.ToLower(entity.Value)
		for _, c := range campaignSignatures {
			if seen[c.name] {
				continue
			}
			for _, alias := range c.aliases {
				if strings.Contains(valueLower, alias) {
					matched = append(matched, c.name)
					seen[c.name] = true
					break
				}
			}
		}
	}

	return matched
}
