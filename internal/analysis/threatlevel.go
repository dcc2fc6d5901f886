package analysis

import "strings"

// keywordBucket is one severity tier of the threat keyword table with its
// fixed point weight.
type keywordBucket struct {
	weight   int
	keywords []string
}

// Threat keyword reference data. A keyword contributes its bucket weight
// once per definition when present anywhere in the text, not once per
// physical occurrence.
var threatKeywords = []keywordBucket{
	{10, []string{"exploit", "zero-day", "ransomware", "backdoor", "rootkit"}},
	{7, []string{"malware", "trojan", "virus", "worm", "phishing"}},
	{4, []string{"suspicious", "anomaly", "unusual", "unauthorized"}},
	{1, []string{"informational", "advisory", "warning"}},
}

// AssessThreatLevel aggregates keyword, IOC, and entity signals into a
// discrete severity. The score thresholds are a fixed contract: this is the
// only place severity classes are finalized.
func AssessThreatLevel(text string, entities []ExtractedEntity, iocs []IOC) ThreatLevel {
	score := ThreatScore(text, entities, iocs)

	switch {
	case score >= 20:
		return ThreatLevelCritical
	case score >= 10:
		return ThreatLevelHigh
	case score >= 5:
		return ThreatLevelMedium
	case score > 0:
		return ThreatLevelLow
	default:
		return ThreatLevelInfo
	}
}

// ThreatScore accumulates the raw integer score behind AssessThreatLevel.
func ThreatScore(text string, entities []ExtractedEntity, iocs []IOC) int {
	score := 0

	textLower := strings.ToLower(text)
	for _, bucket := range threatKeywords {
		for _, keyword := range bucket.keywords {
			if strings.Contains(textLower, keyword) {
				score += bucket.weight
			}
		}
	}

	// Repeated indicator values are scored per occurrence even though the
	// store collapses them. Matches the upstream pipeline's behavior.
	for _, ioc := range iocs {
		switch {
		case ioc.Confidence > 0.8:
			score += 5
		case ioc.Confidence > 0.6:
			score += 3
		default:
			score += 1
		}
	}

	for _, entity := range entities {
		if (entity.Type == "ORG" || entity.Type == "PERSON") && entity.Confidence > 0.8 {
			score += 2
		}
	}

	return score
}
