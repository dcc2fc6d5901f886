package analysis

import (
	"regexp"
	"time"
)

// iocPattern pairs an indicator type with its compiled expression.
// Declaration order is the extraction order.
type iocPattern struct {
	typ IOCType
	re  *regexp.Regexp
}

// The fixed indicator pattern set. Word-boundary anchors keep hash patterns
// from matching substrings of longer hex runs and keep CVE ids exact.
var iocPatterns = []iocPattern{
	{IOCTypeIP, regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`)},
	{IOCTypeDomain, regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)},
	{IOCTypeEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{IOCTypeHashMD5, regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)},
	{IOCTypeHashSHA1, regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)},
	{IOCTypeHashSHA256, regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)},
	{IOCTypeURL, regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)},
	{IOCTypeCVE, regexp.MustCompile(`\bCVE-\d{4}-\d{4,}\b`)},
}

// ExtractIOCs finds every indicator in the text, scores it, and keeps those
// above the retention threshold. Duplicate matches of the same value are
// each scored and returned; deduplication happens at storage time only.
func ExtractIOCs(text string, observedAt time.Time) []IOC {
	var iocs []IOC
	for _, p := range iocPatterns {
		for _, match := range p.re.FindAllString(text, -1) {
			confidence := Confidence(p.typ, match)
			if confidence <= retentionThreshold {
				continue
			}
			iocs = append(iocs, IOC{
				Type:       p.typ,
				Value:      match,
				Confidence: confidence,
				ThreatType: ThreatTypeFor(p.typ),
				FirstSeen:  observedAt,
				LastSeen:   observedAt,
			})
		}
	}
	return iocs
}

// PatternTypes returns the indicator types in extraction order.
func PatternTypes() []IOCType {
	types := make([]IOCType, len(iocPatterns))
	for i, p := range iocPatterns {
		types[i] = p.typ
	}
	return types
}
