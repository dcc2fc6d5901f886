package analysis

import (
	"strconv"
	"strings"
)

// retentionThreshold is the fixed cut below which candidate indicators are
// discarded, never stored.
const retentionThreshold = 0.5

// TLDs disproportionately used for throwaway malicious infrastructure.
var abuseProneTLDs = []string{".tk", ".ml", ".ga"}

// Confidence scores an indicator value in [0,1] with type-specific rules.
func Confidence(typ IOCType, value string) float64 {
	switch typ {
	case IOCTypeHashMD5, IOCTypeHashSHA1, IOCTypeHashSHA256:
		// Hex of the right length is almost never an accidental token.
		return 0.95
	case IOCTypeCVE:
		return 0.90
	case IOCTypeIP:
		if isPrivateIP(value) {
			return 0.30
		}
		return 0.80
	case IOCTypeDomain:
		for _, tld := range abuseProneTLDs {
			if strings.HasSuffix(value, tld) {
				return 0.90
			}
		}
		return 0.70
	default:
		return 0.70
	}
}

// isPrivateIP reports whether a dotted-quad string falls in the RFC 1918 or
// loopback ranges. Strings that do not parse as four numeric octets are
// treated as not private and keep the public-IP score; malformed IP-shaped
// values are accepted at face value rather than validated here.
func isPrivateIP(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}

	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	second, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}

	switch {
	case first == 10:
		return true
	case first == 172 && second >= 16 && second <= 31:
		return true
	case first == 192 && second == 168:
		return true
	case first == 127:
		return true
	}
	return false
}

// ThreatTypeFor maps an indicator type to its threat category.
func ThreatTypeFor(typ IOCType) ThreatType {
	switch typ {
	case IOCTypeHashMD5, IOCTypeHashSHA1, IOCTypeHashSHA256:
		return ThreatTypeMalware
	case IOCTypeIP, IOCTypeDomain, IOCTypeURL:
		return ThreatTypeNetwork
	case IOCTypeEmail:
		return ThreatTypePhishing
	case IOCTypeCVE:
		return ThreatTypeVulnerability
	default:
		return ThreatTypeUnknown
	}
}
