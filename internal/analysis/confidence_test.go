package analysis

import "testing"

func TestConfidence_Hashes(t *testing.T) {
	values := map[IOCType]string{
		IOCTypeHashMD5:    "d41d8cd98f00b204e9800998ecf8427e",
		IOCTypeHashSHA1:   "da39a3ee5e6b4b0d3255bfef95601890afd80709",
		IOCTypeHashSHA256: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	}

	for typ, value := range values {
		if got := Confidence(typ, value); got != 0.95 {
			t.Errorf("Confidence(%s) = %v, want 0.95", typ, got)
		}
	}
}

func TestConfidence_IP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want float64
	}{
		{"public", "8.8.8.8", 0.80},
		{"public high octet", "203.0.113.77", 0.80},
		{"private 10/8", "10.0.0.1", 0.30},
		{"private 172.16/12 lower bound", "172.16.0.1", 0.30},
		{"private 172.16/12 upper bound", "172.31.255.255", 0.30},
		{"172 outside private range", "172.32.0.1", 0.80},
		{"172 below private range", "172.15.0.1", 0.80},
		{"private 192.168/16", "192.168.1.1", 0.30},
		{"192 outside private range", "192.169.1.1", 0.80},
		{"loopback", "127.0.0.1", 0.30},
		// Malformed IP-shaped strings are accepted at face value and
		// treated as not private.
		{"too few octets", "10.0.0", 0.80},
		{"non-numeric octet", "10.x.0.1", 0.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(IOCTypeIP, tt.ip); got != tt.want {
				t.Errorf("Confidence(ip, %q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestConfidence_DomainAndBaseline(t *testing.T) {
	tests := []struct {
		typ   IOCType
		value string
		want  float64
	}{
		{IOCTypeCVE, "CVE-2023-1234", 0.90},
		{IOCTypeDomain, "example.com", 0.70},
		{IOCTypeDomain, "evil.tk", 0.90},
		{IOCTypeDomain, "free-stuff.ml", 0.90},
		{IOCTypeDomain, "phish.ga", 0.90},
		{IOCTypeEmail, "attacker@example.com", 0.70},
		{IOCTypeURL, "http://example.com/payload", 0.70},
	}

	for _, tt := range tests {
		if got := Confidence(tt.typ, tt.value); got != tt.want {
			t.Errorf("Confidence(%s, %q) = %v, want %v", tt.typ, tt.value, got, tt.want)
		}
	}
}

func TestThreatTypeFor(t *testing.T) {
	tests := []struct {
		typ  IOCType
		want ThreatType
	}{
		{IOCTypeHashMD5, ThreatTypeMalware},
		{IOCTypeHashSHA1, ThreatTypeMalware},
		{IOCTypeHashSHA256, ThreatTypeMalware},
		{IOCTypeIP, ThreatTypeNetwork},
		{IOCTypeDomain, ThreatTypeNetwork},
		{IOCTypeURL, ThreatTypeNetwork},
		{IOCTypeEmail, ThreatTypePhishing},
		{IOCTypeCVE, ThreatTypeVulnerability},
		{IOCType("registry_key"), ThreatTypeUnknown},
	}

	for _, tt := range tests {
		if got := ThreatTypeFor(tt.typ); got != tt.want {
			t.Errorf("ThreatTypeFor(%s) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}
