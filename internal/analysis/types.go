// Package analysis implements the rule-based threat-correlation core:
// IOC extraction, confidence scoring, campaign attribution, and
// threat-level assessment over normalized free-text artifacts.
package analysis

import (
	"context"
	"time"
)

// IOCType identifies the kind of indicator extracted from text.
type IOCType string

const (
	IOCTypeIP         IOCType = "ip"
	IOCTypeDomain     IOCType = "domain"
	IOCTypeEmail      IOCType = "email"
	IOCTypeHashMD5    IOCType = "hash_md5"
	IOCTypeHashSHA1   IOCType = "hash_sha1"
	IOCTypeHashSHA256 IOCType = "hash_sha256"
	IOCTypeURL        IOCType = "url"
	IOCTypeCVE        IOCType = "cve"
)

// ThreatType categorizes what an indicator points at.
type ThreatType string

const (
	ThreatTypeMalware       ThreatType = "malware"
	ThreatTypeNetwork       ThreatType = "network"
	ThreatTypePhishing      ThreatType = "phishing"
	ThreatTypeVulnerability ThreatType = "vulnerability"
	ThreatTypeUnknown       ThreatType = "unknown"
)

// ThreatLevel is the discrete severity classification of one analysis.
type ThreatLevel string

const (
	ThreatLevelInfo     ThreatLevel = "info"
	ThreatLevelLow      ThreatLevel = "low"
	ThreatLevelMedium   ThreatLevel = "medium"
	ThreatLevelHigh     ThreatLevel = "high"
	ThreatLevelCritical ThreatLevel = "critical"
)

// Classification is the collaborator's verdict on the raw text.
type Classification string

const (
	ClassificationBenign     Classification = "benign"
	ClassificationSuspicious Classification = "suspicious"
	ClassificationMalicious  Classification = "malicious"
	ClassificationUnknown    Classification = "unknown"
)

// SentimentNeutral is the default sentiment when the collaborator
// is unavailable or returns nothing usable.
const SentimentNeutral = "neutral"

// ExtractedEntity is a named entity reported by the inference collaborator.
type ExtractedEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// IOC is an indicator of compromise extracted from analyzed text.
// Identity is (Type, Value); timestamps are merged at storage time.
type IOC struct {
	Type       IOCType    `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	ThreatType ThreatType `json:"threat_type"`
	FirstSeen  time.Time  `json:"first_seen"`
	LastSeen   time.Time  `json:"last_seen"`
}

// Result is the per-job analysis verdict returned to the caller and
// persisted under the job ID.
type Result struct {
	ThreatLevel      ThreatLevel       `json:"threat_level"`
	Entities         []ExtractedEntity `json:"entities"`
	Sentiment        string            `json:"sentiment"`
	Classification   Classification    `json:"classification"`
	IOCs             []IOC             `json:"iocs"`
	RelatedCampaigns []string          `json:"related_campaigns"`

	// Persisted is false when the analysis succeeded but the correlation
	// store could not be written. Callers still get the full verdict.
	Persisted bool `json:"persisted"`
}

// Request is one analysis job handed to the engine.
type Request struct {
	JobID     string    `json:"job_id"`
	JobType   string    `json:"job_type"`
	Target    string    `json:"target"`
	Results   Results   `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider supplies model output for a text blob. The three calls are
// mutually independent and may run concurrently; any of them failing
// degrades that sub-task to its default, never the whole job.
type Provider interface {
	Entities(ctx context.Context, text string) ([]ExtractedEntity, error)
	Sentiment(ctx context.Context, text string) (string, error)
	Classify(ctx context.Context, text string) (Classification, error)
}

// Store is the write side of the correlation store as the engine sees it.
type Store interface {
	PutResult(ctx context.Context, jobID string, res *Result) error
	UpsertIOC(ctx context.Context, ioc IOC) error
}
