// Package store persists analysis results and indicator metadata in Redis
// and serves cross-request indicator lookups for correlation.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/threatlens/internal/analysis"
)

// Key layout, shared with the rest of the collection pipeline:
//
//	analysis:results        hash  job_id -> result JSON
//	ioc:<type>              set   indicator values
//	ioc:details:<value>     hash  first_seen, last_seen, confidence, threat_type
const (
	resultsKey       = "analysis:results"
	iocSetPrefix     = "ioc:"
	iocDetailsPrefix = "ioc:details:"
)

// upsertRetries bounds optimistic-transaction retries under write contention.
const upsertRetries = 3

// ErrUnavailable wraps any store-side failure so callers can treat
// persistence loss as a recoverable, signalled condition.
var ErrUnavailable = errors.New("correlation store unavailable")

// IOCMetadata is the per-indicator record kept across analyses.
type IOCMetadata struct {
	FirstSeen  time.Time           `json:"first_seen"`
	LastSeen   time.Time           `json:"last_seen"`
	Confidence float64             `json:"confidence"`
	ThreatType analysis.ThreatType `json:"threat_type"`
}

// Redis is the correlation store adapter. Safe for concurrent use.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// New creates a store adapter over the given Redis address.
func New(addr, password string, db, poolSize int, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})

	return &Redis{
		client: client,
		logger: logger,
	}
}

// Client exposes the underlying connection for collaborators that share the
// store, such as the ingress rate limiter.
func (s *Redis) Client() *redis.Client {
	return s.client
}

// Ping tests the connection.
func (s *Redis) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Redis) Close() error {
	return s.client.Close()
}

// PutResult stores the full analysis result keyed by job ID. Re-running the
// same job overwrites the previous result.
func (s *Redis) PutResult(ctx context.Context, jobID string, res *analysis.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result for job %s: %w", jobID, err)
	}

	if err := s.client.HSet(ctx, resultsKey, jobID, data).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetResult fetches a stored analysis result. Returns (nil, nil) when the
// job has no stored result.
func (s *Redis) GetResult(ctx context.Context, jobID string) (*analysis.Result, error) {
	data, err := s.client.HGet(ctx, resultsKey, jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var res analysis.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("unmarshaling result for job %s: %w", jobID, err)
	}
	return &res, nil
}

// UpsertIOC adds the indicator value to its type set and merges per-value
// metadata: first_seen keeps the minimum, last_seen the maximum, confidence
// and threat_type take the latest observation. The read-modify-write runs
// inside a WATCH transaction so concurrent writers cannot lose a merge.
func (s *Redis) UpsertIOC(ctx context.Context, ioc analysis.IOC) error {
	detailsKey := iocDetailsPrefix + ioc.Value

	merge := func(tx *redis.Tx) error {
		existing, err := tx.HGetAll(ctx, detailsKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		firstSeen := ioc.FirstSeen
		if prev, ok := parseStoredTime(existing["first_seen"]); ok && prev.Before(firstSeen) {
			firstSeen = prev
		}
		lastSeen := ioc.LastSeen
		if prev, ok := parseStoredTime(existing["last_seen"]); ok && prev.After(lastSeen) {
			lastSeen = prev
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, iocSetPrefix+string(ioc.Type), ioc.Value)
			pipe.HSet(ctx, detailsKey, map[string]any{
				"first_seen":  firstSeen.Format(time.RFC3339Nano),
				"last_seen":   lastSeen.Format(time.RFC3339Nano),
				"confidence":  strconv.FormatFloat(ioc.Confidence, 'f', -1, 64),
				"threat_type": string(ioc.ThreatType),
			})
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < upsertRetries; i++ {
		err = s.client.Watch(ctx, merge, detailsKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// ListIOCsByType returns every stored indicator value of the given type.
func (s *Redis) ListIOCsByType(ctx context.Context, typ analysis.IOCType) ([]string, error) {
	values, err := s.client.SMembers(ctx, iocSetPrefix+string(typ)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return values, nil
}

// GetIOCDetails fetches stored metadata for an indicator value.
// Returns (nil, nil) when the value has never been stored.
func (s *Redis) GetIOCDetails(ctx context.Context, value string) (*IOCMetadata, error) {
	fields, err := s.client.HGetAll(ctx, iocDetailsPrefix+value).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	meta := &IOCMetadata{
		ThreatType: analysis.ThreatType(fields["threat_type"]),
	}
	if t, ok := parseStoredTime(fields["first_seen"]); ok {
		meta.FirstSeen = t
	}
	if t, ok := parseStoredTime(fields["last_seen"]); ok {
		meta.LastSeen = t
	}
	if c, err := strconv.ParseFloat(fields["confidence"], 64); err == nil {
		meta.Confidence = c
	}
	return meta, nil
}

func parseStoredTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
