package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lvonguyen/threatlens/internal/observability"
)

// Default ceiling on how long the collaborator fan-out may take before the
// remaining sub-tasks degrade to their defaults.
const defaultInferenceTimeout = 10 * time.Second

// EngineConfig holds orchestration settings.
type EngineConfig struct {
	InferenceTimeout time.Duration `yaml:"inference_timeout"`
}

// Engine drives one analysis job through its stages:
// received -> normalized -> enriched -> indicators-extracted -> assessed ->
// persisted -> complete. The reference tables it reads are immutable, so a
// single Engine is shared across concurrent requests.
type Engine struct {
	provider Provider
	store    Store
	logger   *zap.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
	config   EngineConfig
}

// NewEngine creates an analysis engine. provider and store may not be nil;
// metrics may be nil (disabled).
func NewEngine(provider Provider, store Store, metrics *observability.Metrics, logger *zap.Logger, cfg EngineConfig) *Engine {
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = defaultInferenceTimeout
	}
	return &Engine{
		provider: provider,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("threatlens-analysis"),
		config:   cfg,
	}
}

// Analyze runs the full pipeline for one job. Collaborator failures degrade
// to defaults and never fail the job; store failures leave Persisted false
// on an otherwise complete result. A non-nil error means the job was
// abandoned (context cancelled) or hit an internal fault, and nothing was
// persisted for it.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "analysis.job",
		trace.WithAttributes(
			attribute.String("job.id", req.JobID),
			attribute.String("job.type", req.JobType),
			attribute.String("job.target", req.Target),
		))
	defer span.End()

	log := e.logger.With(zap.String("job_id", req.JobID))
	log.Info("analysis started",
		zap.String("job_type", req.JobType),
		zap.String("target", req.Target))

	text := req.Results.Normalize()
	log.Debug("stage complete", zap.String("stage", "normalized"), zap.Int("text_len", len(text)))

	entities, sentiment, classification := e.infer(ctx, log, text)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job abandoned")
		return nil, fmt.Errorf("job abandoned during enrichment: %w", err)
	}
	log.Debug("stage complete", zap.String("stage", "enriched"), zap.Int("entities", len(entities)))

	observedAt := time.Now().UTC()
	iocs := ExtractIOCs(text, observedAt)
	log.Debug("stage complete", zap.String("stage", "indicators-extracted"), zap.Int("iocs", len(iocs)))

	level := AssessThreatLevel(text, entities, iocs)
	campaigns := MatchCampaigns(text, entities)
	log.Debug("stage complete", zap.String("stage", "assessed"), zap.String("threat_level", string(level)))

	result := &Result{
		ThreatLevel:      level,
		Entities:         entities,
		Sentiment:        sentiment,
		Classification:   classification,
		IOCs:             iocs,
		RelatedCampaigns: campaigns,
	}
	if result.Entities == nil {
		result.Entities = []ExtractedEntity{}
	}
	if result.IOCs == nil {
		result.IOCs = []IOC{}
	}
	if result.RelatedCampaigns == nil {
		result.RelatedCampaigns = []string{}
	}

	if e.metrics != nil {
		for _, ioc := range iocs {
			e.metrics.IOCsExtracted.WithLabelValues(string(ioc.Type)).Inc()
		}
		for _, campaign := range campaigns {
			e.metrics.CampaignMatches.WithLabelValues(campaign).Inc()
		}
	}

	// Abandoned jobs must never be partially persisted.
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job abandoned")
		return nil, fmt.Errorf("job abandoned before persistence: %w", err)
	}

	if err := e.persist(ctx, req.JobID, result); err != nil {
		span.RecordError(err)
		log.Warn("correlation store unavailable, result not persisted", zap.Error(err))
	} else {
		result.Persisted = true
	}

	span.SetAttributes(
		attribute.String("threat.level", string(level)),
		attribute.Int("ioc.count", len(result.IOCs)),
		attribute.Int("campaign.count", len(result.RelatedCampaigns)),
		attribute.Bool("persisted", result.Persisted),
	)

	if e.metrics != nil {
		e.metrics.AnalysesTotal.WithLabelValues(string(level)).Inc()
		e.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	}
	log.Info("analysis complete",
		zap.String("threat_level", string(level)),
		zap.Int("iocs", len(result.IOCs)),
		zap.Int("campaigns", len(result.RelatedCampaigns)),
		zap.Bool("persisted", result.Persisted),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// infer fans the three collaborator calls out concurrently and joins them
// before the stages that consume entity output. Each sub-task substitutes
// its safe default on error or timeout.
func (e *Engine) infer(ctx context.Context, log *zap.Logger, text string) ([]ExtractedEntity, string, Classification) {
	entities := []ExtractedEntity{}
	sentiment := SentimentNeutral
	classification := ClassificationUnknown

	if text == "" {
		return entities, sentiment, classification
	}

	inferCtx, cancel := context.WithTimeout(ctx, e.config.InferenceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		got, err := timed(e.metrics, "entities", func() ([]ExtractedEntity, error) {
			return e.provider.Entities(inferCtx, text)
		})
		if err != nil {
			e.degrade(log, "entities", err)
			return
		}
		if got != nil {
			entities = got
		}
	}()

	go func() {
		defer wg.Done()
		got, err := timed(e.metrics, "sentiment", func() (string, error) {
			return e.provider.Sentiment(inferCtx, text)
		})
		if err != nil {
			e.degrade(log, "sentiment", err)
			return
		}
		if got != "" {
			sentiment = got
		}
	}()

	go func() {
		defer wg.Done()
		got, err := timed(e.metrics, "classification", func() (Classification, error) {
			return e.provider.Classify(inferCtx, text)
		})
		if err != nil {
			e.degrade(log, "classification", err)
			return
		}
		if got != "" {
			classification = got
		}
	}()

	wg.Wait()
	return entities, sentiment, classification
}

// timed wraps one collaborator call with a duration observation.
func timed[T any](m *observability.Metrics, task string, call func() (T, error)) (T, error) {
	start := time.Now()
	got, err := call()
	if m != nil {
		m.InferenceDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	}
	return got, err
}

func (e *Engine) degrade(log *zap.Logger, task string, err error) {
	log.Warn("collaborator sub-task failed, using default",
		zap.String("task", task),
		zap.Error(err))
	if e.metrics != nil {
		e.metrics.InferenceFailures.WithLabelValues(task).Inc()
	}
}

// persist writes the job result and upserts every retained indicator.
func (e *Engine) persist(ctx context.Context, jobID string, result *Result) error {
	if err := e.store.PutResult(ctx, jobID, result); err != nil {
		if e.metrics != nil {
			e.metrics.StoreFailures.WithLabelValues("put_result").Inc()
		}
		return fmt.Errorf("storing result: %w", err)
	}

	for _, ioc := range result.IOCs {
		if err := e.store.UpsertIOC(ctx, ioc); err != nil {
			if e.metrics != nil {
				e.metrics.StoreFailures.WithLabelValues("upsert_ioc").Inc()
			}
			return fmt.Errorf("upserting indicator %s: %w", ioc.Value, err)
		}
	}
	return nil
}
