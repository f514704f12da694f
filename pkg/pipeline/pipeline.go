package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/providers"
	"mercator-hq/veil/pkg/telemetry/logging"
	"mercator-hq/veil/pkg/telemetry/metrics"
	"mercator-hq/veil/pkg/telemetry/tracing"
	"mercator-hq/veil/pkg/tokenize"
)

const (
	DefaultProviderTimeout = 60 * time.Second
	DefaultDetectTimeout   = 10 * time.Second
)

// Recorder receives one evidence record per processed request.
type Recorder interface {
	Record(ctx context.Context, record *evidence.Record) error
}

// Options wires a Pipeline. Detector, Store and Provider are required.
type Options struct {
	Detector detector.Detector

	// Backend labels detector metrics and spans.
	Backend string

	// Entities restricts detection. Empty means every supported type.
	Entities []string

	Store    tokenize.Store
	Provider providers.Provider

	// Tokenizer defaults to one over Store with the default policy.
	Tokenizer *tokenize.Tokenizer

	// Model is used when a request names none. Empty defers to the
	// provider's configured model.
	Model string

	ProviderTimeout time.Duration
	DetectTimeout   time.Duration

	// Optional hooks; nil disables each.
	Metrics  *metrics.Collector
	Tracer   *tracing.Tracer
	Recorder Recorder
}

// Request is one prompt to process.
type Request struct {
	Prompt    string
	SessionID string
	Model     string

	// RequestID and UserID are carried into the audit record only.
	RequestID string
	UserID    string
}

// TokenCounts summarises tokenization for one request.
type TokenCounts struct {
	// Placeholders created by this request.
	Placeholders int `json:"placeholders"`
	// Session is the size of the session mapping after the merge.
	Session int `json:"session"`
	// Redacted and Kept count accepted spans by outcome.
	Redacted int `json:"redacted"`
	Kept     int `json:"kept"`
}

// Result is the outcome of a successful Process call. DetectedEntities
// lists the spans actually redacted, ascending by start and carrying their
// original text; kept ages and overlap losers are left out.
type Result struct {
	OriginalPrompt          string
	SanitizedPrompt         string
	RawCompletion           string
	ReconstructedCompletion string
	DetectedEntities        []detector.Span
	TokenCounts             TokenCounts
	SessionID               string
	Model                   string
	Provider                string
	Usage                   providers.TokenUsage
}

// Pipeline runs detection, tokenization, the provider call and
// detokenization for one request. It is safe for concurrent use.
type Pipeline struct {
	detector        detector.Detector
	backend         string
	entities        []string
	store           tokenize.Store
	tokenizer       *tokenize.Tokenizer
	provider        providers.Provider
	model           string
	providerTimeout time.Duration
	detectTimeout   time.Duration
	metrics         *metrics.Collector
	tracer          *tracing.Tracer
	recorder        Recorder
	logger          *slog.Logger
}

// New creates a Pipeline.
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Detector == nil:
		return nil, errors.New("pipeline: detector is required")
	case opts.Store == nil:
		return nil, errors.New("pipeline: session store is required")
	case opts.Provider == nil:
		return nil, errors.New("pipeline: provider is required")
	}

	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenize.New(opts.Store, tokenize.Options{})
	}
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = DefaultProviderTimeout
	}
	if opts.DetectTimeout <= 0 {
		opts.DetectTimeout = DefaultDetectTimeout
	}
	if opts.Backend == "" {
		opts.Backend = "custom"
	}

	return &Pipeline{
		detector:        opts.Detector,
		backend:         opts.Backend,
		entities:        opts.Entities,
		store:           opts.Store,
		tokenizer:       opts.Tokenizer,
		provider:        opts.Provider,
		model:           opts.Model,
		providerTimeout: opts.ProviderTimeout,
		detectTimeout:   opts.DetectTimeout,
		metrics:         opts.Metrics,
		tracer:          opts.Tracer,
		recorder:        opts.Recorder,
		logger:          slog.Default().With("component", "pipeline"),
	}, nil
}

// ProviderName returns the configured provider's name.
func (p *Pipeline) ProviderName() string {
	return p.provider.GetName()
}

// Detect runs the detector alone. Nothing is stored.
func (p *Pipeline) Detect(ctx context.Context, text string) ([]detector.Span, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.detect")
	defer span.End()

	spans, err := p.detect(ctx, text)
	if err != nil {
		tracing.SetFailure(span, string(StageDetection), Category(err))
		return nil, &Failure{Stage: StageDetection, Cause: err}
	}
	tracing.SetEntityAttributes(span, len(spans), 0, 0)
	return spans, nil
}

func (p *Pipeline) detect(ctx context.Context, text string) ([]detector.Span, error) {
	ctx, cancel := context.WithTimeout(ctx, p.detectTimeout)
	defer cancel()

	start := time.Now()
	spans, err := p.detector.Detect(ctx, text, p.entities)
	p.metrics.RecordDetection(p.backend, time.Since(start), err)
	return spans, err
}

// Process sanitizes req.Prompt, sends it to the provider and restores the
// original values in the completion.
//
// The session mapping is merged before the provider is called and is not
// rolled back if the call fails, so a retry in the same session can still
// restore placeholders from earlier turns. Any error is a *Failure.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	model := req.Model
	if model == "" {
		model = p.model
	}
	providerName := p.provider.GetName()

	ctx = logging.WithSession(ctx, evidence.HashSession(sessionID))
	ctx = logging.WithProvider(ctx, providerName)
	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	defer span.End()
	tracing.SetProviderAttributes(span, providerName, model)

	record := evidence.NewRecord(req.RequestID, sessionID, start)
	record.UserID = req.UserID
	record.Provider = providerName
	record.Model = model

	fail := func(stage Stage, cause error) (*Result, error) {
		category := Category(cause)
		tracing.SetFailure(span, string(stage), category)
		p.metrics.RecordRequest(providerName, model, metrics.StatusError, string(stage), time.Since(start))

		record.Status = evidence.StatusError
		record.ErrorStage = string(stage)
		record.ErrorType = category
		p.finish(ctx, record, start)

		p.logger.WarnContext(ctx, "pipeline request failed",
			"request_id", req.RequestID,
			"stage", stage,
			"error_type", category,
		)
		return nil, &Failure{Stage: stage, SessionID: sessionID, Cause: cause}
	}

	if strings.TrimSpace(req.Prompt) == "" {
		return fail(StageDetection, ErrEmptyPrompt)
	}

	// Detection runs without touching the vault.
	detectCtx, detectSpan := p.tracer.Start(ctx, "pipeline.detect")
	detectStart := time.Now()
	spans, err := p.detect(detectCtx, req.Prompt)
	record.DetectLatency = time.Since(detectStart)
	if err != nil {
		tracing.SetFailure(detectSpan, string(StageDetection), Category(err))
		detectSpan.End()
		return fail(StageDetection, err)
	}
	tracing.SetEntityAttributes(detectSpan, len(spans), 0, 0)
	detectSpan.End()

	_, tokSpan := p.tracer.Start(ctx, "pipeline.tokenize")
	tok, err := p.tokenizer.Tokenize(req.Prompt, sessionID, spans)
	if err != nil {
		tracing.SetFailure(tokSpan, string(StageTokenization), Category(err))
		tokSpan.End()
		return fail(StageTokenization, err)
	}
	counts := TokenCounts{
		Placeholders: len(tok.Placeholders),
		Session:      len(tok.Mapping),
		Redacted:     len(tok.Accepted),
		Kept:         len(tok.Kept),
	}
	tracing.SetEntityAttributes(tokSpan, len(spans), counts.Redacted, counts.Kept)
	tracing.SetSessionAttributes(tokSpan, counts.Placeholders, counts.Session)
	tokSpan.End()

	detected := countByType(spans)
	record.EntityCounts = detected
	record.Redacted = counts.Redacted
	record.Kept = counts.Kept
	record.Placeholders = counts.Placeholders
	record.SessionEntries = counts.Session
	p.metrics.RecordEntities(detected, countByType(tok.Accepted), countByType(tok.Kept))

	resp, providerLatency, err := p.complete(ctx, tok.SanitizedText, model)
	record.ProviderLatency = providerLatency
	if err != nil {
		p.metrics.RecordProviderError(providerName, Category(err))
		return fail(StageProvider, err)
	}
	if resp.Model != "" {
		model = resp.Model
		record.Model = model
	}
	record.PromptTokens = resp.Usage.PromptTokens
	record.CompletionTokens = resp.Usage.CompletionTokens
	record.TotalTokens = resp.Usage.TotalTokens
	tracing.SetTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	// Re-read the session: a concurrent request may have added entries the
	// completion refers to. An expired session leaves placeholders as is.
	_, detokSpan := p.tracer.Start(ctx, "pipeline.detokenize")
	mapping, _ := p.store.Get(sessionID)
	restored := tokenize.Detokenize(resp.Content, mapping)
	tracing.SetSessionAttributes(detokSpan, 0, len(mapping))
	detokSpan.End()

	tracing.SetEntityAttributes(span, len(spans), counts.Redacted, counts.Kept)
	tracing.SetStatus(span, "")
	p.metrics.RecordRequest(providerName, model, metrics.StatusSuccess, "", time.Since(start))
	p.finish(ctx, record, start)

	p.logger.InfoContext(ctx, "pipeline request completed",
		"request_id", req.RequestID,
		"model", model,
		"entities_detected", len(spans),
		"entities_redacted", counts.Redacted,
		"entities_kept", counts.Kept,
		"placeholders", counts.Placeholders,
		"provider_latency_ms", providerLatency.Milliseconds(),
		"total_latency_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		OriginalPrompt:          req.Prompt,
		SanitizedPrompt:         tok.SanitizedText,
		RawCompletion:           resp.Content,
		ReconstructedCompletion: restored,
		DetectedEntities:        tok.Accepted,
		TokenCounts:             counts,
		SessionID:               sessionID,
		Model:                   model,
		Provider:                providerName,
		Usage:                   resp.Usage,
	}, nil
}

func (p *Pipeline) complete(ctx context.Context, prompt, model string) (*providers.CompletionResponse, time.Duration, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.provider")
	defer span.End()
	tracing.SetProviderAttributes(span, p.provider.GetName(), model)

	ctx, cancel := context.WithTimeout(ctx, p.providerTimeout)
	defer cancel()

	start := time.Now()
	resp, err := p.provider.SendCompletion(ctx, &providers.CompletionRequest{
		Model:    model,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: prompt}},
		Metadata: map[string]string{"session": logging.GetSession(ctx)},
	})
	latency := time.Since(start)

	if err == nil && (resp == nil || resp.Content == "") {
		err = &providers.EmptyResponseError{Provider: p.provider.GetName(), Reason: "no content"}
	}
	if err != nil {
		tracing.SetFailure(span, string(StageProvider), Category(err))
		return nil, latency, err
	}

	p.metrics.RecordProviderRequest(p.provider.GetName(), model, latency)
	tracing.SetTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, latency, nil
}

func (p *Pipeline) finish(ctx context.Context, record *evidence.Record, start time.Time) {
	if p.recorder == nil {
		return
	}
	record.TotalLatency = time.Since(start)
	if err := p.recorder.Record(ctx, record); err != nil {
		p.logger.WarnContext(ctx, "evidence record dropped", "record_id", record.ID, "error", err)
	}
}

func countByType(spans []detector.Span) map[string]int {
	counts := make(map[string]int, len(spans))
	for _, s := range spans {
		counts[s.Type]++
	}
	return counts
}
