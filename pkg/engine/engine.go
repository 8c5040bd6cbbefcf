package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/verdant-dev/verdant/pkg/telemetry"
)

// Engine orchestrates provider initialization: environment filtering,
// dependency resolution, status cache lookups, preInit scripts and plugin
// Init hooks.
type Engine struct {
	registry PluginRegistry
	cache    StatusCache
	metrics  *telemetry.Metrics
	tracer   *telemetry.Tracer
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// New creates an engine. The cache may be nil, in which case every provider
// initializes on every run.
func New(registry PluginRegistry, cache StatusCache, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		cache:    cache,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve filters the project's providers for the environment and resolves
// the dependency graph. It is the shared front half of Init, also used by
// the validate, list and graph commands.
func (e *Engine) Resolve(project *Project, environment string) (*ProviderGraph, *FilterResult, error) {
	filter := FilterForEnvironment(project.Providers, environment)

	graph, err := NewGraphBuilder().Resolve(filter.Active, e.registry)
	if err != nil {
		return nil, nil, err
	}

	if e.metrics != nil {
		e.metrics.SetGraphStats(len(graph.Levels), len(filter.Active))
	}

	return graph, filter, nil
}

// Init initializes the project's providers for the given environment,
// in dependency order, consulting the status cache unless a refresh is
// forced.
func (e *Engine) Init(ctx context.Context, project *Project, opts InitOptions) (*InitSummary, error) {
	startedAt := time.Now()

	graph, filter, err := e.Resolve(project, opts.Environment)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.logger.With().
		Str("run_id", runID).
		Str("project", project.Name).
		Str("environment", opts.Environment).
		Logger()

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.StartRunSpan(ctx, runID, opts.Environment)
		defer span.End()
	}

	summary := &InitSummary{
		RunID:       runID,
		Environment: opts.Environment,
		Results:     make([]InitResult, 0, len(graph.Order)),
		Disabled:    filter.Inactive,
		StartedAt:   startedAt,
	}

	if opts.ForceRefresh && e.cache != nil {
		if err := e.cache.Invalidate(ctx, project.Name, opts.Environment); err != nil {
			return nil, NewConflictError("failed to invalidate status cache", err)
		}
		if e.metrics != nil {
			for _, name := range graph.Order {
				e.metrics.RecordCacheRefresh(name)
			}
		}
		logger.Info().Msg("Status cache invalidated (force refresh)")
	}

	byName := make(map[string]*ProviderEntry, len(filter.Active))
	for i := range filter.Active {
		byName[filter.Active[i].Name] = &filter.Active[i]
	}

	states := make(map[string]ProviderState, len(graph.Order))
	outputs := make(map[string]map[string]interface{}, len(graph.Order))

	for _, name := range graph.Order {
		result := e.initProvider(ctx, project, opts, byName[name], graph.Dependencies[name], states, outputs, logger)
		states[name] = result.State
		if result.Outputs != nil {
			outputs[name] = result.Outputs
		}
		if e.metrics != nil {
			e.metrics.RecordProviderInit(name, string(result.State), result.Duration)
		}
		summary.Results = append(summary.Results, result)
	}

	summary.Duration = time.Since(startedAt)
	logger.Info().
		Int("providers", len(summary.Results)).
		Bool("failed", summary.Failed()).
		Dur("duration", summary.Duration).
		Msg("Provider initialization run completed")

	return summary, nil
}

// initProvider initializes a single provider and returns its result.
func (e *Engine) initProvider(
	ctx context.Context,
	project *Project,
	opts InitOptions,
	entry *ProviderEntry,
	deps []string,
	states map[string]ProviderState,
	outputs map[string]map[string]interface{},
	logger zerolog.Logger,
) InitResult {
	started := time.Now()
	name := entry.Name

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.StartProviderSpan(ctx, name, "init")
		defer span.End()
	}

	// A failed or skipped dependency skips the dependent.
	for _, dep := range deps {
		if states[dep] == ProviderStateFailed || states[dep] == ProviderStateSkipped {
			logger.Warn().Str("provider", name).Str("dependency", dep).
				Msg("Skipping provider, dependency did not initialize")
			return InitResult{
				Provider: name,
				State:    ProviderStateSkipped,
				Error: NewPermanentError(fmt.Sprintf("dependency %s did not initialize", dep), nil).
					WithCode(ErrCodeDependencyFailed).WithProvider(name).Error(),
				Duration: time.Since(started),
			}
		}
	}

	plugin, err := e.registry.Get(name)
	if err != nil {
		return e.failResult(name, started, NewPermanentError("unknown plugin", err).
			WithCode(ErrCodeNotFound).WithProvider(name))
	}

	decoded, err := plugin.DecodeConfig(entry.Config)
	if err != nil {
		return e.failResult(name, started, NewPermanentError("invalid provider configuration", err).
			WithCode(ErrCodeValidation).WithProvider(name))
	}

	configHash := HashConfig(decoded, entry.PreInit)

	if e.cache != nil {
		cached, err := e.cache.Get(ctx, project.Name, opts.Environment, name, configHash)
		if err != nil {
			return e.failResult(name, started, NewConflictError("status cache read failed", err).
				WithProvider(name))
		}
		if cached != nil && cached.Ready {
			if e.metrics != nil {
				e.metrics.RecordCacheHit(name)
			}
			logger.Debug().Str("provider", name).Time("cached_at", cached.CachedAt).
				Msg("Provider status served from cache")
			return InitResult{
				Provider: name,
				State:    ProviderStateReady,
				Cached:   true,
				Outputs:  cached.Outputs,
				Duration: time.Since(started),
			}
		}
		if e.metrics != nil {
			e.metrics.RecordCacheMiss(name)
		}
	}

	// preInit runs once per provider, from the project root.
	preInitStart := time.Now()
	logPath := ""
	if entry.PreInit != nil && entry.PreInit.RunScript != "" {
		logPath = filepath.Join(project.Root, ".verdant", "logs", name+".init.log")
	}
	script, err := RunPreInit(ctx, entry.PreInit, project.Root, logPath)
	if e.metrics != nil && logPath != "" {
		result := "ok"
		if err != nil || script.ExitCode != 0 {
			result = "failed"
		}
		e.metrics.RecordPreInit(name, result, time.Since(preInitStart))
	}
	if err != nil {
		return e.failResult(name, started, err)
	}
	if script.ExitCode != 0 {
		return e.failResult(name, started, NewPermanentError(
			fmt.Sprintf("preInit script exited with code %d", script.ExitCode), nil).
			WithCode(ErrCodePreInitFailed).WithProvider(name).WithOperation("preInit"))
	}

	depOutputs := make(map[string]map[string]interface{}, len(deps))
	for _, dep := range deps {
		if out, ok := outputs[dep]; ok {
			depOutputs[dep] = out
		}
	}

	resp, err := plugin.Init(ctx, InitRequest{
		Project:           project.Name,
		Environment:       opts.Environment,
		Root:              project.Root,
		Config:            decoded,
		DependencyOutputs: depOutputs,
		Logger:            logger.With().Str("provider", name).Logger(),
		Metrics:           e.metrics,
	})
	if err != nil {
		return e.failResult(name, started, NewPermanentError("provider initialization failed", err).
			WithCode(ErrCodeProviderFailed).WithProvider(name).WithOperation("init"))
	}

	for _, warning := range resp.Warnings {
		logger.Warn().Str("provider", name).Msg(warning)
	}

	status := &ProviderStatus{
		Provider:    name,
		Environment: opts.Environment,
		ConfigHash:  configHash,
		Ready:       true,
		Outputs:     resp.Outputs,
		Log:         script.Output,
		CachedAt:    time.Now(),
	}
	if e.cache != nil {
		if err := e.cache.Put(ctx, project.Name, status); err != nil {
			logger.Warn().Err(err).Str("provider", name).Msg("Failed to persist provider status")
		}
	}

	logger.Info().Str("provider", name).Dur("duration", time.Since(started)).
		Msg("Provider initialized")

	return InitResult{
		Provider: name,
		State:    ProviderStateReady,
		Outputs:  resp.Outputs,
		Duration: time.Since(started),
	}
}

// failResult builds a failed InitResult and logs the error.
func (e *Engine) failResult(name string, started time.Time, err error) InitResult {
	e.logger.Error().Err(err).Str("provider", name).Msg("Provider initialization failed")
	return InitResult{
		Provider: name,
		State:    ProviderStateFailed,
		Error:    err.Error(),
		Duration: time.Since(started),
	}
}

// HashConfig computes the hash that keys a provider's cached status. The
// hash covers the decoded plugin configuration and the preInit spec, so any
// config change invalidates the cached status implicitly.
func HashConfig(config interface{}, preInit *PreInitSpec) string {
	payload := struct {
		Config  interface{}  `json:"config"`
		PreInit *PreInitSpec `json:"preInit,omitempty"`
	}{Config: config, PreInit: preInit}

	data, err := json.Marshal(payload)
	if err != nil {
		// Marshal failures only happen for unsupported types; fall back to
		// an always-miss hash rather than aborting the run.
		data = []byte(fmt.Sprintf("%+v", payload))
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
