// Package orchestrator is the core of the service: it decides which
// engines serve a request, runs them with per-engine timeouts and
// isolation, applies the fallback policy, and aggregates heterogeneous
// outcomes into one result. Engine failures are data here, never
// control flow that escapes the request.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/hshukla4/stt-project/internal/engine"
	"github.com/hshukla4/stt-project/internal/errors"
	"github.com/hshukla4/stt-project/internal/language"
	"github.com/hshukla4/stt-project/internal/metrics"
)

var tracer = otel.Tracer("github.com/hshukla4/stt-project/internal/orchestrator")

// Mode selects which engines a request invokes.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeSingle Mode = "single"
	ModeAll    Mode = "all"
)

// ParseMode parses the wire form of a mode: "auto", "all", or
// "single:<engine>". An empty string defaults to auto.
func ParseMode(s string) (Mode, engine.ID, *errors.AppError) {
	switch {
	case s == "" || s == string(ModeAuto):
		return ModeAuto, "", nil
	case s == string(ModeAll):
		return ModeAll, "", nil
	case len(s) > len("single:") && s[:len("single:")] == "single:":
		return ModeSingle, engine.ID(s[len("single:"):]), nil
	default:
		return "", "", errors.NewInvalidInputError(fmt.Sprintf("invalid mode %q: expected auto, all, or single:<engine>", s))
	}
}

// Config holds the engine selection policy for auto mode.
type Config struct {
	Primary         engine.ID
	Fallback        engine.ID
	FallbackEnabled bool
	EngineTimeout   time.Duration
}

// Request describes one transcription to orchestrate. It is immutable
// once constructed; AudioPath points at the request's staged payload.
type Request struct {
	AudioPath string
	Language  string
	Mode      Mode
	Engine    engine.ID // single mode only
}

// Outcome is the captured result of one engine invocation. Exactly one
// of Transcript and Err is set.
type Outcome struct {
	Engine     engine.ID
	Transcript *engine.Transcript
	Err        *errors.AppError
}

// Result aggregates the outcomes of one request. Single and all mode
// fill Outcomes, auto mode fills Outcome plus the fallback metadata.
type Result struct {
	Mode         Mode
	Outcomes     map[engine.ID]Outcome
	Outcome      *Outcome
	EngineUsed   engine.ID
	FallbackUsed bool
	PrimaryErr   *errors.AppError
}

// Orchestrator runs requests against an immutable engine registry.
type Orchestrator struct {
	registry *engine.Registry
	cfg      Config
}

func New(registry *engine.Registry, cfg Config) *Orchestrator {
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = 2 * time.Minute
	}
	return &Orchestrator{
		registry: registry,
		cfg:      cfg,
	}
}

// Resolve validates a request against the registry without doing any
// work. Callers run it before staging the payload so that a request
// that cannot be served never touches the filesystem.
func (o *Orchestrator) Resolve(req Request) *errors.AppError {
	switch req.Mode {
	case ModeSingle:
		if _, ok := o.registry.Get(req.Engine); !ok {
			return errors.NewInvalidInputError(fmt.Sprintf("unknown engine %q", req.Engine))
		}
		if !o.registry.IsAvailable(req.Engine) {
			return errors.NewNotAvailableError(fmt.Sprintf("engine %q is not available", req.Engine))
		}
	case ModeAll:
		if len(o.registry.ListAvailable()) == 0 {
			return errors.NewNotAvailableError("no transcription engines available")
		}
	case ModeAuto:
		if primary, _ := o.resolveAuto(); primary == "" {
			return errors.NewNotAvailableError("no transcription engines available")
		}
	default:
		return errors.NewInvalidInputError(fmt.Sprintf("invalid mode %q", req.Mode))
	}
	return nil
}

// resolveAuto returns the priority-ordered (primary, fallback) pair
// from configuration, filtered to available engines. The fallback is
// empty when fallback is disabled, unconfigured, unavailable, or the
// same engine as the primary.
func (o *Orchestrator) resolveAuto() (engine.ID, engine.ID) {
	var candidates []engine.ID
	for _, id := range []engine.ID{o.cfg.Primary, o.cfg.Fallback} {
		if id != "" && o.registry.IsAvailable(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", ""
	}
	primary := candidates[0]
	if !o.cfg.FallbackEnabled {
		return primary, ""
	}
	for _, id := range candidates[1:] {
		if id != primary {
			return primary, id
		}
	}
	return primary, ""
}

// Transcribe runs the request to completion. The returned error is
// request-level: it is non-nil only when the request as a whole failed
// (no partial success exists for the caller). The Result is returned
// alongside the error when per-engine detail is available.
func (o *Orchestrator) Transcribe(ctx context.Context, req Request) (*Result, *errors.AppError) {
	lang := language.Normalize(req.Language)

	switch req.Mode {
	case ModeSingle:
		return o.runSingle(ctx, req, lang)
	case ModeAll:
		return o.runAll(ctx, req, lang)
	case ModeAuto:
		return o.runAuto(ctx, req, lang)
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("invalid mode %q", req.Mode))
	}
}

func (o *Orchestrator) runSingle(ctx context.Context, req Request, lang string) (*Result, *errors.AppError) {
	if err := o.Resolve(req); err != nil {
		return nil, err
	}

	eng, _ := o.registry.Get(req.Engine)
	outcome := o.invoke(ctx, eng, req.AudioPath, lang)

	result := &Result{
		Mode:       ModeSingle,
		Outcomes:   map[engine.ID]Outcome{req.Engine: outcome},
		EngineUsed: req.Engine,
	}
	if outcome.Err != nil {
		// No silent empty result: a failed single-engine request
		// fails the request.
		return result, outcome.Err
	}
	return result, nil
}

func (o *Orchestrator) runAll(ctx context.Context, req Request, lang string) (*Result, *errors.AppError) {
	if err := o.Resolve(req); err != nil {
		return nil, err
	}

	ids := o.registry.IDs()
	outcomes := make(map[engine.ID]Outcome, len(ids))

	// Unavailable engines still get an entry so the result always
	// covers every configured engine.
	var invoked []engine.Capability
	for _, id := range ids {
		if !o.registry.IsAvailable(id) {
			outcomes[id] = Outcome{
				Engine: id,
				Err:    errors.NewNotAvailableError(fmt.Sprintf("engine %q is not available", id)),
			}
			continue
		}
		eng, _ := o.registry.Get(id)
		invoked = append(invoked, eng)
	}

	// Fan out, wait for every engine. A failure on one engine never
	// cancels the others.
	results := make([]Outcome, len(invoked))
	var wg sync.WaitGroup
	wg.Add(len(invoked))
	for i, eng := range invoked {
		go func(i int, eng engine.Capability) {
			defer wg.Done()
			results[i] = o.invoke(ctx, eng, req.AudioPath, lang)
		}(i, eng)
	}
	wg.Wait()

	anySuccess := false
	for _, out := range results {
		outcomes[out.Engine] = out
		if out.Err == nil {
			anySuccess = true
		}
	}

	result := &Result{
		Mode:     ModeAll,
		Outcomes: outcomes,
	}
	if !anySuccess {
		return result, errors.NewBackendError("all engines failed", nil)
	}
	return result, nil
}

func (o *Orchestrator) runAuto(ctx context.Context, req Request, lang string) (*Result, *errors.AppError) {
	primaryID, fallbackID := o.resolveAuto()
	if primaryID == "" {
		return nil, errors.NewNotAvailableError("no transcription engines available")
	}

	primary, _ := o.registry.Get(primaryID)
	outcome := o.invoke(ctx, primary, req.AudioPath, lang)
	if outcome.Err == nil {
		return &Result{
			Mode:       ModeAuto,
			Outcome:    &outcome,
			EngineUsed: primaryID,
		}, nil
	}

	if fallbackID == "" {
		slog.Info("Primary engine failed, no fallback configured",
			"engine", primaryID,
			"error", outcome.Err.Error())
		return nil, outcome.Err
	}

	slog.Info("Primary engine failed, attempting fallback",
		"primary", primaryID,
		"fallback", fallbackID,
		"primary_error", outcome.Err.Error())

	fallback, _ := o.registry.Get(fallbackID)
	fbOutcome := o.invoke(ctx, fallback, req.AudioPath, lang)
	if fbOutcome.Err != nil {
		slog.Error("Both primary and fallback engines failed",
			"primary", primaryID,
			"fallback", fallbackID,
			"primary_error", outcome.Err.Error(),
			"fallback_error", fbOutcome.Err.Error())
		return nil, errors.NewBackendError(
			fmt.Sprintf("both engines failed. primary (%s): %v; fallback (%s): %v",
				primaryID, outcome.Err, fallbackID, fbOutcome.Err),
			nil,
		)
	}

	if metrics.EngineFallbackTotal != nil {
		metrics.EngineFallbackTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("primary", string(primaryID)),
			attribute.String("fallback", string(fallbackID)),
		))
	}

	return &Result{
		Mode:         ModeAuto,
		Outcome:      &fbOutcome,
		EngineUsed:   fallbackID,
		FallbackUsed: true,
		PrimaryErr:   outcome.Err,
	}, nil
}

// invoke runs one engine call under its own timeout and converts every
// failure mode, including a panicking adapter, into an Outcome.
func (o *Orchestrator) invoke(ctx context.Context, eng engine.Capability, audioPath, lang string) (out Outcome) {
	id := eng.ID()
	out.Engine = id

	ctx, span := tracer.Start(ctx, "engine.transcribe")
	span.SetAttributes(attribute.String("engine", string(id)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Engine panicked", "engine", id, "panic", r)
			out = Outcome{
				Engine: id,
				Err:    errors.NewUnknownError(fmt.Sprintf("engine %s failed unexpectedly: %v", id, r), nil),
			}
			span.SetStatus(codes.Error, out.Err.Message)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.EngineTimeout)
	defer cancel()

	start := time.Now()
	transcript, err := eng.Transcribe(callCtx, audioPath, lang)
	elapsed := time.Since(start)

	status := "success"
	if err != nil {
		appErr := errors.From(err)
		if callCtx.Err() == context.DeadlineExceeded {
			appErr = errors.NewTimeoutError(fmt.Sprintf("engine %s exceeded %s timeout", id, o.cfg.EngineTimeout), err)
		}
		out.Err = appErr
		status = string(appErr.Kind)
		span.SetStatus(codes.Error, appErr.Message)
		slog.Warn("Engine call failed",
			"engine", id,
			"kind", appErr.Kind,
			"duration", elapsed,
			"error", appErr.Error())
	} else {
		out.Transcript = transcript
		slog.Info("Engine call succeeded",
			"engine", id,
			"duration", elapsed,
			"chars", len(transcript.Text))
	}

	if metrics.TranscriptionsTotal != nil {
		metrics.TranscriptionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("engine", string(id)),
			attribute.String("status", status),
		))
	}
	if metrics.EngineCallDuration != nil {
		metrics.EngineCallDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
			attribute.String("engine", string(id)),
		))
	}

	return out
}
