package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("stt/business")

	// Transcription metrics
	TranscriptionsTotal metric.Int64Counter
	EngineCallDuration  metric.Float64Histogram

	// Fallback metrics
	EngineFallbackTotal metric.Int64Counter
)

func Init() error {
	var err error

	TranscriptionsTotal, err = meter.Int64Counter(
		"transcription.requests.total",
		metric.WithDescription("Total number of engine transcription calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	EngineCallDuration, err = meter.Float64Histogram(
		"transcription.engine.duration",
		metric.WithDescription("Duration of individual engine calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	EngineFallbackTotal, err = meter.Int64Counter(
		"transcription.fallback.total",
		metric.WithDescription("Number of requests served by the fallback engine"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
