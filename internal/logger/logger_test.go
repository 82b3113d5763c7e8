package logger

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestNew(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		if l := New("production"); l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})

	t.Run("development", func(t *testing.T) {
		if l := New("development"); l == nil {
			t.Fatal("expected logger to be non-nil")
		}
	})
}

type mockSpan struct {
	trace.Span
	sc trace.SpanContext
}

func (s mockSpan) SpanContext() trace.SpanContext {
	return s.sc
}

func TestWithTraceContext(t *testing.T) {
	t.Run("valid span", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
		spanID, _ := trace.SpanIDFromHex("0102030405060708")
		sc := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: traceID,
			SpanID:  spanID,
		})
		ctx := trace.ContextWithSpan(context.Background(), mockSpan{sc: sc})

		attr := WithTraceContext(ctx)
		if attr.Key != "trace" {
			t.Errorf("expected key 'trace', got %s", attr.Key)
		}
		if len(attr.Value.Group()) != 2 {
			t.Errorf("expected 2 attributes in group, got %d", len(attr.Value.Group()))
		}
	})

	t.Run("invalid span", func(t *testing.T) {
		attr := WithTraceContext(context.Background())
		if !attr.Equal(slog.Attr{}) {
			t.Errorf("expected empty attribute for invalid span, got %+v", attr)
		}
	})
}
