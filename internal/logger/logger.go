package logger

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Options controls the root slog handler.
type Options struct {
	JSON  bool
	Debug bool
}

// Setup installs the default slog logger writing to w.
func Setup(w io.Writer, opts Options) {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if opts.Debug {
		handlerOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = NewTraceHandler(slog.NewJSONHandler(w, handlerOpts))
	} else {
		handler = NewTraceHandler(slog.NewTextHandler(w, handlerOpts))
	}

	slog.SetDefault(slog.New(handler))
}

// TraceHandler adds trace ids and context log fields to every record.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	fields := GetLogFields(ctx)
	if fields.RunID != nil {
		r.AddAttrs(slog.String("run_id", *fields.RunID))
	}
	if fields.TargetFID != nil {
		r.AddAttrs(slog.Uint64("target_fid", *fields.TargetFID))
	}
	if fields.ExecutionID != nil {
		r.AddAttrs(slog.String("execution_id", *fields.ExecutionID))
	}
	if fields.Batch != nil {
		r.AddAttrs(slog.Int("batch", *fields.Batch))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
