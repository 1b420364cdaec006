package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields added to every log record emitted with
// a context that carries them.
type LogFields struct {
	RunID       *string // Per-run uuid
	TargetFID   *uint64 // Account whose follows are being cleaned
	ExecutionID *string // Analytics execution handle
	Batch       *int    // Batch index within the run
	Component   string  // e.g. "cleaner.query_runner"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, newer non-nil/non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.TargetFID != nil {
		result.TargetFID = new.TargetFID
	}
	if new.ExecutionID != nil {
		result.ExecutionID = new.ExecutionID
	}
	if new.Batch != nil {
		result.Batch = new.Batch
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates s to maxLen bytes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
