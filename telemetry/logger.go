package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(service string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for lifecycle operations

func (l *Logger) LogApprovalDecision(ctx context.Context, projectID string, auto bool, selected, excluded int) {
	l.WithContext(ctx).Info().
		Str("project_id", projectID).
		Bool("auto_approved", auto).
		Int("selected", selected).
		Int("excluded", excluded).
		Str("operation", "submit_approval").
		Msg("approval request submitted")
}

func (l *Logger) LogScanStarted(ctx context.Context, projectID, jobID string) {
	l.WithContext(ctx).Info().
		Str("project_id", projectID).
		Str("scan_job_id", jobID).
		Str("operation", "scan_start").
		Msg("scan job started")
}

func (l *Logger) LogScanCompleted(ctx context.Context, projectID, jobID string, found, added int) {
	l.WithContext(ctx).Info().
		Str("project_id", projectID).
		Str("scan_job_id", jobID).
		Int("total_found", found).
		Int("new_found", added).
		Str("operation", "scan_complete").
		Msg("scan job completed")
}

func (l *Logger) LogHistoryAppendFailed(ctx context.Context, projectID string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("project_id", projectID).
		Str("operation", "history_append").
		Msg("audit event append failed, state change kept")
}

func (l *Logger) LogStorageError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("storage operation failed")
}
