package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.BuildID != "" {
		logger = logger.With().Str("build_id", tc.BuildID).Logger()
	}
	if tc.ArtifactID != "" {
		logger = logger.With().Str("artifact_id", tc.ArtifactID).Logger()
	}
	if tc.OperationID != "" {
		logger = logger.With().Str("operation_id", tc.OperationID).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext merges tracing information from source context into target context.
// Values already present in target win.
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)

	if tc.TraceID != "" && GetTraceID(target) == "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if tc.BuildID != "" && GetBuildID(target) == "" {
		target = WithBuildID(target, tc.BuildID)
	}
	if tc.ArtifactID != "" && GetArtifactID(target) == "" {
		target = WithArtifactID(target, tc.ArtifactID)
	}
	if tc.OperationID != "" && GetOperationID(target) == "" {
		target = WithOperationID(target, tc.OperationID)
	}

	return target
}

// CloneContext creates a new context with the same tracing information
func CloneContext(ctx context.Context) context.Context {
	tc := FromContext(ctx)
	return NewContext(context.Background(), tc)
}
