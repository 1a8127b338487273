package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// BuildIDKey is the context key for the build run ID
	BuildIDKey ContextKey = "build_id"
	// ArtifactIDKey is the context key for the artifact being built
	ArtifactIDKey ContextKey = "artifact_id"
	// OperationIDKey is the context key for the coordinated operation ID
	OperationIDKey ContextKey = "operation_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID     string
	BuildID     string
	ArtifactID  string
	OperationID string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewBuildID generates a new build run ID
func NewBuildID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithBuildID adds a build run ID to the context
func WithBuildID(ctx context.Context, buildID string) context.Context {
	return context.WithValue(ctx, BuildIDKey, buildID)
}

// WithArtifactID adds an artifact ID to the context
func WithArtifactID(ctx context.Context, artifactID string) context.Context {
	return context.WithValue(ctx, ArtifactIDKey, artifactID)
}

// WithOperationID adds an operation ID to the context
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, OperationIDKey, operationID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetBuildID retrieves the build run ID from the context
func GetBuildID(ctx context.Context) string {
	if buildID, ok := ctx.Value(BuildIDKey).(string); ok {
		return buildID
	}
	return ""
}

// GetArtifactID retrieves the artifact ID from the context
func GetArtifactID(ctx context.Context) string {
	if artifactID, ok := ctx.Value(ArtifactIDKey).(string); ok {
		return artifactID
	}
	return ""
}

// GetOperationID retrieves the operation ID from the context
func GetOperationID(ctx context.Context) string {
	if operationID, ok := ctx.Value(OperationIDKey).(string); ok {
		return operationID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		BuildID:     GetBuildID(ctx),
		ArtifactID:  GetArtifactID(ctx),
		OperationID: GetOperationID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.BuildID != "" {
		ctx = WithBuildID(ctx, tc.BuildID)
	}
	if tc.ArtifactID != "" {
		ctx = WithArtifactID(ctx, tc.ArtifactID)
	}
	if tc.OperationID != "" {
		ctx = WithOperationID(ctx, tc.OperationID)
	}
	return ctx
}

// NewBuildContext creates a context for a build run over one artifact,
// generating a fresh trace ID and build ID.
func NewBuildContext(ctx context.Context, artifactID string) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	ctx = WithBuildID(ctx, NewBuildID())
	return WithArtifactID(ctx, artifactID)
}
