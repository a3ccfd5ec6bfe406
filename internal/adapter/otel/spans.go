package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "langhost"

// StartResolveSpan starts a span for a launch-command resolution.
func StartResolveSpan(ctx context.Context, serverID, worktreeID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "resolve",
		trace.WithAttributes(
			attribute.String("server.id", serverID),
			attribute.String("worktree.id", worktreeID),
		),
	)
}

// StartServerSpan starts a span for a language-server lifecycle operation.
func StartServerSpan(ctx context.Context, op, serverID, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, op,
		trace.WithAttributes(
			attribute.String("server.id", serverID),
			attribute.String("session.id", sessionID),
		),
	)
}
