/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package tracing holds the span helpers shared by providers and transports.
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the module tracer for a component
func Tracer(component string) trace.Tracer {
	return otel.Tracer("entitysync/" + component)
}

// RecordAnyErrorAndEndSpan marks the span as failed when err is set and ends it
func RecordAnyErrorAndEndSpan(err error, span trace.Span) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
