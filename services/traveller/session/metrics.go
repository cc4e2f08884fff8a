// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("traveller.session")
	meter  = otel.Meter("traveller.session")
)

var (
	commandsTotal   metric.Int64Counter
	passageQueries  metric.Int64Counter
	commandDuration metric.Float64Histogram
	liveSessions    metric.Int64UpDownCounter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		commandsTotal, err = meter.Int64Counter(
			"traveller_commands_total",
			metric.WithDescription("Commands executed, by command and code"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		passageQueries, err = meter.Int64Counter(
			"traveller_passage_queries_total",
			metric.WithDescription("Answered passage-safe? queries, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commandDuration, err = meter.Float64Histogram(
			"traveller_command_duration_seconds",
			metric.WithDescription("Duration of command execution"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		liveSessions, err = meter.Int64UpDownCounter(
			"traveller_sessions",
			metric.WithDescription("Live sessions"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordCommand records one executed command. code is empty on success.
func recordCommand(ctx context.Context, name, code string, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	attrs := metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("code", code),
	)
	commandsTotal.Add(ctx, 1, attrs)
	commandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("command", name)))
}

func recordPassage(ctx context.Context, safe bool) {
	if err := initMetrics(); err != nil {
		return
	}
	passageQueries.Add(ctx, 1, metric.WithAttributes(attribute.Bool("safe", safe)))
}

func recordSessions(ctx context.Context, delta int64) {
	if err := initMetrics(); err != nil {
		return
	}
	liveSessions.Add(ctx, delta)
}

// startCommandSpan creates a span for one command.
func startCommandSpan(ctx context.Context, sessionID, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Session.Exec",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("command.name", name),
		),
	)
}
