// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExampleDispatcherTick demonstrates the telemetry setup and span/metric
// helpers around one dispatcher pass: one span per tick, a counter for nodes
// processed, and a duration histogram. cmd/mtced itself only calls Setup and
// records no spans or metrics around its dispatcher ticks.
func ExampleDispatcherTick() error {
	ctx := context.Background()

	shutdown, err := Setup(ctx,
		WithServiceName("mtced"),
		WithServiceVersion("1.0.0"),
		WithMetrics(true),
		WithTraces(true),
		WithLogs(true),
	)
	if err != nil {
		return fmt.Errorf("telemetry setup failed: %w", err)
	}
	defer shutdown(ctx)

	logger := GetLogger("mtced")

	nodesProcessed, err := Counter("mtced", "nodes_processed_total",
		"Total number of node ticks processed by the dispatcher", "1")
	if err != nil {
		return fmt.Errorf("failed to create counter: %w", err)
	}

	tickDuration, err := Histogram("mtced", "dispatcher_tick_duration_seconds",
		"Dispatcher tick duration in seconds", "s")
	if err != nil {
		return fmt.Errorf("failed to create histogram: %w", err)
	}

	return WithSpan(ctx, "mtced", "dispatcher_tick", func(spanCtx context.Context) error {
		start := time.Now()

		SetSpanAttributes(spanCtx,
			StringAttr("component", "dispatcher"),
			IntAttr("node_count", 1),
		)

		InfoWithContext(spanCtx, logger, "dispatcher tick started",
			slog.String("component", "dispatcher"),
		)

		IncrementCounter(spanCtx, nodesProcessed, 1,
			StringAttr("component", "dispatcher"),
		)

		SetSpanStatus(spanCtx, StatusOK(), "tick completed")
		RecordDuration(spanCtx, tickDuration, time.Since(start).Seconds(),
			StringAttr("component", "dispatcher"),
		)

		return nil
	})
}
