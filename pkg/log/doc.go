// SPDX-License-Identifier: BSD-3-Clause

// Package log provides structured logging functionality with multi-target output
// support for console and OpenTelemetry observability. The package integrates
// multiple logging libraries to provide a unified interface that outputs
// human-readable logs to the console while simultaneously sending structured
// telemetry data to OpenTelemetry for distributed tracing and monitoring.
//
// The package is built around Go's standard library slog package and provides
// adapters for various logging systems including NATS server logging and
// oversight process management logging. This allows for consistent structured
// logging across every component of the maintenance agent.
//
// # Core Features
//
// The package provides several key features:
//
//   - Dual output: Human-readable console logs and structured OpenTelemetry data
//   - Standard library slog integration for structured logging
//   - NATS server logger adapter for consistent logging from NATS components
//   - Oversight process supervisor logger integration
//   - Automatic timestamp and debug level configuration
//
// # Basic Usage
//
// Creating and using the default logger:
//
//	logger := log.NewDefaultLogger()
//	logger.Info("mtced starting", "version", "1.0.0", "config", "/etc/mtce/mtced.toml")
//	logger.Debug("debug information", "module", "dispatcher", "node_count", 5)
//	logger.Error("operation failed", "error", err, "operation", "bmc_worker_launch")
//
// Using the global logger:
//
//	logger := log.GetGlobalLogger()
//	logger.Info("using the process-wide logger wired through OpenTelemetry")
//
// # Structured Logging
//
// The logger supports structured logging with key-value pairs:
//
//	func tickNode(hostname string, handle registry.Handle) {
//		logger := log.GetGlobalLogger()
//
//		logger.Info("dispatcher tick",
//			"hostname", hostname,
//			"handle", handle,
//			"stage", "enable",
//			"timestamp", time.Now(),
//		)
//
//		// Advance the node's stage handler...
//
//		logger.Debug("stage tick completed",
//			"hostname", hostname,
//			"terminal", false,
//		)
//	}
//
// # Error Logging with Context
//
// Enhanced error logging with contextual information:
//
//	func runBMCCommand(hostname string, cmd bmcworker.Command) error {
//		logger := log.GetGlobalLogger()
//
//		logger.Info("launching bmc worker",
//			"hostname", hostname,
//			"command", cmd,
//		)
//
//		if err := pool.Launch(ctx, node, extra, cmd, deadline); err != nil {
//			logger.Error("bmc worker launch failed",
//				"hostname", hostname,
//				"command", cmd,
//				"error", err,
//			)
//			return fmt.Errorf("failed to launch %s against %s: %w", cmd, hostname, err)
//		}
//
//		logger.Info("bmc worker launched",
//			"hostname", hostname,
//			"command", cmd,
//		)
//
//		return nil
//	}
//
// # NATS Server Integration
//
// Using the NATS logger adapter for consistent logging from the embedded
// single-binary NATS server:
//
//	func setupNATSServer() (*server.Server, error) {
//		logger := log.GetGlobalLogger()
//		natsLogger := log.NewNATSLogger(logger)
//
//		opts := &server.Options{
//			Host: "127.0.0.1",
//			Port: 4222,
//		}
//
//		srv, err := server.NewServer(opts)
//		if err != nil {
//			return nil, fmt.Errorf("failed to create NATS server: %w", err)
//		}
//		srv.SetLoggerV2(natsLogger, false, false, false)
//
//		// NATS server logs will now be formatted consistently
//		// and sent to both console and OpenTelemetry.
//		go srv.Start()
//
//		return srv, nil
//	}
//
// # Service Logging Pattern
//
// Recommended pattern for service initialization and lifecycle logging:
//
//	func (a *Agent) Run(ctx context.Context) error {
//		logger := log.GetGlobalLogger()
//
//		logger.Info("mtced starting",
//			"service", "mtced",
//			"node_id", a.cfg.NodeID,
//			"config_path", a.cfg.Path,
//			"pid", os.Getpid(),
//		)
//
//		// Start the supervision tree...
//		if err := a.startServices(ctx); err != nil {
//			logger.Error("service startup failed",
//				"service", "mtced",
//				"error", err,
//			)
//			return fmt.Errorf("startup failed: %w", err)
//		}
//
//		logger.Info("mtced ready",
//			"service", "mtced",
//			"listen_addr", a.cfg.RESTAddr,
//			"startup_duration_ms", time.Since(a.startTime).Milliseconds(),
//		)
//
//		return a.serve(ctx)
//	}
//
// # Request/Response Logging
//
// Logging inbound REST requests and responses with correlation:
//
//	func logHostPatchRequest(r *http.Request) {
//		logger := log.GetGlobalLogger()
//
//		logger.Info("restapi request received",
//			"method", r.Method,
//			"path", r.URL.Path,
//			"remote_addr", r.RemoteAddr,
//			"caller", r.Header.Get("User-Agent"),
//		)
//	}
//
//	func logHostPatchResponse(status int, duration time.Duration, hostname string) {
//		logger := log.GetGlobalLogger()
//
//		level := slog.LevelInfo
//		if status >= 400 {
//			level = slog.LevelWarn
//		}
//		if status >= 500 {
//			level = slog.LevelError
//		}
//
//		logger.Log(context.Background(), level, "restapi response sent",
//			"status", status,
//			"duration_ms", duration.Milliseconds(),
//			"hostname", hostname,
//		)
//	}
//
// # Performance and Metrics Logging
//
// Logging performance metrics and system health:
//
//	func logDispatcherMetrics(tickDuration time.Duration, nodeCount int) {
//		logger := log.GetGlobalLogger()
//
//		var m runtime.MemStats
//		runtime.ReadMemStats(&m)
//
//		logger.Debug("dispatcher tick metrics",
//			"goroutines", runtime.NumGoroutine(),
//			"memory_alloc_mb", m.Alloc/1024/1024,
//			"tick_duration_ms", tickDuration.Milliseconds(),
//			"node_count", nodeCount,
//		)
//	}
//
//	func logNodeHeartbeatMetrics(hostname string, misses uint32) {
//		logger := log.GetGlobalLogger()
//
//		logger.Info("heartbeat counters",
//			"hostname", hostname,
//			"consecutive_misses", misses,
//		)
//	}
//
// # Error Recovery Logging
//
// Logging error recovery and fallback scenarios:
//
//	func (a *Agent) handlePanic() {
//		if r := recover(); r != nil {
//			logger := log.GetGlobalLogger()
//
//			logger.Error("dispatcher panic recovered",
//				"service", "mtced",
//				"panic", r,
//				"stack", string(debug.Stack()),
//				"recovery_action", "restart",
//			)
//
//			// Attempt recovery
//			if err := a.restart(); err != nil {
//				logger.Error("dispatcher restart failed after panic",
//					"service", "mtced",
//					"restart_error", err,
//					"action", "manual_intervention_required",
//				)
//			} else {
//				logger.Info("dispatcher successfully restarted after panic",
//					"service", "mtced",
//				)
//			}
//		}
//	}
//
// # Integration with OpenTelemetry
//
// The package automatically integrates with OpenTelemetry for distributed tracing:
//
//	func processWithTracing(ctx context.Context, operation string) error {
//		logger := log.GetGlobalLogger()
//
//		// Extract trace information from context if available
//		span := trace.SpanFromContext(ctx)
//		traceID := span.SpanContext().TraceID().String()
//		spanID := span.SpanContext().SpanID().String()
//
//		logger.Info("operation started",
//			"operation", operation,
//			"trace_id", traceID,
//			"span_id", spanID,
//		)
//
//		// The logger will automatically include trace context
//		// in OpenTelemetry output for correlation
//
//		return nil
//	}
//
// # Configuration and Best Practices
//
// Recommended initialization pattern for services:
//
//	func main() {
//		// Initialize telemetry first
//		telemetry.DefaultSetup()
//
//		// Set up global logging
//		logger := log.GetGlobalLogger()
//
//		logger.Info("application starting",
//			"name", "mtced",
//			"version", version.BuildVersion,
//			"commit", version.BuildCommit,
//			"build_time", version.BuildTime,
//		)
//
//		// Continue with application setup...
//	}
//
// # Thread Safety
//
// All logger instances are safe for concurrent use from multiple goroutines.
// The underlying slog and zerolog implementations handle concurrent access
// appropriately.
//
// # Performance Considerations
//
// The dual-output design has minimal performance impact:
//
//   - Console output goes through zerolog's human-readable ConsoleWriter
//   - OpenTelemetry log output is batched when an OTLP exporter is configured;
//     the default NoOp exporter installs no log processor and exports nothing
//   - The console handler is fixed at debug level, so debug logs are always
//     written to the console
//   - Structured logging with key-value pairs is more efficient than string formatting
//
// For high-throughput scenarios, consider:
//
//   - Using appropriate log levels (avoid excessive debug logging in production)
//   - Batching related log entries when possible
//   - Using sampling for high-frequency events
package log
