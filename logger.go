package coldcore

// Logger defines the structured logging interface used throughout the
// orchestration core. All operations (registration, dependency resolution,
// scheduling overruns, watchdog recoveries) log through this interface so the
// embedding firmware controls how log lines are emitted.
//
// Messages carry variadic key-value pairs, which is compatible with slog,
// zap's sugared logger and similar libraries:
//
//	logger.Warn("deadline miss", "module", "temp-sensors", "took", d)
type Logger interface {
	// Info logs normal operational events such as module initialization.
	Info(msg string, args ...any)

	// Error logs failures that were contained to one module.
	Error(msg string, args ...any)

	// Warn logs unusual conditions like deadline misses and pass overruns.
	Warn(msg string, args ...any)

	// Debug logs diagnostic detail, typically disabled on the target.
	Debug(msg string, args ...any)
}
