package coldcore

import (
	"errors"
)

// Orchestration errors
var (
	// Registration errors
	ErrNilModule       = errors.New("cannot register nil module")
	ErrDuplicateModule = errors.New("module already registered")
	ErrModuleNotFound  = errors.New("module not found")

	// Dependency resolution errors
	ErrDependencyCycle   = errors.New("dependency cycle detected")
	ErrMissingDependency = errors.New("module depends on unknown module")
	ErrNoManifests       = errors.New("no manifest registry attached")

	// Lifecycle errors
	ErrCriticalInitFailed  = errors.New("critical module failed to initialize")
	ErrModuleNotConfigured = errors.New("module is not in configured state")

	// Configuration errors
	ErrUnknownPriority   = errors.New("unknown priority tier")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)
