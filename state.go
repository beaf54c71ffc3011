package coldcore

// ModuleState tracks where a registered module is in its lifecycle.
//
// The state machine is strictly forward with a single exception path:
//
//	Created -> Configured -> Initialized
//
// ShutdownAll and Reload return an initialized module to Configured so it can
// be initialized again. A configuration or initialization failure moves the
// module to Error, which is terminal for the remainder of the run unless the
// module is explicitly reloaded.
type ModuleState int

const (
	// StateCreated is the state of a freshly registered module.
	StateCreated ModuleState = iota

	// StateConfigured means the module accepted its configuration section
	// (or was stopped after running and may be initialized again).
	StateConfigured

	// StateInitialized means the module is live and eligible for ticking.
	StateInitialized

	// StateError means configuration or initialization failed. The module
	// is skipped by every pass until reloaded.
	StateError
)

// String returns the lower-case state name used in logs and health reports.
func (s ModuleState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateInitialized:
		return "initialized"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
