package domain

import "fmt"

// ParseError reports malformed protocol content. It is fatal and raised
// before dispatch; no tracer is attached and no run log is produced.
type ParseError struct {
	FileName string
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("cannot parse protocol %q: %s", e.FileName, e.Reason)
	}
	return fmt.Sprintf("cannot parse protocol: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError reports an incompatible version/flag combination or an
// invalid bundle destination. Like ParseError it is fatal before dispatch.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ExecutionError reports an engine-level failure mid-run. The run log
// accumulated up to the failure remains retrievable from the tracer even
// though the overall call reports failure.
type ExecutionError struct {
	Command Command
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("protocol execution failed during %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("protocol execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FormatError reports a template placeholder that references a key absent
// from its span's payload. It occurs only during rendering and never
// affects the underlying run log or bundle.
type FormatError struct {
	Key      string
	Template string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("run log template %q references unknown key %q", e.Template, e.Key)
}

// ResourceError reports an unreadable or missing external labware or data
// path, or duplicate logical resource names from different sources.
type ResourceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %q: %s", e.Path, e.Reason)
}

func (e *ResourceError) Unwrap() error { return e.Err }
