// Package errs defines the error categories reported by the resolver
// pipeline. Every failure aborts the pipeline at the stage it occurred.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind sentinels; match them with errors.Is.
var (
	ErrNoVersionSelected        = errors.New("no version selected")
	ErrMultipleVersionsSelected = errors.New("multiple versions selected")
	ErrUnknownVersion           = errors.New("unknown version")
	ErrUnsupportedTarget        = errors.New("unsupported target")
	ErrMissingVendorSource      = errors.New("missing vendored source")

	ErrJavaNotFound          = errors.New("java runtime not found")
	ErrLibraryMissing        = errors.New("jvm library missing")
	ErrHeadersMissing        = errors.New("jni headers missing")
	ErrSystemLibraryNotFound = errors.New("system libhdfs not found")

	ErrNativeBuildFailed   = errors.New("native build failed")
	ErrArtifactNotProduced = errors.New("artifact not produced")
	ErrToolTooOld          = errors.New("build tool too old")

	ErrSearchPathInvalid   = errors.New("search path invalid")
	ErrLibraryFileNotFound = errors.New("library file not found")
)

// ConfigurationError reports invalid or ambiguous caller input.
type ConfigurationError struct {
	Kind  error
	Flags []string // offending flag combination, if any
	Msg   string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error: ")
	b.WriteString(e.Kind.Error())
	if len(e.Flags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Flags, ", "))
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error { return e.Kind }

// EnvironmentError reports a host missing a required runtime or library.
// Searched holds every path or variable that was checked, in order.
type EnvironmentError struct {
	Kind     error
	Path     string
	Searched []string
}

func (e *EnvironmentError) Error() string {
	var b strings.Builder
	b.WriteString("environment error: ")
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " under %s", e.Path)
	}
	if len(e.Searched) > 0 {
		b.WriteString("; searched:")
		for _, s := range e.Searched {
			b.WriteString("\n\t")
			b.WriteString(s)
		}
	}
	return b.String()
}

func (e *EnvironmentError) Unwrap() error { return e.Kind }

// BuildError reports a native build that failed or silently produced nothing.
type BuildError struct {
	Kind       error
	ExitStatus int
	Output     string
	Path       string
	Err        error
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString("build error: ")
	b.WriteString(e.Kind.Error())
	// A negative status means the tool never ran to completion.
	if errors.Is(e.Kind, ErrNativeBuildFailed) && e.ExitStatus >= 0 {
		fmt.Fprintf(&b, " (exit status %d)", e.ExitStatus)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n--- build output ---\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *BuildError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// LinkError reports a resolved location that does not hold what the plan needs.
type LinkError struct {
	Kind    error
	Path    string
	Library string
}

func (e *LinkError) Error() string {
	if e.Library != "" {
		return fmt.Sprintf("link error: %v: %s in %s", e.Kind, e.Library, e.Path)
	}
	return fmt.Sprintf("link error: %v: %s", e.Kind, e.Path)
}

func (e *LinkError) Unwrap() error { return e.Kind }
