package buildsys

import (
	"context"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
)

// Tool is an external native build tool. It compiles a prepared source tree
// and installs the results under Invocation.InstallDir.
type Tool interface {
	// Name identifies the tool in logs and cache records.
	Name() string

	// Version reports the installed tool version, e.g. "3.28.3".
	Version(ctx context.Context) (string, error)

	// Run performs configure, build and install. A non-zero exit is reported
	// through Result, not through the error; the error is reserved for
	// failures to start the tool at all.
	Run(ctx context.Context, inv *Invocation) (*Result, error)
}

// Invocation describes one native build.
type Invocation struct {
	SourceDir  string
	BuildDir   string
	InstallDir string

	// Target platform, as GOOS/GOARCH plus its conventional triple.
	OS, Arch, Triple string

	// Shared selects a shared library instead of a static one.
	Shared bool

	// Env is merged over the process environment.
	Env map[string]string
	// Defines are passed to the tool as build definitions.
	Defines map[string]string

	// Stdout, if set, receives a live copy of the tool output.
	Stdout io.Writer
}

// Result is the outcome of a completed tool run.
type Result struct {
	ExitStatus int
	Output     []byte
}

// Success reports whether the tool exited with status zero.
func (r *Result) Success() bool {
	return r.ExitStatus == 0
}

// MergeEnv overlays override on base, returning a sorted KEY=VALUE list.
func MergeEnv(base []string, override map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range override {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// JoinPath joins values with the host path list separator.
func JoinPath(values ...string) string {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	return strings.Join(values, sep)
}

// Environ returns the process environment; tests may replace it.
var Environ = os.Environ
