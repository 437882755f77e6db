// Package cmake drives the cmake configure/build/install workflow.
package cmake

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"

	"github.com/goplus/hdfs-sys/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds.
type CMake struct {
	bin        string
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	defines    map[string]defineValue
	env        map[string]string
	out        io.Writer
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		bin:        "cmake",
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    make(map[string]defineValue),
		env:        make(map[string]string),
	}
}

// Binary overrides the cmake executable.
func (c *CMake) Binary(path string) { c.bin = path }

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Env sets a variable for every cmake process this CMake starts.
func (c *CMake) Env(key, value string) { c.env[key] = value }

// Output sends all cmake output to w.
func (c *CMake) Output(w io.Writer) { c.out = w }

// ConfigureArgs returns the arguments of the configure step.
func (c *CMake) ConfigureArgs(args ...string) []string {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return c.run(ctx, c.ConfigureArgs(args...))
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	return c.run(ctx, append(cmakeArgs, args...))
}

// Install runs "cmake --install <build>" with optional extra arguments.
func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--install", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	if c.installDir != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", c.installDir)
	}
	return c.run(ctx, append(cmakeArgs, args...))
}

// The build is never interrupted once started, so ctx is not wired to the
// process: a killed compiler can leave a partial archive behind.
func (c *CMake) run(_ context.Context, args []string) error {
	cmd := exec.Command(c.bin, args...)
	out := c.out
	if out == nil {
		out = os.Stdout
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if len(c.env) > 0 {
		cmd.Env = buildsys.MergeEnv(buildsys.Environ(), c.env)
	}
	return cmd.Run()
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}

// Tool runs cmake as a buildsys.Tool.
type Tool struct {
	// Bin is the cmake executable; empty means "cmake" on PATH.
	Bin       string
	Generator string
	BuildType string
}

var _ buildsys.Tool = (*Tool)(nil)

func (t *Tool) bin() string {
	if t.Bin != "" {
		return t.Bin
	}
	return "cmake"
}

func (t *Tool) Name() string { return "cmake" }

// Version parses the first line of "cmake --version".
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.bin(), "--version").Output()
	if err != nil {
		return "", fmt.Errorf("cmake --version: %w", err)
	}
	return parseVersion(out)
}

func parseVersion(out []byte) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	if sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 3 && fields[0] == "cmake" && fields[1] == "version" {
			return fields[2], nil
		}
	}
	return "", fmt.Errorf("unrecognized cmake version output %q", strings.TrimSpace(string(out)))
}

// Run configures, builds and installs inv. Output of all three steps is
// captured into the result.
func (t *Tool) Run(ctx context.Context, inv *buildsys.Invocation) (*buildsys.Result, error) {
	var captured bytes.Buffer
	var out io.Writer = &captured
	if inv.Stdout != nil {
		out = io.MultiWriter(&captured, inv.Stdout)
	}

	c := t.configure(inv)
	c.Output(out)

	steps := []func(context.Context, ...string) error{c.Configure, c.Build, c.Install}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return &buildsys.Result{ExitStatus: exitErr.ExitCode(), Output: captured.Bytes()}, nil
			}
			return nil, err
		}
	}
	return &buildsys.Result{Output: captured.Bytes()}, nil
}

func (t *Tool) configure(inv *buildsys.Invocation) *CMake {
	c := New(inv.SourceDir, inv.BuildDir, inv.InstallDir)
	c.Binary(t.bin())
	if t.Generator != "" {
		c.Generator(t.Generator)
	}
	buildType := t.BuildType
	if buildType == "" {
		buildType = "Release"
	}
	c.BuildType(buildType)
	c.DefineBool("BUILD_SHARED_LIBS", inv.Shared)
	for k, v := range crossDefines(inv.OS, inv.Arch) {
		c.Define(k, v)
	}
	for k, v := range inv.Defines {
		c.Define(k, v)
	}
	for k, v := range inv.Env {
		c.Env(k, v)
	}
	return c
}

// crossDefines tells cmake about a target that differs from the host.
func crossDefines(goos, goarch string) map[string]string {
	defs := map[string]string{}
	if goos == "darwin" {
		defs["CMAKE_OSX_ARCHITECTURES"] = map[string]string{"amd64": "x86_64", "arm64": "arm64"}[goarch]
	}
	if goos == runtime.GOOS && goarch == runtime.GOARCH {
		return defs
	}
	defs["CMAKE_SYSTEM_NAME"] = map[string]string{"linux": "Linux", "darwin": "Darwin", "windows": "Windows"}[goos]
	defs["CMAKE_SYSTEM_PROCESSOR"] = map[string]string{"amd64": "x86_64", "arm64": "aarch64"}[goarch]
	return defs
}
