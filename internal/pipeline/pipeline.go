// Package pipeline runs the resolver stages in order: version selection,
// Java lookup, library mode, the optional vendored build and the link plan.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/goplus/hdfs-sys/internal/build"
	"github.com/goplus/hdfs-sys/internal/env"
	"github.com/goplus/hdfs-sys/internal/java"
	"github.com/goplus/hdfs-sys/internal/libmode"
	"github.com/goplus/hdfs-sys/internal/linkplan"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
	"github.com/goplus/hdfs-sys/pkgs/buildsys"
	"github.com/goplus/hdfs-sys/pkgs/buildsys/cmake"
	"github.com/qiniu/x/log"
)

// Stage names a pipeline step.
type Stage string

const (
	StageVersion Stage = "version"
	StageJava    Stage = "java"
	StageMode    Stage = "libmode"
	StageBuild   Stage = "build"
	StageLink    Stage = "link"
)

// StageError is a failure tagged with the stage it happened in. No later
// stage runs after one is returned.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options are the inputs of one resolver run.
type Options struct {
	// Versions are the enabled version flags; exactly one is required.
	Versions []string
	Vendored bool
	Static   bool
	Target   platform.Target

	// VendorDir holds the bundled sources, WorkDir the build outputs.
	VendorDir string
	WorkDir   string

	// LibDir is an explicit libhdfs directory; HadoopHome is $HADOOP_HOME.
	LibDir     string
	HadoopHome string
	// Prefixes replaces the platform's conventional install prefixes.
	Prefixes []string

	// Java finds the JVM. Its Target defaults to Options.Target.
	Java java.Locator

	Tool   buildsys.Tool
	Stdout io.Writer

	// NoLink stops after the build stage; Result.Plan stays nil.
	NoLink bool
}

// Result collects what each stage produced.
type Result struct {
	Version  version.Tag       `json:"version" yaml:"version"`
	Java     *java.Environment `json:"java,omitempty" yaml:"java,omitempty"`
	Mode     string            `json:"mode" yaml:"mode"`
	Artifact *build.Artifact   `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Plan     *linkplan.Plan    `json:"plan" yaml:"plan"`
	// HeaderDirs are the include directories for hdfs.h and jni.h.
	HeaderDirs []string `json:"header_dirs" yaml:"header_dirs"`

	mode libmode.Mode
}

// LibraryMode returns the resolved mode.
func (r *Result) LibraryMode() libmode.Mode { return r.mode }

// Run executes the pipeline. Version selection and the Java lookup run
// concurrently since neither depends on the other; everything after is
// sequential. A Java failure is tolerated until the link stage when the
// library is built from vendored source.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	target := opts.Target
	if target.OS == "" {
		target = platform.HostTarget()
	}
	if err := target.Validate(); err != nil {
		return nil, &StageError{Stage: StageVersion, Err: err}
	}

	var (
		tag     version.Tag
		jenv    *java.Environment
		javaErr error
	)
	locator := opts.Java
	locator.Target = target
	var g errgroup.Group
	g.Go(func() error {
		var err error
		tag, err = version.Select(opts.Versions)
		return err
	})
	g.Go(func() error {
		jenv, javaErr = locator.Locate()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &StageError{Stage: StageVersion, Err: err}
	}
	log.Infof("pipeline: selected libhdfs %s for %s", tag, target)

	res := &Result{Version: tag, Java: jenv}
	resolver := &libmode.Resolver{
		VendorDir:  opts.VendorDir,
		Target:     target,
		Override:   opts.LibDir,
		HadoopHome: opts.HadoopHome,
		Static:     opts.Static,
		Prefixes:   opts.Prefixes,
	}
	mode, err := resolver.Resolve(tag, opts.Vendored)
	if err != nil {
		return nil, &StageError{Stage: StageMode, Err: err}
	}
	res.mode = mode
	res.Mode = mode.String()
	log.Infof("pipeline: library mode %s", mode)

	var libDir string
	switch m := mode.(type) {
	case libmode.System:
		if javaErr != nil {
			return nil, &StageError{Stage: StageJava, Err: javaErr}
		}
		libDir = m.InstallRoot
		res.HeaderDirs = appendIfDir(res.HeaderDirs, systemIncludeDir(m.InstallRoot))
	case libmode.Vendored:
		if javaErr != nil {
			log.Warnf("pipeline: java not found, building without it: %v", javaErr)
		}
		o, err := orchestrator(opts)
		if err != nil {
			return nil, &StageError{Stage: StageBuild, Err: err}
		}
		art, err := o.Build(ctx, m, target, jenv)
		if err != nil {
			return nil, &StageError{Stage: StageBuild, Err: err}
		}
		res.Artifact = art
		libDir = art.Dir
		res.HeaderDirs = appendIfDir(res.HeaderDirs, art.IncludeDir)
	}

	if jenv != nil {
		res.HeaderDirs = append(res.HeaderDirs, jenv.IncludeDirs...)
	}
	if opts.NoLink {
		return res, nil
	}
	plan, err := linkplan.Emit(linkplan.Input{
		LibDir:  libDir,
		Static:  opts.Static,
		Java:    jenv,
		JavaErr: javaErr,
		Target:  target,
	})
	if err != nil {
		return nil, &StageError{Stage: StageLink, Err: err}
	}
	res.Plan = plan
	return res, nil
}

func orchestrator(opts *Options) (*build.Orchestrator, error) {
	o := &build.Orchestrator{WorkDir: opts.WorkDir, Tool: opts.Tool, Static: opts.Static, Stdout: opts.Stdout}
	if o.Tool == nil {
		o.Tool = &cmake.Tool{}
	}
	if o.WorkDir == "" {
		dir, err := env.BuildDir()
		if err != nil {
			return nil, err
		}
		o.WorkDir = dir
	}
	return o, nil
}

// systemIncludeDir guesses the header directory of an installed libhdfs;
// Hadoop distributions ship it as include/ next to lib/native.
func systemIncludeDir(libDir string) string {
	return filepath.Join(libDir, "..", "..", "include")
}

func appendIfDir(dirs []string, dir string) []string {
	if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
		return append(dirs, filepath.Clean(dir))
	}
	return dirs
}
