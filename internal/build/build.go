// Package build compiles vendored libhdfs sources with an external native
// build tool and caches the verified result.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goplus/hdfs-sys/internal/build/lockedfile"
	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/java"
	"github.com/goplus/hdfs-sys/internal/libmode"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
	"github.com/goplus/hdfs-sys/pkgs/buildsys"
	"github.com/goplus/hdfs-sys/pkgs/gnu"
	"github.com/qiniu/x/log"
)

// Artifact is the output of a vendored build.
type Artifact struct {
	// Dir holds the produced library files.
	Dir   string   `json:"dir" yaml:"dir"`
	Files []string `json:"files" yaml:"files"`
	// IncludeDir holds the installed hdfs.h.
	IncludeDir string          `json:"include_dir" yaml:"include_dir"`
	Target     platform.Target `json:"target" yaml:"target"`
	Triple     string          `json:"triple" yaml:"triple"`
	Version    version.Tag     `json:"version" yaml:"version"`
	Static     bool            `json:"static" yaml:"static"`
	Cached     bool            `json:"cached" yaml:"cached"`
	BuildTime  time.Time       `json:"build_time" yaml:"build_time"`
}

// Orchestrator runs vendored builds.
type Orchestrator struct {
	// WorkDir holds one output directory per (version, target, kind).
	WorkDir string
	Tool    buildsys.Tool
	// Static builds libhdfs.a instead of a shared library.
	Static bool
	// Stdout receives live tool output when set; output is always captured.
	Stdout io.Writer
}

// Build produces libhdfs for v on target. A previous build of the same
// source, version and target is reused when its completion record matches
// the files on disk. The build tool is never interrupted once started; ctx
// only bounds the tool version probe.
func (o *Orchestrator) Build(ctx context.Context, v libmode.Vendored, target platform.Target, jenv *java.Environment) (*Artifact, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	profile := target.Profile()
	kind := "shared"
	if o.Static {
		kind = "static"
	}
	outDir := filepath.Join(o.WorkDir, fmt.Sprintf("%s-%s-%s", v.Version, target.Triple(), kind))

	unlock, err := lockedfile.MutexAt(filepath.Join(outDir, lockFile)).Lock()
	if err != nil {
		return nil, workspaceError(outDir, err)
	}
	defer unlock()

	vendorDir := filepath.Dir(v.SourceRoot)
	r := newRecipe(v.Version, target, vendorDir)
	recipeText, err := r.render()
	if err != nil {
		return nil, workspaceError(v.SourceRoot, err)
	}
	// The JNI location is compiled into the library, so a build made with
	// cmake's own JNI lookup is not reused once a JDK is configured.
	var javaHome, jniIncludes, jvmLibrary string
	if jenv != nil {
		javaHome = jenv.Home
		jniIncludes = strings.Join(slashes(jenv.IncludeDirs), ";")
		jvmLibrary = filepath.ToSlash(filepath.Join(jenv.JVMDir(), profile.JVMLibrary()))
	}
	fp, err := fingerprint(v.SourceRoot, string(v.Version), target.Triple(), kind, o.Tool.Name(), string(recipeText),
		javaHome, jniIncludes, jvmLibrary)
	if err != nil {
		return nil, workspaceError(v.SourceRoot, fmt.Errorf("fingerprint: %w", err))
	}

	installDir := filepath.Join(outDir, "install")
	libDir := filepath.Join(installDir, "lib")
	cachePath := filepath.Join(outDir, cacheFile)
	if cache, err := loadBuildCache(cachePath); err == nil && cache.valid(fp, libDir) {
		log.Infof("build: reusing %s built %s", libDir, humanize.Time(cache.BuildTime))
		return o.artifact(libDir, cache.names(), v, target, true, cache.BuildTime), nil
	}

	toolVersion, err := o.Tool.Version(ctx)
	if err != nil {
		return nil, &errs.BuildError{Kind: errs.ErrNativeBuildFailed, ExitStatus: -1, Err: err}
	}
	if gnu.Compare(toolVersion, r.MinCMake) < 0 {
		return nil, &errs.BuildError{
			Kind: errs.ErrToolTooOld,
			Err:  fmt.Errorf("%s %s is older than %s required by %s", o.Tool.Name(), toolVersion, r.MinCMake, v.Version),
		}
	}

	// Drop the completion record and every previous output first, so an
	// interrupted build can never be mistaken for a finished one.
	for _, p := range []string{cachePath, filepath.Join(outDir, "src"), filepath.Join(outDir, "build"), installDir} {
		if err := os.RemoveAll(p); err != nil {
			return nil, workspaceError(p, err)
		}
	}

	srcDir, err := prepareSource(v.SourceRoot, filepath.Join(outDir, "src"))
	if err != nil {
		return nil, workspaceError(v.SourceRoot, err)
	}
	recipePath := filepath.Join(srcDir, "CMakeLists.txt")
	if err := os.WriteFile(recipePath, recipeText, 0o644); err != nil {
		return nil, workspaceError(recipePath, err)
	}

	inv := &buildsys.Invocation{
		SourceDir:  srcDir,
		BuildDir:   filepath.Join(outDir, "build"),
		InstallDir: installDir,
		OS:         target.OS,
		Arch:       target.Arch,
		Triple:     target.Triple(),
		Shared:     !o.Static,
		Env:        map[string]string{},
		Defines:    map[string]string{"HDFS_VERSION": v.Version.String()},
		Stdout:     o.Stdout,
	}
	if jenv != nil {
		inv.Env["JAVA_HOME"] = javaHome
		inv.Env["PATH"] = buildsys.JoinPath(filepath.Join(javaHome, "bin"), os.Getenv("PATH"))
		inv.Defines["JAVA_HOME"] = javaHome
		inv.Defines["JNI_INCLUDE_DIRS"] = jniIncludes
		inv.Defines["JVM_LIBRARY"] = jvmLibrary
	}

	log.Infof("build: compiling libhdfs %s for %s with %s %s", v.Version, target.Triple(), o.Tool.Name(), toolVersion)
	start := time.Now()
	res, err := o.Tool.Run(ctx, inv)
	if err != nil {
		return nil, &errs.BuildError{Kind: errs.ErrNativeBuildFailed, ExitStatus: -1, Err: err}
	}
	if !res.Success() {
		return nil, &errs.BuildError{Kind: errs.ErrNativeBuildFailed, ExitStatus: res.ExitStatus, Output: string(res.Output)}
	}

	// A zero exit does not prove anything was produced.
	var files []string
	for _, name := range profile.ClientLibraries(o.Static) {
		if fi, err := os.Stat(filepath.Join(libDir, name)); err == nil && !fi.IsDir() {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return nil, &errs.BuildError{
			Kind:   errs.ErrArtifactNotProduced,
			Path:   filepath.Join(libDir, profile.ClientLibraries(o.Static)[0]),
			Output: string(res.Output),
		}
	}

	stamps, err := stamp(libDir, files)
	if err != nil {
		return nil, workspaceError(libDir, err)
	}
	now := time.Now()
	cache := &buildCache{
		Fingerprint: fp,
		Tool:        o.Tool.Name(),
		ToolVersion: toolVersion,
		BuildTime:   now,
		Files:       stamps,
	}
	if err := saveBuildCache(cachePath, cache); err != nil {
		return nil, workspaceError(cachePath, err)
	}
	var size int64
	for _, s := range stamps {
		size += s.Size
	}
	log.Infof("build: produced %s (%s) in %s", strings.Join(files, ", "), humanize.Bytes(uint64(size)), time.Since(start).Round(time.Millisecond))
	return o.artifact(libDir, files, v, target, false, now), nil
}

func (o *Orchestrator) artifact(dir string, files []string, v libmode.Vendored, target platform.Target, cached bool, built time.Time) *Artifact {
	return &Artifact{
		Dir:        dir,
		Files:      files,
		IncludeDir: filepath.Join(filepath.Dir(dir), "include"),
		Target:     target,
		Triple:     target.Triple(),
		Version:    v.Version,
		Static:     o.Static,
		Cached:     cached,
		BuildTime:  built,
	}
}

// workspaceError reports a failure to set up or record a build in the
// output tree; the tool itself has not run.
func workspaceError(path string, err error) error {
	return &errs.BuildError{Kind: errs.ErrNativeBuildFailed, ExitStatus: -1, Path: path, Err: err}
}

func slashes(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}
