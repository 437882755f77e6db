// Package java locates a Java runtime's shared library and JNI headers.
package java

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/qiniu/x/log"
)

// HomeVar is the primary variable naming a Java home.
const HomeVar = "JAVA_HOME"

// Environment is a resolved Java installation. It is read-only once
// returned by Locate.
type Environment struct {
	Home        string   `json:"home" yaml:"home"`
	LibDirs     []string `json:"lib_dirs" yaml:"lib_dirs"`
	IncludeDirs []string `json:"include_dirs" yaml:"include_dirs"`
	// Source says which search step produced Home, e.g. "$JAVA_HOME".
	Source   string   `json:"source" yaml:"source"`
	Searched []string `json:"searched,omitempty" yaml:"searched,omitempty"`
}

// JVMDir returns the directory holding the JVM shared library.
func (e *Environment) JVMDir() string {
	if len(e.LibDirs) == 0 {
		return ""
	}
	return e.LibDirs[0]
}

// Locator finds a Java installation for a target. The zero value searches
// the host with the process environment.
type Locator struct {
	// Override is an explicit Java home; it wins over everything else.
	Override string
	Target   platform.Target

	// Getenv and Environ default to the os package functions.
	Getenv  func(string) string
	Environ func() []string
	// WellKnown replaces the profile's default install globs when non-nil.
	WellKnown []string
}

type candidate struct {
	source string
	home   string
}

// Locate resolves the Java environment. Candidates are tried in order:
// the explicit override, $JAVA_HOME, architecture-qualified variables and
// finally well-known install locations. Once a home directory is chosen the
// JVM library and JNI headers must both be present under it.
func (l *Locator) Locate() (*Environment, error) {
	target := l.Target
	if target.OS == "" {
		target = platform.HostTarget()
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	profile := target.Profile()

	var searched []string
	home, source, err := l.findHome(target, profile, &searched)
	if err != nil {
		return nil, err
	}
	log.Debugf("java: using home %s from %s", home, source)

	env := &Environment{Home: home, Source: source, Searched: searched}

	libDir, tried := firstWith(home, profile.VMDirs(target.Arch), profile.JVMLibrary())
	if libDir == "" {
		return nil, &errs.EnvironmentError{Kind: errs.ErrLibraryMissing, Path: home, Searched: tried}
	}
	env.LibDirs = append(env.LibDirs, libDir)

	if imp := profile.JVMImportLibrary(); imp != "" {
		impDir, tried := firstWith(home, profile.ImportLibDirs(), imp)
		if impDir == "" {
			return nil, &errs.EnvironmentError{Kind: errs.ErrLibraryMissing, Path: home, Searched: tried}
		}
		if impDir != libDir {
			env.LibDirs = append(env.LibDirs, impDir)
		}
	}

	include := filepath.Join(home, "include")
	native := filepath.Join(include, profile.HeaderSubdir())
	var missing []string
	if !isFile(filepath.Join(include, "jni.h")) {
		missing = append(missing, filepath.Join(include, "jni.h"))
	}
	if !isFile(filepath.Join(native, "jni_md.h")) {
		missing = append(missing, filepath.Join(native, "jni_md.h"))
	}
	if len(missing) > 0 {
		return nil, &errs.EnvironmentError{Kind: errs.ErrHeadersMissing, Path: home, Searched: missing}
	}
	env.IncludeDirs = []string{include, native}
	return env, nil
}

func (l *Locator) findHome(target platform.Target, profile platform.Profile, searched *[]string) (home, source string, err error) {
	if l.Override != "" {
		if isDir(l.Override) {
			return l.Override, "override", nil
		}
		*searched = append(*searched, fmt.Sprintf("override %s (not a directory)", l.Override))
		return "", "", &errs.EnvironmentError{Kind: errs.ErrJavaNotFound, Searched: *searched}
	}

	for _, c := range l.envCandidates(target, profile) {
		switch {
		case c.home == "":
			*searched = append(*searched, c.source+" (unset)")
		case !isDir(c.home):
			*searched = append(*searched, fmt.Sprintf("%s=%s (not a directory)", c.source, c.home))
		default:
			return c.home, c.source, nil
		}
	}

	patterns := l.WellKnown
	if patterns == nil {
		patterns = profile.WellKnownHomes(target.Arch)
	}
	for _, pattern := range patterns {
		*searched = append(*searched, pattern)
		matches, _ := filepath.Glob(pattern)
		// Newer installs sort later; prefer them.
		sort.Sort(sort.Reverse(sort.StringSlice(matches)))
		for _, m := range matches {
			if isDir(m) {
				return m, "well-known " + pattern, nil
			}
		}
	}
	return "", "", &errs.EnvironmentError{Kind: errs.ErrJavaNotFound, Searched: *searched}
}

// envCandidates returns the primary variable followed by the variables
// qualified for target.Arch. Variables qualified for other architectures
// are never consulted.
func (l *Locator) envCandidates(target platform.Target, profile platform.Profile) []candidate {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	environ := l.Environ
	if environ == nil {
		environ = os.Environ
	}

	list := []candidate{{source: "$" + HomeVar, home: getenv(HomeVar)}}
	for _, name := range profile.JavaHomeVars(target.Arch) {
		list = append(list, candidate{source: "$" + name, home: getenv(name)})
	}

	suffix := profile.JavaHomeSuffix(target.Arch)
	if suffix == "" {
		return list
	}
	type versioned struct {
		candidate
		major int
	}
	var ci []versioned
	for _, kv := range environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		major, ok := ciMajor(name, suffix)
		if !ok {
			continue
		}
		ci = append(ci, versioned{candidate{source: "$" + name, home: value}, major})
	}
	sort.Slice(ci, func(i, j int) bool {
		if ci[i].major != ci[j].major {
			return ci[i].major > ci[j].major
		}
		return ci[i].source < ci[j].source
	})
	for _, v := range ci {
		list = append(list, v.candidate)
	}
	return list
}

// ciMajor parses JAVA_HOME_<major>_<suffix>, ignoring the suffix's case.
func ciMajor(name, suffix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, HomeVar+"_")
	if !ok {
		return 0, false
	}
	num, arch, ok := strings.Cut(rest, "_")
	if !ok || !strings.EqualFold(arch, suffix) {
		return 0, false
	}
	major, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return major, true
}

// firstWith returns the first home-relative dir that contains file, along
// with every path it checked.
func firstWith(home string, dirs []string, file string) (string, []string) {
	var tried []string
	for _, d := range dirs {
		p := filepath.Join(home, d, file)
		tried = append(tried, p)
		if isFile(p) {
			return filepath.Join(home, d), tried
		}
	}
	return "", tried
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
