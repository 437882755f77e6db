// Package platform describes the per-OS layout of Java installations and
// native libraries.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/goplus/hdfs-sys/internal/errs"
)

// Profile supplies everything that differs between operating systems when
// locating a JVM or a libhdfs installation. There is one implementation per
// supported OS.
type Profile interface {
	// OS returns the GOOS value this profile describes.
	OS() string

	// JVMLibrary is the file name of the JVM shared library.
	JVMLibrary() string
	// JVMImportLibrary is the link-time import library, if the platform
	// links against one instead of the shared library itself.
	JVMImportLibrary() string
	// VMDirs lists the directories, relative to a Java home, that may hold
	// the JVM library. JDK 9+ layouts come before JDK 8 "jre" layouts.
	VMDirs(arch string) []string
	// ImportLibDirs lists the directories, relative to a Java home, that may
	// hold JVMImportLibrary.
	ImportLibDirs() []string
	// HeaderSubdir names the include/ subdirectory holding jni_md.h.
	HeaderSubdir() string

	// JavaHomeVars lists architecture-qualified variables naming a Java home.
	JavaHomeVars(arch string) []string
	// JavaHomeSuffix is the arch suffix of CI-style JAVA_HOME_<N>_<SUFFIX> variables.
	JavaHomeSuffix(arch string) string
	// WellKnownHomes lists glob patterns of default JDK install locations.
	WellKnownHomes(arch string) []string

	// ClientLibraries lists acceptable libhdfs file names.
	ClientLibraries(static bool) []string
	// HadoopPrefixes lists conventional libhdfs installation directories.
	HadoopPrefixes() []string
	// SupportsRPath reports whether a runtime search path can be embedded.
	SupportsRPath() bool
}

var profiles = map[string]Profile{
	"linux":   linux{},
	"darwin":  darwin{},
	"windows": windows{},
}

var archs = map[string]bool{
	"amd64": true,
	"arm64": true,
}

// Target is the platform the final binary is built for.
type Target struct {
	OS   string `json:"os" yaml:"os"`
	Arch string `json:"arch" yaml:"arch"`
}

// HostTarget returns the target of the running process.
func HostTarget() Target {
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ParseTarget accepts "os/arch", "os-arch" or a target triple such as
// "aarch64-apple-darwin".
func ParseTarget(s string) (Target, error) {
	if s == "" {
		return HostTarget(), nil
	}
	if os, arch, ok := strings.Cut(s, "/"); ok {
		return checked(Target{OS: os, Arch: arch})
	}
	parts := strings.Split(s, "-")
	if len(parts) == 2 {
		return checked(Target{OS: parts[0], Arch: parts[1]})
	}
	var t Target
	switch parts[0] {
	case "x86_64":
		t.Arch = "amd64"
	case "aarch64", "arm64":
		t.Arch = "arm64"
	}
	switch {
	case strings.Contains(s, "linux"):
		t.OS = "linux"
	case strings.Contains(s, "darwin"), strings.Contains(s, "apple"):
		t.OS = "darwin"
	case strings.Contains(s, "windows"):
		t.OS = "windows"
	}
	if t.OS == "" || t.Arch == "" {
		return Target{}, &errs.ConfigurationError{Kind: errs.ErrUnsupportedTarget, Flags: []string{s}}
	}
	return checked(t)
}

func checked(t Target) (Target, error) {
	if err := t.Validate(); err != nil {
		return Target{}, err
	}
	return t, nil
}

// Validate reports whether t is a supported OS/arch pair.
func (t Target) Validate() error {
	if _, ok := profiles[t.OS]; !ok || !archs[t.Arch] {
		return &errs.ConfigurationError{Kind: errs.ErrUnsupportedTarget, Flags: []string{t.String()}}
	}
	return nil
}

// Profile returns the platform profile for t.OS. It panics on an
// unsupported OS; call Validate first for untrusted input.
func (t Target) Profile() Profile {
	p, ok := profiles[t.OS]
	if !ok {
		panic(fmt.Sprintf("platform: unsupported os %q", t.OS))
	}
	return p
}

func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// Triple returns the conventional target triple, e.g. x86_64-unknown-linux-gnu.
func (t Target) Triple() string {
	cpu := t.Arch
	switch t.Arch {
	case "amd64":
		cpu = "x86_64"
	case "arm64":
		cpu = "aarch64"
	}
	switch t.OS {
	case "linux":
		return cpu + "-unknown-linux-gnu"
	case "darwin":
		return cpu + "-apple-darwin"
	case "windows":
		return cpu + "-pc-windows-msvc"
	}
	return cpu + "-unknown-" + t.OS
}

// jreArch maps GOARCH to the directory name JDK 8 uses under jre/lib.
func jreArch(arch string) string {
	switch arch {
	case "arm64":
		return "aarch64"
	case "386":
		return "i386"
	}
	return arch
}
