// Package linkplan turns resolved library locations into the ordered search
// paths, library names and runtime paths needed to link and load libhdfs.
package linkplan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/java"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/qiniu/x/log"
	"gopkg.in/yaml.v3"
)

// Kind is how a library is linked.
type Kind string

const (
	Static Kind = "static"
	Dylib  Kind = "dylib"
)

// MetaJVMPath names the metadata entry holding the JVM library directory.
const MetaJVMPath = "JVM_PATH"

// Library is one library to link.
type Library struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
	// File is the file found for Name in its search directory.
	File string `json:"file" yaml:"file"`
}

// Plan is the result of Emit. It is plain data.
type Plan struct {
	SearchPaths  []string          `json:"search_paths" yaml:"search_paths"`
	Libraries    []Library         `json:"libraries" yaml:"libraries"`
	RuntimePaths []string          `json:"runtime_paths,omitempty" yaml:"runtime_paths,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Input is what Emit needs from earlier stages.
type Input struct {
	// LibDir holds libhdfs, either a build artifact or a system install.
	LibDir string
	Static bool

	Java *java.Environment
	// JavaErr is a Java lookup failure deferred by a vendored build; Emit
	// reports it before doing anything else.
	JavaErr error

	Target platform.Target
}

// Emit builds the link plan: libhdfs first, then the JVM, then runtime
// search paths for both where the target supports them.
func Emit(in Input) (*Plan, error) {
	target := in.Target
	if target.OS == "" {
		target = platform.HostTarget()
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if in.JavaErr != nil {
		return nil, in.JavaErr
	}
	if in.Java == nil || len(in.Java.LibDirs) == 0 {
		return nil, &errs.EnvironmentError{Kind: errs.ErrJavaNotFound}
	}
	profile := target.Profile()
	p := &Plan{Metadata: map[string]string{}}

	hdfsFile, err := find(in.LibDir, profile.ClientLibraries(in.Static))
	if err != nil {
		return nil, err
	}
	kind := Dylib
	if in.Static {
		kind = Static
	}
	p.addSearch(in.LibDir)
	p.Libraries = append(p.Libraries, Library{Name: "hdfs", Kind: kind, File: hdfsFile})

	jvmDir := in.Java.JVMDir()
	jvmName := profile.JVMLibrary()
	// Linking on windows goes through the import library, which may live in
	// a different directory than jvm.dll.
	if imp := profile.JVMImportLibrary(); imp != "" {
		jvmName = imp
	}
	var jvmFile string
	for _, dir := range in.Java.LibDirs {
		if !isDir(dir) {
			return nil, &errs.LinkError{Kind: errs.ErrSearchPathInvalid, Path: dir}
		}
		p.addSearch(dir)
		if jvmFile == "" && isFile(filepath.Join(dir, jvmName)) {
			jvmFile = filepath.Join(dir, jvmName)
		}
	}
	if jvmFile == "" {
		return nil, &errs.LinkError{Kind: errs.ErrLibraryFileNotFound, Path: jvmDir, Library: jvmName}
	}
	p.Libraries = append(p.Libraries, Library{Name: "jvm", Kind: Dylib, File: jvmFile})
	p.Metadata[MetaJVMPath] = jvmDir

	if profile.SupportsRPath() {
		if !in.Static {
			p.RuntimePaths = appendUnique(p.RuntimePaths, in.LibDir)
		}
		p.RuntimePaths = appendUnique(p.RuntimePaths, jvmDir)
	}
	log.Debugf("linkplan: search %v, libraries %v, rpath %v", p.SearchPaths, p.Libraries, p.RuntimePaths)
	return p, nil
}

// find returns the first of names present in dir.
func find(dir string, names []string) (string, error) {
	if !isDir(dir) {
		return "", &errs.LinkError{Kind: errs.ErrSearchPathInvalid, Path: dir}
	}
	for _, n := range names {
		if p := filepath.Join(dir, n); isFile(p) {
			return p, nil
		}
	}
	return "", &errs.LinkError{Kind: errs.ErrLibraryFileNotFound, Path: dir, Library: strings.Join(names, " or ")}
}

func (p *Plan) addSearch(dir string) {
	p.SearchPaths = appendUnique(p.SearchPaths, dir)
}

func appendUnique(list []string, dir string) []string {
	clean := filepath.Clean(dir)
	for _, d := range list {
		if filepath.Clean(d) == clean {
			return list
		}
	}
	return append(list, dir)
}

// LDFlags renders the plan as linker flags. Static libraries are passed by
// path so the linker cannot pick a shared library of the same name.
func (p *Plan) LDFlags() []string {
	var flags []string
	for _, dir := range p.SearchPaths {
		flags = append(flags, "-L"+filepath.ToSlash(dir))
	}
	for _, lib := range p.Libraries {
		if lib.Kind == Static && lib.File != "" {
			flags = append(flags, filepath.ToSlash(lib.File))
			continue
		}
		flags = append(flags, "-l"+lib.Name)
	}
	for _, dir := range p.RuntimePaths {
		flags = append(flags, "-Wl,-rpath,"+filepath.ToSlash(dir))
	}
	return flags
}

// CgoLDFLAGS is LDFlags in the form expected by CGO_LDFLAGS.
func (p *Plan) CgoLDFLAGS() string {
	return strings.Join(p.LDFlags(), " ")
}

// CgoCFLAGS renders include directories for CGO_CFLAGS.
func CgoCFLAGS(includeDirs []string) string {
	flags := make([]string, len(includeDirs))
	for i, dir := range includeDirs {
		flags[i] = "-I" + filepath.ToSlash(dir)
	}
	return strings.Join(flags, " ")
}

// Directives renders the plan as cargo build-script directives.
func (p *Plan) Directives() []string {
	var out []string
	for _, dir := range p.SearchPaths {
		out = append(out, "cargo:rustc-link-search=native="+dir)
	}
	for _, lib := range p.Libraries {
		out = append(out, fmt.Sprintf("cargo:rustc-link-lib=%s=%s", lib.Kind, lib.Name))
	}
	for _, dir := range p.RuntimePaths {
		out = append(out, "cargo:rustc-link-arg=-Wl,-rpath,"+dir)
	}
	keys := make([]string, 0, len(p.Metadata))
	for k := range p.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, fmt.Sprintf("cargo:metadata=%s=%s", k, p.Metadata[k]))
	}
	return out
}

// YAML encodes the plan as YAML.
func (p *Plan) YAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// JSON encodes the plan as indented JSON.
func (p *Plan) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// LibraryNames returns the library names in link order.
func (p *Plan) LibraryNames() []string {
	names := make([]string, len(p.Libraries))
	for i, l := range p.Libraries {
		names[i] = l.Name
	}
	return names
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
