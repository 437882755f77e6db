// Package libmode decides whether libhdfs is built from vendored source or
// taken from an existing installation.
package libmode

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
	"github.com/qiniu/x/log"
)

// ArchiveExt is the extension of packed vendored source trees.
const ArchiveExt = ".tar.xz"

// Mode is either Vendored or System.
type Mode interface {
	mode()
	String() string
}

// Vendored builds libhdfs from the source bundled for Version. SourceRoot
// is a directory or a .tar.xz archive of one. Version is the source line
// actually compiled, which can differ from the requested ABI line (see
// Resolver.Resolve).
type Vendored struct {
	SourceRoot string
	Version    version.Tag
	ABI        version.Tag
}

// System links against an installed libhdfs found in InstallRoot.
type System struct {
	InstallRoot string
	Source      string
}

func (Vendored) mode() {}
func (System) mode()   {}

func (v Vendored) String() string {
	return fmt.Sprintf("vendored(%s, %s)", v.Version, v.SourceRoot)
}

func (s System) String() string {
	return fmt.Sprintf("system(%s)", s.InstallRoot)
}

// Resolver holds the inputs that decide the library mode. Resolve has no
// side effects, so equal inputs always give equal modes.
type Resolver struct {
	// VendorDir contains one hdfs_X_Y directory or archive per version.
	VendorDir string
	Target    platform.Target
	// Override is an explicit libhdfs directory (HDFS_LIB_DIR). When set,
	// nothing else is probed.
	Override string
	// HadoopHome is $HADOOP_HOME; its lib/native is probed when Override is unset.
	HadoopHome string
	Static     bool
	// Prefixes replaces the profile's conventional prefixes when non-nil.
	Prefixes []string
}

// Resolve picks the mode for tag. A set Override is the only place searched
// and must hold a client library. When vendored is requested together with
// a usable Override, the override wins and a warning is logged.
func (r *Resolver) Resolve(tag version.Tag, vendored bool) (Mode, error) {
	if err := r.Target.Validate(); err != nil {
		return nil, err
	}
	if r.Override != "" {
		m, err := r.override()
		if err != nil {
			return nil, err
		}
		if vendored {
			log.Warnf("libmode: both vendored build and library override %s requested; using the override", r.Override)
		}
		return m, nil
	}
	if vendored {
		return r.vendored(tag)
	}
	return r.system()
}

func (r *Resolver) vendored(tag version.Tag) (Mode, error) {
	src := tag
	// 2.6 is the first line that builds on windows; its sources still
	// expose the older ABI.
	if r.Target.OS == "windows" && !tag.AtLeast(version.HDFS_2_6) {
		src = version.HDFS_2_6
	}
	dir := filepath.Join(r.VendorDir, string(src))
	archive := dir + ArchiveExt
	switch {
	case isDir(dir):
		return Vendored{SourceRoot: dir, Version: src, ABI: tag}, nil
	case isFile(archive):
		return Vendored{SourceRoot: archive, Version: src, ABI: tag}, nil
	}
	return nil, &errs.ConfigurationError{
		Kind:  errs.ErrMissingVendorSource,
		Flags: []string{string(tag), "vendored"},
		Msg:   fmt.Sprintf("neither %s nor %s exists", dir, archive),
	}
}

func (r *Resolver) override() (Mode, error) {
	libs := r.Target.Profile().ClientLibraries(r.Static)
	switch {
	case !isDir(r.Override):
		return nil, &errs.EnvironmentError{Kind: errs.ErrSystemLibraryNotFound, Searched: []string{r.Override + " (missing)"}}
	case !containsAny(r.Override, libs):
		return nil, &errs.EnvironmentError{
			Kind:     errs.ErrSystemLibraryNotFound,
			Searched: []string{fmt.Sprintf("%s (no %v)", r.Override, libs)},
		}
	}
	return System{InstallRoot: r.Override, Source: "override"}, nil
}

func (r *Resolver) system() (Mode, error) {
	profile := r.Target.Profile()
	libs := profile.ClientLibraries(r.Static)

	type probe struct{ source, dir string }
	var probes []probe
	if r.HadoopHome != "" {
		probes = append(probes, probe{"$HADOOP_HOME", filepath.Join(r.HadoopHome, "lib", "native")})
	}
	prefixes := r.Prefixes
	if prefixes == nil {
		prefixes = profile.HadoopPrefixes()
	}
	for _, p := range prefixes {
		probes = append(probes, probe{"prefix", p})
	}

	var searched []string
	for _, p := range probes {
		if !isDir(p.dir) {
			searched = append(searched, p.dir+" (missing)")
			continue
		}
		if !containsAny(p.dir, libs) {
			searched = append(searched, fmt.Sprintf("%s (no %v)", p.dir, libs))
			continue
		}
		return System{InstallRoot: p.dir, Source: p.source}, nil
	}
	return nil, &errs.EnvironmentError{Kind: errs.ErrSystemLibraryNotFound, Searched: searched}
}

func containsAny(dir string, names []string) bool {
	for _, n := range names {
		if isFile(filepath.Join(dir, n)) {
			return true
		}
	}
	return false
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func isFile(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}
