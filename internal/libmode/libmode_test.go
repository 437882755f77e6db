package libmode

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/hdfs-sys/internal/errs"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
)

var linuxAMD64 = platform.Target{OS: "linux", Arch: "amd64"}

func touch(t *testing.T, p string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveVendoredDir(t *testing.T) {
	vendor := t.TempDir()
	touch(t, filepath.Join(vendor, "hdfs_3_3", "hdfs.c"))

	r := &Resolver{VendorDir: vendor, Target: linuxAMD64}
	m, err := r.Resolve(version.HDFS_3_3, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	v, ok := m.(Vendored)
	if !ok {
		t.Fatalf("got %T, want Vendored", m)
	}
	if v.SourceRoot != filepath.Join(vendor, "hdfs_3_3") || v.Version != version.HDFS_3_3 {
		t.Errorf("got %+v", v)
	}
}

func TestResolveVendoredArchive(t *testing.T) {
	vendor := t.TempDir()
	touch(t, filepath.Join(vendor, "hdfs_2_10.tar.xz"))

	r := &Resolver{VendorDir: vendor, Target: linuxAMD64}
	m, err := r.Resolve(version.HDFS_2_10, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := m.(Vendored).SourceRoot; got != filepath.Join(vendor, "hdfs_2_10.tar.xz") {
		t.Errorf("SourceRoot = %s", got)
	}
}

func TestResolveVendoredWindowsUsesNewerSource(t *testing.T) {
	vendor := t.TempDir()
	touch(t, filepath.Join(vendor, "hdfs_2_6", "hdfs.c"))

	r := &Resolver{VendorDir: vendor, Target: platform.Target{OS: "windows", Arch: "amd64"}}
	m, err := r.Resolve(version.HDFS_2_2, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	v := m.(Vendored)
	if v.Version != version.HDFS_2_6 || v.ABI != version.HDFS_2_2 {
		t.Errorf("got %+v", v)
	}
}

func TestResolveMissingVendorSource(t *testing.T) {
	r := &Resolver{VendorDir: t.TempDir(), Target: linuxAMD64}
	_, err := r.Resolve(version.HDFS_3_3, true)
	if !errors.Is(err, errs.ErrMissingVendorSource) {
		t.Fatalf("got %v, want MissingVendorSource", err)
	}
}

func TestResolveSystemOrder(t *testing.T) {
	root := t.TempDir()
	override := filepath.Join(root, "override")
	hadoop := filepath.Join(root, "hadoop")
	prefix := filepath.Join(root, "prefix")
	touch(t, filepath.Join(hadoop, "lib", "native", "libhdfs.so"))
	touch(t, filepath.Join(prefix, "libhdfs.so"))

	r := &Resolver{Target: linuxAMD64, HadoopHome: hadoop, Prefixes: []string{prefix}}
	m, err := r.Resolve(version.HDFS_3_3, false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := m.(System); got.InstallRoot != filepath.Join(hadoop, "lib", "native") {
		t.Errorf("got %+v", got)
	}

	touch(t, filepath.Join(override, "libhdfs.so"))
	r.Override = override
	m, err = r.Resolve(version.HDFS_3_3, false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := m.(System); got.InstallRoot != override || got.Source != "override" {
		t.Errorf("got %+v", got)
	}
}

func TestResolveSystemSkipsDirWithoutLibrary(t *testing.T) {
	root := t.TempDir()
	empty := filepath.Join(root, "empty")
	os.MkdirAll(empty, 0o755)
	good := filepath.Join(root, "good")
	touch(t, filepath.Join(good, "libhdfs.a"))

	r := &Resolver{Target: linuxAMD64, Static: true, Prefixes: []string{empty, good}}
	m, err := r.Resolve(version.HDFS_2_7, false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := m.(System).InstallRoot; got != good {
		t.Errorf("InstallRoot = %s, want %s", got, good)
	}
}

func TestResolveSystemNotFound(t *testing.T) {
	r := &Resolver{Target: linuxAMD64, Prefixes: []string{filepath.Join(t.TempDir(), "nope")}}
	_, err := r.Resolve(version.HDFS_3_3, false)
	if !errors.Is(err, errs.ErrSystemLibraryNotFound) {
		t.Fatalf("got %v, want SystemLibraryNotFound", err)
	}
}

func TestResolveOverrideBeatsVendored(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "vendor", "hdfs_3_3", "hdfs.c"))
	touch(t, filepath.Join(root, "lib", "libhdfs.so"))

	r := &Resolver{VendorDir: filepath.Join(root, "vendor"), Target: linuxAMD64, Override: filepath.Join(root, "lib"), Prefixes: []string{}}
	m, err := r.Resolve(version.HDFS_3_3, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, ok := m.(System); !ok {
		t.Fatalf("got %T, want System", m)
	}
}

func TestResolveOverrideIsExclusive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "vendor", "hdfs_3_3", "hdfs.c"))
	touch(t, filepath.Join(root, "hadoop", "lib", "native", "libhdfs.so"))
	touch(t, filepath.Join(root, "prefix", "libhdfs.so"))
	touch(t, filepath.Join(root, "empty", "README"))

	for _, override := range []string{filepath.Join(root, "no-such-dir"), filepath.Join(root, "empty")} {
		for _, vendored := range []bool{false, true} {
			r := &Resolver{
				VendorDir:  filepath.Join(root, "vendor"),
				Target:     linuxAMD64,
				Override:   override,
				HadoopHome: filepath.Join(root, "hadoop"),
				Prefixes:   []string{filepath.Join(root, "prefix")},
			}
			m, err := r.Resolve(version.HDFS_3_3, vendored)
			if !errors.Is(err, errs.ErrSystemLibraryNotFound) {
				t.Fatalf("override %s, vendored=%v: got %v, %v; want SystemLibraryNotFound", override, vendored, m, err)
			}
			var env *errs.EnvironmentError
			if !errors.As(err, &env) {
				t.Fatalf("got %T, want *errs.EnvironmentError", err)
			}
			if len(env.Searched) != 1 || !strings.HasPrefix(env.Searched[0], override) {
				t.Errorf("override %s: searched = %v", override, env.Searched)
			}
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	vendor := t.TempDir()
	touch(t, filepath.Join(vendor, "hdfs_3_3", "hdfs.c"))
	r := &Resolver{VendorDir: vendor, Target: linuxAMD64}

	m1, err1 := r.Resolve(version.HDFS_3_3, true)
	m2, err2 := r.Resolve(version.HDFS_3_3, true)
	if err1 != nil || err2 != nil {
		t.Fatalf("Resolve failed: %v, %v", err1, err2)
	}
	if m1 != m2 {
		t.Errorf("Resolve not idempotent: %v != %v", m1, m2)
	}
}
