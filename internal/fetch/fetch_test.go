package fetch

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/goplus/hdfs-sys/internal/libmode"
	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
)

// fakeVCS serves a fixed tag list and materializes a libhdfs tree on Sync.
type fakeVCS struct {
	tags     []string
	synced   string
	patterns []string
}

func (f *fakeVCS) Tags(_ context.Context, _ string, patterns ...string) ([]string, error) {
	f.patterns = patterns
	return f.tags, nil
}

func (f *fakeVCS) Sync(_ context.Context, _, ref, dir string, paths ...string) error {
	f.synced = ref
	for _, p := range paths {
		src := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Join(src, "os", "posix"), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(src, "hdfs.c"), []byte(ref), 0o644); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(src, "os", "posix", "thread.c"), nil, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func TestReleaseTag(t *testing.T) {
	tags := []string{
		"rel/release-3.3.0", "rel/release-3.3.10", "rel/release-3.3.6",
		"rel/release-3.3.5-RC1", "rel/release-3.2.4", "release-3.3.99",
	}
	got, err := ReleaseTag(tags, version.HDFS_3_3)
	if err != nil {
		t.Fatalf("ReleaseTag failed: %v", err)
	}
	if got != "rel/release-3.3.10" {
		t.Errorf("ReleaseTag = %q, want rel/release-3.3.10", got)
	}
	if _, err := ReleaseTag(tags, version.HDFS_2_10); err == nil {
		t.Error("expected error when no release matches")
	}
}

func TestSourcePath(t *testing.T) {
	if p := SourcePath(version.HDFS_2_7); p != "hadoop-hdfs-project/hadoop-hdfs/src/main/native/libhdfs" {
		t.Errorf("SourcePath(2.7) = %s", p)
	}
	if p := SourcePath(version.HDFS_2_8); p != "hadoop-hdfs-project/hadoop-hdfs-native-client/src/main/native/libhdfs" {
		t.Errorf("SourcePath(2.8) = %s", p)
	}
}

func TestFetchDirectory(t *testing.T) {
	vendor := t.TempDir()
	fake := &fakeVCS{tags: []string{"rel/release-3.3.5", "rel/release-3.3.6"}}
	f := &Fetcher{VCS: fake, Remote: "hadoop", VendorDir: vendor}

	res, err := f.Fetch(context.Background(), version.HDFS_3_3)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if fake.synced != "rel/release-3.3.6" {
		t.Errorf("synced %q", fake.synced)
	}
	if len(fake.patterns) != 1 || fake.patterns[0] != "rel/release-3.3.*" {
		t.Errorf("patterns = %v", fake.patterns)
	}
	data, err := os.ReadFile(filepath.Join(vendor, "hdfs_3_3", "hdfs.c"))
	if err != nil || string(data) != "rel/release-3.3.6" {
		t.Errorf("vendored hdfs.c = %q, %v", data, err)
	}
	if res.Path != filepath.Join(vendor, "hdfs_3_3") {
		t.Errorf("Path = %s", res.Path)
	}

	// The fetched tree is what the vendored resolver looks for.
	r := &libmode.Resolver{VendorDir: vendor, Target: platform.Target{OS: "linux", Arch: "amd64"}}
	m, err := r.Resolve(version.HDFS_3_3, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.(libmode.Vendored).SourceRoot != res.Path {
		t.Errorf("resolved %v", m)
	}
}

func TestFetchArchive(t *testing.T) {
	vendor := t.TempDir()
	fake := &fakeVCS{tags: []string{"rel/release-2.10.2"}}
	f := &Fetcher{VCS: fake, Remote: "hadoop", VendorDir: vendor, Archive: true}

	if err := os.MkdirAll(filepath.Join(vendor, "hdfs_2_10"), 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := f.Fetch(context.Background(), version.HDFS_2_10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Path != filepath.Join(vendor, "hdfs_2_10.tar.xz") {
		t.Errorf("Path = %s", res.Path)
	}
	if _, err := os.Stat(filepath.Join(vendor, "hdfs_2_10")); !os.IsNotExist(err) {
		t.Error("stale directory kept next to the archive")
	}

	names := archiveNames(t, res.Path)
	if !names["hdfs_2_10/hdfs.c"] || !names["hdfs_2_10/os/posix/thread.c"] {
		t.Errorf("archive entries = %v", names)
	}

	r := &libmode.Resolver{VendorDir: vendor, Target: platform.Target{OS: "linux", Arch: "amd64"}}
	m, err := r.Resolve(version.HDFS_2_10, true)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.(libmode.Vendored).SourceRoot != res.Path {
		t.Errorf("resolved %v", m)
	}
}

func archiveNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	xr, err := xz.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(xr)
	names := map[string]bool{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names
		}
		if err != nil {
			t.Fatal(err)
		}
		names[hdr.Name] = true
	}
}
