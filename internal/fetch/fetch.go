// Package fetch populates the vendor directory with libhdfs sources taken
// from Apache Hadoop release tags.
package fetch

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"

	"github.com/goplus/hdfs-sys/internal/build/lockedfile"
	"github.com/goplus/hdfs-sys/internal/libmode"
	"github.com/goplus/hdfs-sys/internal/vcs"
	"github.com/goplus/hdfs-sys/internal/version"
	"github.com/goplus/hdfs-sys/pkgs/gnu"
	"github.com/qiniu/x/log"
)

const tagPrefix = "rel/release-"

// SourcePath returns where libhdfs lives inside a Hadoop checkout of v. It
// moved to the native client module in 2.8.
func SourcePath(v version.Tag) string {
	if v.AtLeast(version.HDFS_2_8) {
		return "hadoop-hdfs-project/hadoop-hdfs-native-client/src/main/native/libhdfs"
	}
	return "hadoop-hdfs-project/hadoop-hdfs/src/main/native/libhdfs"
}

// ReleaseTag picks the newest patch release of v from tags.
func ReleaseTag(tags []string, v version.Tag) (string, error) {
	prefix := tagPrefix + v.String() + "."
	var patches []string
	for _, t := range tags {
		rest, ok := strings.CutPrefix(t, prefix)
		if ok && isNumeric(rest) {
			patches = append(patches, rest)
		}
	}
	if len(patches) == 0 {
		return "", fmt.Errorf("no %s* release tag for %s", prefix, v)
	}
	return prefix + gnu.Latest(patches), nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

// Fetcher copies libhdfs sources out of a Hadoop git remote.
type Fetcher struct {
	VCS    vcs.VCS
	Remote string
	// VendorDir receives one hdfs_X_Y directory, or archive, per version.
	VendorDir string
	// CheckoutDir keeps the sparse checkouts between runs; it defaults to
	// VendorDir/.checkouts.
	CheckoutDir string
	// Archive stores the sources as hdfs_X_Y.tar.xz instead of a directory.
	Archive bool
}

// Result describes one fetched version.
type Result struct {
	Version version.Tag
	Ref     string
	Path    string
}

// Fetch resolves the latest release of v and places its libhdfs sources in
// the vendor directory, replacing any previous copy.
func (f *Fetcher) Fetch(ctx context.Context, v version.Tag) (*Result, error) {
	if err := os.MkdirAll(f.VendorDir, 0o755); err != nil {
		return nil, err
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(f.VendorDir, ".fetch.lock")).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tags, err := f.VCS.Tags(ctx, f.Remote, tagPrefix+v.String()+".*")
	if err != nil {
		return nil, err
	}
	ref, err := ReleaseTag(tags, v)
	if err != nil {
		return nil, err
	}

	checkouts := f.CheckoutDir
	if checkouts == "" {
		checkouts = filepath.Join(f.VendorDir, ".checkouts")
	}
	checkout := filepath.Join(checkouts, string(v))
	sub := SourcePath(v)
	log.Infof("fetch: %s %s from %s", v, ref, f.Remote)
	if err := f.VCS.Sync(ctx, f.Remote, ref, checkout, sub+"/"); err != nil {
		return nil, err
	}
	src := filepath.Join(checkout, filepath.FromSlash(sub))
	if fi, err := os.Stat(filepath.Join(src, "hdfs.c")); err != nil || fi.IsDir() {
		return nil, fmt.Errorf("%s at %s has no hdfs.c", sub, ref)
	}

	dir := filepath.Join(f.VendorDir, string(v))
	archive := dir + libmode.ArchiveExt
	for _, p := range []string{dir, archive} {
		if err := os.RemoveAll(p); err != nil {
			return nil, err
		}
	}
	res := &Result{Version: v, Ref: ref, Path: dir}
	if f.Archive {
		res.Path = archive
		n, err := writeTarXz(archive, src, string(v))
		if err != nil {
			os.Remove(archive)
			return nil, err
		}
		log.Infof("fetch: wrote %s (%s)", archive, humanize.Bytes(uint64(n)))
		return res, nil
	}
	if err := os.CopyFS(dir, os.DirFS(src)); err != nil {
		return nil, err
	}
	log.Infof("fetch: wrote %s", dir)
	return res, nil
}

// writeTarXz packs src under the top-level directory root and returns the
// archive size.
func writeTarXz(path, src, root string) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	xw, err := xz.NewWriter(f)
	if err != nil {
		return 0, fmt.Errorf("creating xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		if !fi.Mode().IsRegular() && !fi.IsDir() {
			return nil
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(root, rel))
		if fi.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		return 0, err
	}
	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := xw.Close(); err != nil {
		return 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
