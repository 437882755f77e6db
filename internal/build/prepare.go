package build

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/qiniu/x/log"
	"github.com/ulikunitz/xz"
)

// prepareSource materializes src (a directory or a .tar.xz archive) into
// dst and returns the directory holding the libhdfs sources. dst must not
// exist.
func prepareSource(src, dst string) (string, error) {
	if strings.HasSuffix(src, ".tar.xz") {
		if err := extractTarXz(src, dst); err != nil {
			return "", fmt.Errorf("extract %s: %w", src, err)
		}
		return soleSubdir(dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	return dst, nil
}

// soleSubdir descends into dir while it holds exactly one directory and
// nothing else, which is how release archives wrap their contents.
func soleSubdir(dir string) (string, error) {
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", err
		}
		if len(entries) != 1 || !entries[0].IsDir() {
			return dir, nil
		}
		dir = filepath.Join(dir, entries[0].Name())
	}
}

func extractTarXz(archive, dst string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating xz reader: %w", err)
	}
	tr := tar.NewReader(xr)

	files := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name := strings.TrimPrefix(header.Name, "./")
		if name == "" || name == "." {
			continue
		}
		target := filepath.Join(dst, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes the destination", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777|0o600)
			if err != nil {
				return err
			}
			_, err = io.Copy(out, tr)
			out.Close()
			if err != nil {
				return fmt.Errorf("writing %s: %w", target, err)
			}
			files++
		default:
			log.Debugf("build: skipping tar entry %s (type %c)", header.Name, header.Typeflag)
		}
	}
	log.Debugf("build: extracted %d files from %s", files, archive)
	return nil
}

// fingerprint hashes the vendored source together with everything else that
// changes the produced artifact. A directory is hashed file by file in
// lexical order; an archive is hashed as a whole.
func fingerprint(src string, extra ...string) (string, error) {
	h := xxhash.New()
	fi, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			h.WriteString(filepath.ToSlash(rel))
			h.Write([]byte{0})
			return hashFile(h, path)
		})
	} else {
		err = hashFile(h, src)
	}
	if err != nil {
		return "", err
	}
	for _, e := range extra {
		h.Write([]byte{0})
		h.WriteString(e)
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

func hashFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
