package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Work directory layout:
//
//	workDir/
//	  <hdfs_X_Y>-<triple>-<static|shared>/   # one per (version, target, kind)
//	    .lock
//	    .cache.json                         # written last, after verification
//	    src/                                # prepared source tree
//	    build/                              # tool build dir
//	    install/lib/                        # artifacts
const (
	cacheFile = ".cache.json"
	lockFile  = ".lock"
)

// fileStamp pins an artifact file to the state it had when the build
// completed.
type fileStamp struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// buildCache records one completed, verified build. Its presence is the
// completion marker: it is removed before a build starts and written only
// after the artifact has been checked.
type buildCache struct {
	Fingerprint string      `json:"fingerprint"`
	Tool        string      `json:"tool"`
	ToolVersion string      `json:"tool_version"`
	BuildTime   time.Time   `json:"build_time"`
	Files       []fileStamp `json:"files"`
}

func loadBuildCache(path string) (*buildCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveBuildCache writes through a temp file so a crash never leaves a
// truncated record behind.
func saveBuildCache(path string, cache *buildCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// stamp records the current size and mod time of files in dir.
func stamp(dir string, files []string) ([]fileStamp, error) {
	stamps := make([]fileStamp, 0, len(files))
	for _, name := range files {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, fileStamp{Name: name, Size: fi.Size(), ModTime: fi.ModTime()})
	}
	return stamps, nil
}

// valid reports whether c describes a reusable build of fingerprint fp
// whose files in dir are unchanged since the build completed.
func (c *buildCache) valid(fp, dir string) bool {
	if c.Fingerprint != fp || len(c.Files) == 0 {
		return false
	}
	for _, f := range c.Files {
		fi, err := os.Stat(filepath.Join(dir, f.Name))
		if err != nil || fi.IsDir() {
			return false
		}
		if fi.Size() != f.Size || !fi.ModTime().Equal(f.ModTime) {
			return false
		}
	}
	return true
}

func (c *buildCache) names() []string {
	names := make([]string, len(c.Files))
	for i, f := range c.Files {
		names[i] = f.Name
	}
	return names
}
