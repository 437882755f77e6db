package env

import (
	"os"
	"path/filepath"
)

// WorkDir returns the per-user directory hdfs-sys keeps its state in.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".hdfs-sys"), nil
}

// BuildDir returns the directory holding vendored build outputs, creating
// it if needed.
func BuildDir() (string, error) {
	return subdir("build")
}

// SourceDir returns the directory `vendor fetch` populates with one
// hdfs_X_Y tree per version, creating it if needed.
func SourceDir() (string, error) {
	return subdir("sources")
}

func subdir(name string) (string, error) {
	workDir, err := WorkDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(workDir, name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
