package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command with args after resetting every flag left
// over from a previous run.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if !strings.HasSuffix(f.Value.Type(), "Slice") {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, k := range []string{"HDFS_LIB_DIR", "HDFS_STATIC", "HADOOP_HOME", "HDFS_SYS_FEATURES", "HDFS_SYS_SKIP_LINK", "HDFS_SYS_VENDORED"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLogLevel(t *testing.T) {
	tests := map[string]int{
		"debug": log.Ldebug,
		"info":  log.Linfo,
		"warn":  log.Lwarn,
		"error": log.Lerror,
		"":      log.Linfo,
	}
	for in, want := range tests {
		if got := logLevel(in); got != want {
			t.Errorf("logLevel(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestVendorList(t *testing.T) {
	isolate(t)
	out, err := execute(t, "vendor", "list")
	if err != nil {
		t.Fatalf("vendor list failed: %v", err)
	}
	lines := strings.Fields(out)
	if len(lines) != 13 || lines[0] != "hdfs_2_2" || lines[12] != "hdfs_3_3" {
		t.Errorf("vendor list = %q", out)
	}
}

func TestResolveWithoutFeature(t *testing.T) {
	isolate(t)
	_, err := execute(t, "resolve")
	if err == nil || !strings.Contains(err.Error(), "no version selected") {
		t.Fatalf("expected no-version error, got %v", err)
	}
}

func TestVendorFetchUnknownVersion(t *testing.T) {
	isolate(t)
	_, err := execute(t, "vendor", "fetch", "hdfs_9_9")
	if err == nil || !strings.Contains(err.Error(), "hdfs_9_9") {
		t.Fatalf("expected unknown version error, got %v", err)
	}
}

func TestLinkSkipped(t *testing.T) {
	isolate(t)
	t.Setenv("HDFS_SYS_SKIP_LINK", "true")
	out, err := execute(t, "link")
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if out != "" {
		t.Errorf("skipped link printed %q", out)
	}
}

func TestLinkSystemLibrary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("fixture uses linux library names")
	}
	isolate(t)
	root := t.TempDir()
	native := filepath.Join(root, "hadoop", "lib", "native")
	touch(t, filepath.Join(native, "libhdfs.so"))
	home := filepath.Join(root, "jdk")
	touch(t, filepath.Join(home, "lib", "server", "libjvm.so"))
	touch(t, filepath.Join(home, "include", "jni.h"))
	touch(t, filepath.Join(home, "include", "linux", "jni_md.h"))
	t.Setenv("HDFS_SYS_FEATURES", "hdfs_3_3")

	out, err := execute(t, "link", "--lib-dir", native, "--java-home", home, "--format", "cargo")
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	for _, want := range []string{
		"cargo:rustc-link-search=native=" + native,
		"cargo:rustc-link-lib=dylib=hdfs",
		"cargo:rustc-link-lib=dylib=jvm",
		"cargo:metadata=JVM_PATH=" + filepath.Join(home, "lib", "server"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "link", "--lib-dir", native, "--java-home", home)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if !strings.Contains(out, "CGO_LDFLAGS=") || !strings.Contains(out, "-lhdfs -ljvm") {
		t.Errorf("cgo output = %q", out)
	}
	if !strings.Contains(out, "-I"+filepath.Join(home, "include", "linux")) {
		t.Errorf("cgo output lacks JNI headers: %q", out)
	}
}

func TestLinkMissingLibDirDoesNotFallBack(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("fixture uses linux library names")
	}
	isolate(t)
	root := t.TempDir()
	hadoop := filepath.Join(root, "hadoop")
	touch(t, filepath.Join(hadoop, "lib", "native", "libhdfs.so"))
	home := filepath.Join(root, "jdk")
	touch(t, filepath.Join(home, "lib", "server", "libjvm.so"))
	touch(t, filepath.Join(home, "include", "jni.h"))
	touch(t, filepath.Join(home, "include", "linux", "jni_md.h"))
	t.Setenv("HDFS_SYS_FEATURES", "hdfs_3_3")
	t.Setenv("HADOOP_HOME", hadoop)

	typo := filepath.Join(root, "hadop", "lib", "native")
	out, err := execute(t, "link", "--lib-dir", typo, "--java-home", home, "--vendored")
	if err == nil {
		t.Fatalf("link succeeded with a missing lib dir:\n%s", out)
	}
	if !strings.Contains(err.Error(), "system libhdfs not found") || !strings.Contains(err.Error(), typo) {
		t.Errorf("error = %v", err)
	}
}

func TestConfigDefaultsBeforeLoad(t *testing.T) {
	if cfg == nil || cfg.Fetch.Repo == "" || cfg.Fetch.Timeout <= 0 {
		t.Fatalf("cfg = %+v", cfg)
	}
}
