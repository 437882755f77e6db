package cmake

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/goplus/hdfs-sys/pkgs/buildsys"
)

func TestConfigureArgs(t *testing.T) {
	c := New("/src", "/build", "/install")
	c.Generator("Ninja")
	c.BuildType("Release")
	c.Define("FOO", "BAR")
	c.DefineBool("ENABLE", true)
	c.DefineBool("DISABLE", false)

	got := strings.Join(c.ConfigureArgs("--fresh"), " ")
	want := "-S /src -B /build -G Ninja " +
		"-DCMAKE_BUILD_TYPE:STRING=Release -DCMAKE_INSTALL_PREFIX:STRING=/install " +
		"-DDISABLE:BOOL=OFF -DENABLE:BOOL=ON -DFOO:STRING=BAR --fresh"
	if got != want {
		t.Errorf("ConfigureArgs =\n%s\nwant\n%s", got, want)
	}
}

func TestParseVersion(t *testing.T) {
	out := []byte("cmake version 3.28.3\n\nCMake suite maintained and supported by Kitware (kitware.com/cmake).\n")
	v, err := parseVersion(out)
	if err != nil {
		t.Fatalf("parseVersion failed: %v", err)
	}
	if v != "3.28.3" {
		t.Errorf("version = %q", v)
	}
	if _, err := parseVersion([]byte("bash: cmake: command not found")); err == nil {
		t.Error("expected error for garbage output")
	}
}

func TestCrossDefines(t *testing.T) {
	other := "linux"
	if runtime.GOOS == "linux" {
		other = "windows"
	}
	defs := crossDefines(other, "arm64")
	if defs["CMAKE_SYSTEM_PROCESSOR"] != "aarch64" {
		t.Errorf("CMAKE_SYSTEM_PROCESSOR = %q", defs["CMAKE_SYSTEM_PROCESSOR"])
	}
	if defs["CMAKE_SYSTEM_NAME"] == "" {
		t.Error("CMAKE_SYSTEM_NAME not set for a foreign target")
	}
	host := crossDefines(runtime.GOOS, runtime.GOARCH)
	if _, ok := host["CMAKE_SYSTEM_NAME"]; ok {
		t.Error("CMAKE_SYSTEM_NAME set for the host target")
	}
}

// fakeCMake writes a shell script standing in for cmake.
func fakeCMake(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	p := filepath.Join(t.TempDir(), "cmake")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestToolRunCapturesFailure(t *testing.T) {
	bin := fakeCMake(t, "echo \"configuring $1 $2\"\nexit 3\n")
	tool := &Tool{Bin: bin}
	dir := t.TempDir()
	res, err := tool.Run(context.Background(), &buildsys.Invocation{
		SourceDir:  filepath.Join(dir, "src"),
		BuildDir:   filepath.Join(dir, "build"),
		InstallDir: filepath.Join(dir, "install"),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitStatus != 3 {
		t.Errorf("ExitStatus = %d, want 3", res.ExitStatus)
	}
	if !strings.Contains(string(res.Output), "configuring -S") {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestToolRunPassesEnv(t *testing.T) {
	bin := fakeCMake(t, "echo \"java=$JAVA_HOME\"\n")
	tool := &Tool{Bin: bin}
	dir := t.TempDir()
	var live strings.Builder
	res, err := tool.Run(context.Background(), &buildsys.Invocation{
		SourceDir:  filepath.Join(dir, "src"),
		BuildDir:   filepath.Join(dir, "build"),
		InstallDir: filepath.Join(dir, "install"),
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Env:        map[string]string{"JAVA_HOME": "/opt/java"},
		Stdout:     &live,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Success() {
		t.Fatalf("ExitStatus = %d", res.ExitStatus)
	}
	// configure, build and install each print once.
	if n := strings.Count(string(res.Output), "java=/opt/java"); n != 3 {
		t.Errorf("captured %d env lines, want 3: %q", n, res.Output)
	}
	if live.String() != string(res.Output) {
		t.Error("live output differs from captured output")
	}
}

func TestToolVersion(t *testing.T) {
	bin := fakeCMake(t, "echo 'cmake version 3.13.4'\n")
	v, err := (&Tool{Bin: bin}).Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v != "3.13.4" {
		t.Errorf("Version = %q", v)
	}
}

func TestMergeEnvOverrides(t *testing.T) {
	got := buildsys.MergeEnv([]string{"A=1", "B=2"}, map[string]string{"B": "3", "C": "4"})
	want := "A=1 B=3 C=4"
	if strings.Join(got, " ") != want {
		t.Errorf("MergeEnv = %v, want %s", got, want)
	}
}
