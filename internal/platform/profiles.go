package platform

import "path/filepath"

type linux struct{}

func (linux) OS() string               { return "linux" }
func (linux) JVMLibrary() string       { return "libjvm.so" }
func (linux) JVMImportLibrary() string { return "" }
func (linux) ImportLibDirs() []string  { return nil }
func (linux) HeaderSubdir() string     { return "linux" }
func (linux) SupportsRPath() bool      { return true }

func (linux) VMDirs(arch string) []string {
	ja := jreArch(arch)
	return []string{
		filepath.Join("lib", "server"),
		filepath.Join("lib", "client"),
		filepath.Join("jre", "lib", ja, "server"),
		filepath.Join("jre", "lib", ja, "client"),
		filepath.Join("lib", ja, "server"),
	}
}

func (linux) JavaHomeVars(arch string) []string {
	switch arch {
	case "amd64":
		return []string{"JAVA_HOME_X64", "JAVA_HOME_AMD64"}
	case "arm64":
		return []string{"JAVA_HOME_AARCH64", "JAVA_HOME_ARM64"}
	}
	return nil
}

func (linux) JavaHomeSuffix(arch string) string { return ciSuffix(arch) }

func (linux) WellKnownHomes(arch string) []string {
	deb := arch // Debian package arch names match GOARCH for amd64/arm64.
	return []string{
		"/usr/lib/jvm/default-java",
		"/usr/lib/jvm/java-*-openjdk-" + deb,
		"/usr/lib/jvm/java-*-openjdk",
		"/usr/lib/jvm/java",
		"/usr/lib/jvm/temurin-*-jdk-" + deb,
		"/usr/java/latest",
		"/opt/java/openjdk",
	}
}

func (linux) ClientLibraries(static bool) []string {
	if static {
		return []string{"libhdfs.a"}
	}
	return []string{"libhdfs.so"}
}

func (linux) HadoopPrefixes() []string {
	return []string{
		"/usr/local/hadoop/lib/native",
		"/opt/hadoop/lib/native",
		"/usr/lib/hadoop/lib/native",
	}
}

type darwin struct{}

func (darwin) OS() string               { return "darwin" }
func (darwin) JVMLibrary() string       { return "libjvm.dylib" }
func (darwin) JVMImportLibrary() string { return "" }
func (darwin) ImportLibDirs() []string  { return nil }
func (darwin) HeaderSubdir() string     { return "darwin" }
func (darwin) SupportsRPath() bool      { return true }

func (darwin) VMDirs(arch string) []string {
	return []string{
		filepath.Join("lib", "server"),
		filepath.Join("lib", "client"),
		filepath.Join("jre", "lib", "server"),
		filepath.Join("jre", "lib", "client"),
	}
}

func (darwin) JavaHomeVars(arch string) []string {
	switch arch {
	case "amd64":
		return []string{"JAVA_HOME_X64", "JAVA_HOME_AMD64"}
	case "arm64":
		return []string{"JAVA_HOME_ARM64", "JAVA_HOME_AARCH64"}
	}
	return nil
}

func (darwin) JavaHomeSuffix(arch string) string { return ciSuffix(arch) }

func (darwin) WellKnownHomes(arch string) []string {
	brew := "/usr/local/opt/openjdk/libexec/openjdk.jdk/Contents/Home"
	if arch == "arm64" {
		brew = "/opt/homebrew/opt/openjdk/libexec/openjdk.jdk/Contents/Home"
	}
	return []string{
		brew,
		"/Library/Java/JavaVirtualMachines/*/Contents/Home",
	}
}

func (darwin) ClientLibraries(static bool) []string {
	if static {
		return []string{"libhdfs.a"}
	}
	return []string{"libhdfs.dylib"}
}

func (darwin) HadoopPrefixes() []string {
	return []string{
		"/opt/homebrew/opt/hadoop/libexec/lib/native",
		"/usr/local/opt/hadoop/libexec/lib/native",
		"/usr/local/hadoop/lib/native",
	}
}

type windows struct{}

func (windows) OS() string               { return "windows" }
func (windows) JVMLibrary() string       { return "jvm.dll" }
func (windows) JVMImportLibrary() string { return "jvm.lib" }
func (windows) HeaderSubdir() string     { return "win32" }
func (windows) SupportsRPath() bool      { return false }

func (windows) ImportLibDirs() []string {
	return []string{"lib", filepath.Join("jre", "lib")}
}

func (windows) VMDirs(arch string) []string {
	return []string{
		filepath.Join("bin", "server"),
		filepath.Join("bin", "client"),
		filepath.Join("jre", "bin", "server"),
		filepath.Join("jre", "bin", "client"),
	}
}

func (windows) JavaHomeVars(arch string) []string {
	switch arch {
	case "amd64":
		return []string{"JAVA_HOME_X64", "JAVA_HOME_AMD64"}
	case "arm64":
		return []string{"JAVA_HOME_ARM64", "JAVA_HOME_AARCH64"}
	}
	return nil
}

func (windows) JavaHomeSuffix(arch string) string { return ciSuffix(arch) }

func (windows) WellKnownHomes(arch string) []string {
	return []string{
		`C:\Program Files\Eclipse Adoptium\jdk-*`,
		`C:\Program Files\Microsoft\jdk-*`,
		`C:\Program Files\Java\jdk*`,
	}
}

func (windows) ClientLibraries(static bool) []string {
	if static {
		return []string{"hdfs.lib", "libhdfs.a"}
	}
	return []string{"hdfs.lib", "hdfs.dll"}
}

func (windows) HadoopPrefixes() []string {
	return []string{`C:\hadoop\lib\native`, `C:\hadoop\bin`}
}

// ciSuffix follows the naming used by hosted CI runners, which export one
// JAVA_HOME_<major>_<ARCH> per installed JDK.
func ciSuffix(arch string) string {
	switch arch {
	case "amd64":
		return "X64"
	case "arm64":
		return "ARM64"
	}
	return ""
}
