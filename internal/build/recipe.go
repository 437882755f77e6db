package build

import (
	"bytes"
	"path/filepath"
	"text/template"

	"github.com/goplus/hdfs-sys/internal/platform"
	"github.com/goplus/hdfs-sys/internal/version"
)

// recipe lists what to compile for one source line on one target. The
// libhdfs source layout changed several times between 2.2 and 3.3.
type recipe struct {
	Version  version.Tag
	MinCMake string
	Sources  []string
	Includes []string // relative to the prepared source tree
	Extra    []string // absolute include dirs outside the tree
	Flags    []string
	Header   string // public header, installed to include/
}

func newRecipe(tag version.Tag, target platform.Target, vendorDir string) *recipe {
	r := &recipe{
		Version:  tag,
		MinCMake: "3.1",
		Sources:  []string{"exception.c", "jni_helper.c", "hdfs.c"},
		Includes: []string{"."},
		Header:   "hdfs.h",
	}
	windows := target.OS == "windows"

	// Thread and mutex abstractions were split out in 2.6, the first line
	// that also builds on windows.
	if tag.AtLeast(version.HDFS_2_6) || windows {
		osDir := "posix"
		if windows {
			osDir = "windows"
		}
		r.Includes = append(r.Includes, "os", filepath.ToSlash(filepath.Join("os", osDir)))
		for _, f := range []string{"mutexes.c", "thread.c", "thread_local_storage.c"} {
			r.Sources = append(r.Sources, filepath.ToSlash(filepath.Join("os", osDir, f)))
		}
	}
	if tag.AtLeast(version.HDFS_2_6) && !tag.AtLeast(version.HDFS_3_3) {
		r.Includes = append(r.Includes, "common")
		r.Sources = append(r.Sources, "common/htable.c")
	}
	// hdfs.h moved to include/hdfs/hdfs.h in 2.8.
	if tag.AtLeast(version.HDFS_2_8) {
		r.Includes = append(r.Includes, "include")
		r.Header = "include/hdfs/hdfs.h"
	}
	if tag.AtLeast(version.HDFS_3_3) {
		r.MinCMake = "3.13"
		r.Sources = append(r.Sources, "jclasses.c")
		if windows && vendorDir != "" {
			r.Extra = append(r.Extra, filepath.ToSlash(filepath.Join(vendorDir, "libdirent", "include")))
		}
	}

	if windows {
		r.Flags = []string{
			"-O2", "/W4", "/wd4100", "/wd4127",
			"-D_CRT_NONSTDC_NO_DEPRECATE", "-D_CRT_SECURE_NO_WARNINGS", "-DWIN32_LEAN_AND_MEAN",
		}
	} else {
		// -fcommon keeps the pre-GCC 10 behavior the sources rely on.
		r.Flags = []string{"-w", "-fvisibility=hidden", "-fcommon"}
	}
	return r
}

var cmakeLists = template.Must(template.New("CMakeLists.txt").Parse(`# Generated by hdfs-sys for {{.Version}}; do not edit.
cmake_minimum_required(VERSION {{.MinCMake}})
project(hdfs C)

set(CMAKE_POSITION_INDEPENDENT_CODE ON)

if(NOT JNI_INCLUDE_DIRS)
  find_package(JNI REQUIRED)
endif()

add_library(hdfs
{{- range .Sources}}
  {{.}}
{{- end}}
)

target_include_directories(hdfs PRIVATE
  ${JNI_INCLUDE_DIRS}
{{- range .Includes}}
  ${CMAKE_CURRENT_SOURCE_DIR}/{{.}}
{{- end}}
{{- range .Extra}}
  {{.}}
{{- end}}
)

target_compile_options(hdfs PRIVATE{{range .Flags}} {{.}}{{end}})

if(BUILD_SHARED_LIBS AND JVM_LIBRARY)
  target_link_libraries(hdfs PRIVATE ${JVM_LIBRARY})
endif()

install(TARGETS hdfs
  ARCHIVE DESTINATION lib
  LIBRARY DESTINATION lib
  RUNTIME DESTINATION lib
)
install(FILES {{.Header}} DESTINATION include)
`))

func (r *recipe) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := cmakeLists.Execute(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
