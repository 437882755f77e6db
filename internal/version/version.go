// Package version resolves the targeted libhdfs release line from the
// mutually exclusive version flags.
package version

import (
	"sort"
	"strings"

	"github.com/goplus/hdfs-sys/internal/errs"
	"golang.org/x/mod/semver"
)

// Tag identifies a libhdfs release line. Each line has its own ABI and
// header set, so exactly one is active per build.
type Tag string

const (
	HDFS_2_2  Tag = "hdfs_2_2"
	HDFS_2_3  Tag = "hdfs_2_3"
	HDFS_2_4  Tag = "hdfs_2_4"
	HDFS_2_5  Tag = "hdfs_2_5"
	HDFS_2_6  Tag = "hdfs_2_6"
	HDFS_2_7  Tag = "hdfs_2_7"
	HDFS_2_8  Tag = "hdfs_2_8"
	HDFS_2_9  Tag = "hdfs_2_9"
	HDFS_2_10 Tag = "hdfs_2_10"
	HDFS_3_0  Tag = "hdfs_3_0"
	HDFS_3_1  Tag = "hdfs_3_1"
	HDFS_3_2  Tag = "hdfs_3_2"
	HDFS_3_3  Tag = "hdfs_3_3"
)

// All lists every supported tag, oldest first.
var All = []Tag{
	HDFS_2_2, HDFS_2_3, HDFS_2_4, HDFS_2_5, HDFS_2_6, HDFS_2_7, HDFS_2_8,
	HDFS_2_9, HDFS_2_10, HDFS_3_0, HDFS_3_1, HDFS_3_2, HDFS_3_3,
}

// Parse accepts either the flag form ("hdfs_3_3") or the dotted form ("3.3").
func Parse(s string) (Tag, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "hdfs_") {
		s = "hdfs_" + strings.ReplaceAll(strings.TrimPrefix(s, "v"), ".", "_")
	}
	for _, t := range All {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Select returns the single tag enabled by flags. Repeating the same tag is
// allowed; enabling two different lines is not.
func Select(flags []string) (Tag, error) {
	seen := make(map[Tag]bool)
	var selected []Tag
	for _, f := range flags {
		if strings.TrimSpace(f) == "" {
			continue
		}
		tag, ok := Parse(f)
		if !ok {
			return "", &errs.ConfigurationError{Kind: errs.ErrUnknownVersion, Flags: []string{f}}
		}
		if !seen[tag] {
			seen[tag] = true
			selected = append(selected, tag)
		}
	}
	switch len(selected) {
	case 0:
		return "", &errs.ConfigurationError{
			Kind: errs.ErrNoVersionSelected,
			Msg:  "enable exactly one of " + strings.Join(Names(), ", "),
		}
	case 1:
		return selected[0], nil
	}
	sort.Slice(selected, func(i, j int) bool { return selected[i].Compare(selected[j]) < 0 })
	names := make([]string, len(selected))
	for i, t := range selected {
		names[i] = string(t)
	}
	return "", &errs.ConfigurationError{Kind: errs.ErrMultipleVersionsSelected, Flags: names}
}

// Names returns the flag names of all supported tags.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = string(t)
	}
	return names
}

// String returns the dotted release line, e.g. "3.3".
func (t Tag) String() string {
	return strings.ReplaceAll(strings.TrimPrefix(string(t), "hdfs_"), "_", ".")
}

func (t Tag) semver() string {
	return "v" + t.String()
}

// Compare orders tags by release line.
func (t Tag) Compare(other Tag) int {
	return semver.Compare(t.semver(), other.semver())
}

// AtLeast reports whether t is other or a later line.
func (t Tag) AtLeast(other Tag) bool {
	return t.Compare(other) >= 0
}
