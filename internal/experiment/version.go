package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrVersionScan wraps filesystem failures while discovering existing
// version directories. No fallback version is chosen when scanning fails.
var ErrVersionScan = errors.New("version scan failed")

const versionPrefix = "version_"

// Version identifies one run under an experiment name: either an integer
// (auto-assignable) or a caller-supplied literal directory name. The zero
// value requests automatic assignment, so it is a safe default in options
// structs.
type Version struct {
	name     string
	n        int
	explicit bool
}

// Auto requests automatic integer version assignment from Resolve.
var Auto = Version{}

// VersionInt returns an explicit integer version.
func VersionInt(n int) Version { return Version{n: n, explicit: true} }

// VersionNamed returns a literal string version, e.g. "2020-02-05-162402".
func VersionNamed(name string) Version { return Version{name: name, explicit: true} }

// ParseVersion interprets a CLI/config version string: empty or "auto"
// requests automatic assignment, a bare integer selects that version, and
// anything else is a literal named version.
func ParseVersion(s string) Version {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return Auto
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return VersionInt(n)
	}
	return VersionNamed(s)
}

// IsAuto reports whether this version requests automatic assignment.
func (v Version) IsAuto() bool { return !v.explicit }

// IsNamed reports whether this is a literal string version.
func (v Version) IsNamed() bool { return v.name != "" }

// Int returns the integer version number; zero for named or auto versions.
func (v Version) Int() int { return v.n }

// DirName returns the directory name for this version: the literal name for
// named versions, "version_<N>" otherwise.
func (v Version) DirName() string {
	if v.name != "" {
		return v.name
	}
	return versionPrefix + strconv.Itoa(v.n)
}

// String implements fmt.Stringer.
func (v Version) String() string { return v.DirName() }

// Resolve determines the version and log directory for a run.
//
// A non-auto requested version is used verbatim without touching the
// filesystem for discovery. Otherwise entries directly under rootDir/name
// (rootDir when name is empty) matching "version_<int>" are scanned and the
// next integer after the maximum is assigned; an absent or empty directory
// yields version 0. Relative rootDir is resolved against the working
// directory at call time. The resolved directory is not created; call
// EnsureDir before the first write.
func Resolve(rootDir, name string, requested Version) (Version, string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return Version{}, "", fmt.Errorf("resolve root dir %q: %w", rootDir, err)
	}
	base := root
	if name != "" {
		base = filepath.Join(root, name)
	}
	if !requested.IsAuto() {
		return requested, filepath.Join(base, requested.DirName()), nil
	}
	next, err := nextVersion(base)
	if err != nil {
		return Version{}, "", err
	}
	v := VersionInt(next)
	return v, filepath.Join(base, v.DirName()), nil
}

// nextVersion returns max+1 over existing version_<int> directories in dir,
// or 0 when dir is absent or holds none.
func nextVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: list %s: %w", ErrVersionScan, dir, err)
	}
	next := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(e.Name(), versionPrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return next, nil
}

// List returns the version directory names under rootDir/name (rootDir when
// name is empty), in directory order. Named and integer versions both count;
// an absent experiment directory yields an empty list.
func List(rootDir, name string) ([]string, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir %q: %w", rootDir, err)
	}
	base := root
	if name != "" {
		base = filepath.Join(root, name)
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", ErrVersionScan, base, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// EnsureDir creates the log directory if absent. Idempotent: an existing
// directory is not an error.
func EnsureDir(logDir string) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", logDir, err)
	}
	return nil
}
