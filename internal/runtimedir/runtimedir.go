// Package runtimedir finds a bundled whisper.cpp install next to the binary
// and puts it on the process search paths.
package runtimedir

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// DirName is the fixed directory, relative to the executable, holding installs.
const DirName = "runtime"

// Install is a located whisper.cpp runtime.
type Install struct {
	Dir       string
	BinDir    string
	LibDir    string
	ModelsDir string
}

// BaseDir returns <exe dir>/runtime unless override is set.
func BaseDir(override string) string {
	if override != "" {
		return override
	}
	exe, err := os.Executable()
	if err != nil {
		return DirName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DirName)
}

// Locate returns the highest-versioned subdirectory of base whose name starts
// with prefix. ok is false when base is missing or nothing matches.
func Locate(base, prefix string) (Install, bool) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return Install{}, false
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return Install{}, false
	}
	sort.Slice(names, func(i, j int) bool {
		return compareVersions(strings.TrimPrefix(names[i], prefix), strings.TrimPrefix(names[j], prefix)) < 0
	})
	dir := filepath.Join(base, names[len(names)-1])
	return Install{
		Dir:       dir,
		BinDir:    filepath.Join(dir, "bin"),
		LibDir:    filepath.Join(dir, "lib"),
		ModelsDir: filepath.Join(dir, "models"),
	}, true
}

// Register prepends the install's bin and lib dirs to PATH and the dynamic
// library path. Missing subdirectories are skipped.
func Register(in Install) error {
	var errs []error
	if isDir(in.BinDir) {
		errs = append(errs, prependEnv("PATH", in.BinDir))
	}
	if isDir(in.LibDir) {
		errs = append(errs, prependEnv(libraryPathVar(), in.LibDir))
	}
	return errors.Join(errs...)
}

func libraryPathVar() string {
	if runtime.GOOS == "darwin" {
		return "DYLD_LIBRARY_PATH"
	}
	return "LD_LIBRARY_PATH"
}

func prependEnv(key, dir string) error {
	cur := os.Getenv(key)
	if cur == "" {
		return os.Setenv(key, dir)
	}
	for _, p := range filepath.SplitList(cur) {
		if p == dir {
			return nil
		}
	}
	return os.Setenv(key, dir+string(os.PathListSeparator)+cur)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// compareVersions orders dotted versions numerically ("1.10.0" > "1.9.2").
// Non-numeric parts fall back to string comparison.
func compareVersions(a, b string) int {
	pa := strings.FieldsFunc(a, isVersionSep)
	pb := strings.FieldsFunc(b, isVersionSep)
	for i := 0; i < len(pa) || i < len(pb); i++ {
		if i >= len(pa) {
			return -1
		}
		if i >= len(pb) {
			return 1
		}
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		switch {
		case errA == nil && errB == nil:
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		default:
			if c := strings.Compare(pa[i], pb[i]); c != 0 {
				return c
			}
		}
	}
	return 0
}

func isVersionSep(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}
