package runtimedir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocatePicksHighestVersion(t *testing.T) {
	base := t.TempDir()
	for _, d := range []string{"whisper.cpp-v1.7.6", "whisper.cpp-v1.10.0", "whisper.cpp-v1.9.2", "other-v9"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	// files never match
	if err := os.WriteFile(filepath.Join(base, "whisper.cpp-v2.0.0"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	in, ok := Locate(base, "whisper.cpp-v")
	if !ok {
		t.Fatalf("expected an install")
	}
	if filepath.Base(in.Dir) != "whisper.cpp-v1.10.0" {
		t.Fatalf("picked %s", in.Dir)
	}
	if in.BinDir != filepath.Join(in.Dir, "bin") || in.ModelsDir != filepath.Join(in.Dir, "models") {
		t.Fatalf("derived dirs wrong: %+v", in)
	}
}

func TestLocateMissingBase(t *testing.T) {
	if _, ok := Locate(filepath.Join(t.TempDir(), "nope"), "whisper.cpp-v"); ok {
		t.Fatalf("missing base must not match")
	}
	if _, ok := Locate(t.TempDir(), "whisper.cpp-v"); ok {
		t.Fatalf("empty base must not match")
	}
}

func TestRegisterPrependsPath(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "whisper.cpp-v1.8.0")
	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", "/usr/bin")

	in, ok := Locate(base, "whisper.cpp-v")
	if !ok {
		t.Fatalf("expected install")
	}
	if err := Register(in); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(in); err != nil {
		t.Fatalf("register twice: %v", err)
	}
	got := os.Getenv("PATH")
	want := in.BinDir + string(os.PathListSeparator) + "/usr/bin"
	if got != want {
		t.Fatalf("PATH=%q want %q", got, want)
	}
	if strings.Contains(os.Getenv(libraryPathVar()), in.LibDir) {
		t.Fatalf("missing lib dir should not be registered")
	}
}

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.10.0", "1.9.2", 1},
		{"1.7.6", "1.7.6", 0},
		{"1.7", "1.7.1", -1},
		{"1.8.0-rc1", "1.8.0-rc2", -1},
	}
	for _, c := range cases {
		if got := compareVersions(c.a, c.b); got != c.want {
			t.Fatalf("compareVersions(%q,%q)=%d want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestBaseDirOverride(t *testing.T) {
	if got := BaseDir("/srv/runtime"); got != "/srv/runtime" {
		t.Fatalf("override ignored: %s", got)
	}
	if got := BaseDir(""); filepath.Base(got) != DirName {
		t.Fatalf("default base should end in %s: %s", DirName, got)
	}
}
