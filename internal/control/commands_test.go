package control

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisperjson/internal/config"

	"github.com/jedib0t/go-pretty/v6/table"
)

func TestTailFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "whisperjson.log")
	var lines []string
	for i := range 10 {
		lines = append(lines, strings.Repeat("x", i+1))
	}
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := tailFile(&buf, p, 3); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "xxxxxxxx\nxxxxxxxxx\nxxxxxxxxxx\n" {
		t.Fatalf("tail %q", buf.String())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	rows := []table.Row{{"small", "488 MB"}, {"tiny", "-"}}
	if err := writeTable(&buf, table.Row{"Model", "Size"}, rows, 2); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Model", "small", "488 MB", "tiny"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("table should end with a newline")
	}
}

func TestModelsSetAndList(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Paths.ModelsDir = t.TempDir()
	cfg.Runtime.Dir = t.TempDir()
	if err := config.Save(cfg, cfgPath); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	set := NewModelsCmd(&cfgPath)
	set.SetOut(&out)
	set.SetArgs([]string{"set", "base"})
	if err := set.Execute(); err != nil {
		t.Fatalf("set: %v", err)
	}
	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model.Name != "base" {
		t.Fatalf("model.name %q", loaded.Model.Name)
	}

	bad := NewModelsCmd(&cfgPath)
	bad.SetOut(&out)
	bad.SetErr(&out)
	bad.SetArgs([]string{"set", "gigantic"})
	if err := bad.Execute(); err == nil {
		t.Fatalf("unknown model should fail")
	}

	if err := os.WriteFile(filepath.Join(cfg.Paths.ModelsDir, "ggml-base.bin"), make([]byte, 1000), 0o644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	list := NewModelsCmd(&cfgPath)
	list.SetOut(&out)
	list.SetArgs([]string{"list"})
	if err := list.Execute(); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "base *") || !strings.Contains(out.String(), "1.0 kB") {
		t.Fatalf("list output:\n%s", out.String())
	}
}
