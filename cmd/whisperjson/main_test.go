package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"whisperjson/internal/control"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "config.toml")
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRootWithoutAudioPrintsPayload(t *testing.T) {
	out, err := execute(t)
	if !errors.Is(err, control.ErrReported) {
		t.Fatalf("expected reported failure, got %v", err)
	}
	var payload struct {
		Error    string `json:"error"`
		Text     string `json:"text"`
		Segments []any  `json:"segments"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("stdout not json: %q", out)
	}
	if payload.Error != "no audio file provided" || payload.Segments == nil {
		t.Fatalf("payload %+v", payload)
	}
}

func TestRootBadFlagPrintsPayload(t *testing.T) {
	out, err := execute(t, "--bogus", "a.wav")
	if !errors.Is(err, control.ErrReported) {
		t.Fatalf("expected reported failure, got %v", err)
	}
	if !bytes.Contains([]byte(out), []byte(`"error":"unknown flag: --bogus"`)) {
		t.Fatalf("payload %s", out)
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"models", "setup", "doctor", "tail-log"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Fatalf("subcommand %s missing", name)
		}
	}
}

func TestRouteArgsPrefersExistingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	root := newRootCmd()

	if got := routeArgs(root, []string{"doctor"}); !slices.Equal(got, []string{"doctor"}) {
		t.Fatalf("no such file, subcommand should win: %v", got)
	}
	if err := os.WriteFile("doctor", []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := routeArgs(root, []string{"doctor", "vi"}); !slices.Equal(got, []string{"--", "doctor", "vi"}) {
		t.Fatalf("existing file should be transcribed: %v", got)
	}
	if got := routeArgs(root, []string{"-c", "cfg.toml", "doctor"}); !slices.Equal(got, []string{"-c", "cfg.toml", "--", "doctor"}) {
		t.Fatalf("config flag value must be skipped: %v", got)
	}
	if got := routeArgs(root, []string{"clip.wav"}); !slices.Equal(got, []string{"clip.wav"}) {
		t.Fatalf("plain paths pass through: %v", got)
	}
}

func TestRootTranscribesFileNamedLikeSubcommand(t *testing.T) {
	t.Chdir(t.TempDir())
	// a payload on stdout means the root command ran, not `models`
	if err := os.WriteFile("models", nil, 0o644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	cfg := filepath.Join(t.TempDir(), "config.toml")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(routeArgs(root, []string{"--config", cfg, "models"}))
	if err := root.Execute(); !errors.Is(err, control.ErrReported) {
		t.Fatalf("expected a transcription failure payload, got %v (%s)", err, out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte(`"error"`)) {
		t.Fatalf("payload %s", out.String())
	}
}
