package models

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestFileName(t *testing.T) {
	cases := map[string]string{
		"small":               "ggml-small.bin",
		"large-v3-turbo-q8_0": "ggml-large-v3-turbo-q8_0.bin",
		"ggml-base.bin":       "ggml-base.bin",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestResolveOrder(t *testing.T) {
	runtimeModels := t.TempDir()
	stateModels := t.TempDir()
	for _, d := range []string{runtimeModels, stateModels} {
		if err := os.WriteFile(filepath.Join(d, "ggml-small.bin"), []byte("ggml"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Resolve("", "small", []string{"", runtimeModels, stateModels})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(runtimeModels, "ggml-small.bin") {
		t.Fatalf("first dir should win: %s", got)
	}

	explicit := filepath.Join(stateModels, "ggml-small.bin")
	if got, _ := Resolve(explicit, "medium", []string{runtimeModels}); got != explicit {
		t.Fatalf("explicit path should win: %s", got)
	}
	if _, err := Resolve(filepath.Join(stateModels, "nope.bin"), "small", nil); err == nil {
		t.Fatalf("missing explicit path must fail")
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	// empty files are treated as missing (interrupted copies)
	if err := os.WriteFile(filepath.Join(dir, "ggml-small.bin"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve("", "small", []string{dir}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/ggml-small.bin" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ggml-weights"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	var progress bytes.Buffer
	d := &Downloader{BaseURL: srv.URL, Client: srv.Client(), Progress: &progress}

	path, err := d.Download(context.Background(), "small", dir)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "ggml-weights" {
		t.Fatalf("downloaded content %q err %v", data, err)
	}
	if _, err := os.Stat(path + ".part"); !os.IsNotExist(err) {
		t.Fatalf(".part file should be gone")
	}

	if _, err := d.Download(context.Background(), "small", dir); err != nil {
		t.Fatalf("second download: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("existing file should not be fetched again, hits=%d", hits.Load())
	}
}

func TestDownloadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := &Downloader{BaseURL: srv.URL, Client: srv.Client()}
	if _, err := d.Download(context.Background(), "huge", t.TempDir()); err == nil {
		t.Fatalf("unknown model must fail")
	}
	dir := t.TempDir()
	if _, err := d.Download(context.Background(), "base", dir); err == nil {
		t.Fatalf("bad status must fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "ggml-base.bin")); !os.IsNotExist(err) {
		t.Fatalf("failed download must not leave a model file")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ggml-base.bin"), []byte("1234"), 0o644); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range List([]string{dir}) {
		if e.Name == "base" {
			found = true
			if e.Size != 4 || e.Path == "" {
				t.Fatalf("local entry wrong: %+v", e)
			}
		} else if e.Path != "" {
			t.Fatalf("unexpected local copy: %+v", e)
		}
	}
	if !found {
		t.Fatalf("base missing from list")
	}
}
