// Package models resolves and fetches ggml whisper models.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
)

// DefaultBaseURL hosts the ggml conversions published by whisper.cpp.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// ErrNotFound means no local copy of the model exists.
var ErrNotFound = errors.New("model not found")

// simple registry of known ggml models, by size name.
var registry = []string{
	"tiny",
	"base",
	"small",
	"small-q5_1",
	"medium",
	"medium-q5_0",
	"large-v3",
	"large-v3-q5_0",
	"large-v3-turbo",
	"large-v3-turbo-q8_0",
}

// Names lists the registry in sorted order.
func Names() []string {
	out := append([]string(nil), registry...)
	sort.Strings(out)
	return out
}

// Known reports whether name is in the registry.
func Known(name string) bool {
	name = sizeName(name)
	for _, n := range registry {
		if n == name {
			return true
		}
	}
	return false
}

// FileName maps "small" to "ggml-small.bin"; file names pass through.
func FileName(name string) string {
	if strings.HasSuffix(name, ".bin") {
		return name
	}
	return "ggml-" + name + ".bin"
}

func sizeName(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, "ggml-"), ".bin")
}

// Resolve finds a model: explicit wins outright, otherwise the first dir
// holding FileName(name).
func Resolve(explicit, name string, dirs []string) (string, error) {
	if explicit != "" {
		p := os.ExpandEnv(explicit)
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("model.path: %w", err)
		}
		return p, nil
	}
	file := FileName(name)
	for _, d := range dirs {
		if d == "" {
			continue
		}
		p := filepath.Join(d, file)
		if info, err := os.Stat(p); err == nil && !info.IsDir() && info.Size() > 0 {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched %s)", ErrNotFound, file, strings.Join(nonEmpty(dirs), ", "))
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Downloader fetches registry models into a directory.
type Downloader struct {
	BaseURL  string
	Client   *http.Client
	Progress io.Writer // progress bar sink; nil disables it
}

// Download stores the model in dir and returns its path. Concurrent callers
// serialize on a lock file; whoever comes second finds the finished file.
func (d *Downloader) Download(ctx context.Context, name, dir string) (string, error) {
	if !Known(name) {
		return "", fmt.Errorf("unknown model %q; run models list", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, FileName(sizeName(name)))

	lock := flock.New(dest + ".lock")
	ok, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", dest, err)
	}
	if !ok {
		return "", fmt.Errorf("lock %s: not acquired", dest)
	}
	defer func() { _ = lock.Unlock() }()

	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}
	if err := d.fetch(ctx, d.url(name), dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (d *Downloader) url(name string) string {
	base := d.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + FileName(sizeName(name))
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: %s", resp.Status)
	}

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
		_ = os.Remove(tmp)
	}()

	var w io.Writer = out
	if d.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(d.Progress),
			progressbar.OptionSetDescription(filepath.Base(dest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Close() }()
		w = io.MultiWriter(out, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

// Entry describes a registry model and any local copy.
type Entry struct {
	Name string
	Path string // empty when not downloaded
	Size int64
}

// List reports every registry model, with the first local copy found in dirs.
func List(dirs []string) []Entry {
	out := make([]Entry, 0, len(registry))
	for _, n := range Names() {
		e := Entry{Name: n}
		if p, err := Resolve("", n, dirs); err == nil {
			e.Path = p
			if info, err := os.Stat(p); err == nil {
				e.Size = info.Size()
			}
		}
		out = append(out, e)
	}
	return out
}
