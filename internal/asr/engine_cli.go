package asr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"whisperjson/internal/audio"
	"whisperjson/internal/config"

	"github.com/google/shlex"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// well-known install locations checked after PATH
var cliLocations = []string{
	"/opt/homebrew/bin/whisper-cli",
	"/usr/local/bin/whisper-cli",
	"/usr/bin/whisper-cli",
}

// cliBackend runs whisper.cpp's whisper-cli as a subprocess.
type cliBackend struct {
	bin       string
	extraArgs []string
	logger    *logrus.Logger
}

func newCLIBackend(cfg *config.Config, logger *logrus.Logger) (Backend, error) {
	bin, err := FindCLI(cfg.ASR.CLIPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	extra, err := ParseArgs(cfg.ASR.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("asr.extra_args: %w", err)
	}
	return &cliBackend{bin: bin, extraArgs: extra, logger: logger}, nil
}

// FindCLI resolves the whisper-cli binary: explicit path, PATH (which
// includes a registered runtime bin dir), then common locations.
func FindCLI(explicit string) (string, error) {
	if explicit != "" {
		p := os.ExpandEnv(explicit)
		if path, err := exec.LookPath(p); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("whisper-cli not found at %s", p)
	}
	for _, name := range []string{"whisper-cli", "whisper-cpp"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	for _, loc := range cliLocations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() {
			return loc, nil
		}
	}
	return "", fmt.Errorf("whisper-cli not found in PATH")
}

// ParseArgs allows extra arguments to be configured as a single string.
func ParseArgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	return shlex.Split(raw)
}

func (b *cliBackend) Name() string { return "whisper-cli" }

func (b *cliBackend) Load(_ context.Context, opts LoadOptions) (Engine, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	b.logger.Debugf("whisper-cli: %s", b.bin)
	return &cliEngine{backend: b, opts: opts}, nil
}

type cliEngine struct {
	backend *cliBackend
	opts    LoadOptions
}

func (e *cliEngine) Transcribe(ctx context.Context, req Request) (*Result, error) {
	dir, err := os.MkdirTemp("", "whisperjson-cli-")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	wavPath := filepath.Join(dir, "input.wav")
	if err := audio.WriteWAV(wavPath, req.Samples); err != nil {
		return nil, err
	}
	prefix := filepath.Join(dir, uuid.NewString())
	args := e.args(req, wavPath, prefix)

	cmd := exec.CommandContext(ctx, e.backend.bin, args...) //nolint:gosec
	cmd.Env = os.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper-cli: %w: %s", err, lastLines(string(out), 5))
	}
	data, err := os.ReadFile(prefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("whisper-cli output: %w", err)
	}
	return parseFullJSON(data)
}

func (e *cliEngine) args(req Request, wavPath, prefix string) []string {
	threads := e.opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	lang := req.Language
	if lang == "" {
		lang = "auto"
	}
	args := []string{
		"-m", e.opts.ModelPath,
		"-f", wavPath,
		"-l", lang,
		"-t", strconv.Itoa(threads),
		"-np",
		"-sow",
		"-oj", "-ojf",
		"-of", prefix,
	}
	if !e.opts.Device.IsGPU() {
		args = append(args, "-ng")
	}
	return append(args, e.backend.extraArgs...)
}

func (e *cliEngine) Close() error { return nil }

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "; ")
}
