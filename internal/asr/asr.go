package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whisperjson/internal/config"
	"whisperjson/internal/device"

	"github.com/sirupsen/logrus"
)

// ErrEngineUnavailable means no inference backend could be brought up.
var ErrEngineUnavailable = errors.New("speech engine unavailable")

// Token is one decoder token with its timing.
type Token struct {
	Text    string
	Start   time.Duration
	End     time.Duration
	Special bool // timestamp/control tokens, never part of words
}

// Segment is a recognized span of audio.
type Segment struct {
	Text   string
	Start  time.Duration
	End    time.Duration
	Tokens []Token
}

// Result is everything an engine returns for one file.
type Result struct {
	Language string
	Segments []Segment
}

// Request is a single transcription call. Samples are 16 kHz mono.
type Request struct {
	Samples  []float32
	Language string
}

// LoadOptions selects the model and where it runs.
type LoadOptions struct {
	ModelPath string
	Device    device.Device
	Threads   int
}

// Engine is a loaded model.
type Engine interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
	Close() error
}

// Backend loads models for one inference runtime.
type Backend interface {
	Name() string
	Load(ctx context.Context, opts LoadOptions) (Engine, error)
}

// NewBackend returns the backend asr.engine resolves to for dev.
func NewBackend(cfg *config.Config, dev device.Device, logger *logrus.Logger) (Backend, error) {
	engine, err := SelectEngine(cfg.ASR.Engine, dev)
	if err != nil {
		return nil, err
	}
	if engine == config.EngineBinding {
		return newBindingBackend(logger)
	}
	return newCLIBackend(cfg, logger)
}

var metalHost = device.MetalHost

// SelectEngine resolves an asr.engine value to binding or cli. "auto" prefers
// the in-process bindings when compiled in. Those always offload to Metal
// where available, so CPU runs on such hosts go through whisper-cli -ng.
func SelectEngine(name string, dev device.Device) (string, error) {
	return chooseEngine(name, dev, bindingCompiled, metalHost())
}

func chooseEngine(name string, dev device.Device, compiled, metal bool) (string, error) {
	cpuPinned := dev == device.CPU && metal
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", config.EngineAuto:
		if compiled && !cpuPinned {
			return config.EngineBinding, nil
		}
		return config.EngineCLI, nil
	case config.EngineBinding:
		if !compiled {
			return "", fmt.Errorf("%w: in-process whisper.cpp needs a build with -tags whisper", ErrEngineUnavailable)
		}
		if cpuPinned {
			return "", fmt.Errorf("%w: in-process whisper.cpp cannot run CPU-only on this host; set asr.engine = cli", ErrEngineUnavailable)
		}
		return config.EngineBinding, nil
	case config.EngineCLI:
		return config.EngineCLI, nil
	default:
		return "", fmt.Errorf("%w: unknown engine %q (want auto, binding or cli)", ErrEngineUnavailable, name)
	}
}

// BindingCompiled reports whether this build carries the in-process engine.
func BindingCompiled() bool { return bindingCompiled }

// Text joins raw segment texts and trims the result.
func (r *Result) Text() string {
	var b strings.Builder
	for _, s := range r.Segments {
		b.WriteString(s.Text)
	}
	return strings.TrimSpace(b.String())
}
