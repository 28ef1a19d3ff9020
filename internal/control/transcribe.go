package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"whisperjson/internal/asr"
	"whisperjson/internal/audio"
	"whisperjson/internal/config"
	"whisperjson/internal/device"
	"whisperjson/internal/logging"
	"whisperjson/internal/models"
	"whisperjson/internal/runtimedir"
	"whisperjson/internal/transcript"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

var (
	// ErrNoAudio is returned when the audio path argument is missing.
	ErrNoAudio = errors.New("no audio file provided")
	// ErrReported marks failures already written to stdout as a payload.
	ErrReported = errors.New("failure reported")
)

// NewTranscribeRunE returns the root command action: transcribe args[0] in
// language args[1] and print one JSON object. Every failure is printed as a
// payload and surfaces as ErrReported.
func NewTranscribeRunE(cfgPath *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		res, err := transcribe(cmd.Context(), *cfgPath, args, cmd.ErrOrStderr())
		if err != nil {
			return ReportFailure(out, err)
		}
		if err := transcript.Write(out, res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		return nil
	}
}

// ReportFailure prints err as the failure payload and returns ErrReported.
func ReportFailure(w io.Writer, err error) error {
	if werr := transcript.Write(w, transcript.Failure(err)); werr != nil {
		return errors.Join(err, werr)
	}
	return ErrReported
}

func transcribe(ctx context.Context, cfgPath string, args []string, stderr io.Writer) (transcript.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return transcript.Result{}, err
	}
	logger, err := logging.Configure(cfg, stderr)
	if err != nil {
		return transcript.Result{}, err
	}
	p := &Pipeline{
		Config:   cfg,
		Logger:   logger,
		Probe:    device.Detect,
		Progress: stderr,
	}
	return p.Run(ctx, args)
}

// Pipeline runs one transcription. Zero-valued hooks fall back to the real
// implementations.
type Pipeline struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Probe    device.Prober
	Progress io.Writer // model download progress

	NewBackend func(*config.Config, device.Device, *logrus.Logger) (asr.Backend, error)
	Download   func(ctx context.Context, name, dir string) (string, error)
}

// Run takes CLI positional args: audio path and optional language code.
func (p *Pipeline) Run(ctx context.Context, args []string) (transcript.Result, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return transcript.Result{}, ErrNoAudio
	}
	cfg := p.Config
	log := p.Logger.WithField("run", uuid.NewString()[:8])
	audioPath := args[0]
	lang := cfg.ASR.Language
	if len(args) > 1 {
		lang = args[1]
	}

	modelDirs := p.registerRuntime(log)

	// the device decides which engine can honor it
	dev := device.Select(ctx, cfg.Device.CPUOnly, p.Probe)
	newBackend := p.NewBackend
	if newBackend == nil {
		newBackend = asr.NewBackend
	}
	backend, err := newBackend(cfg, dev, p.Logger)
	if err != nil {
		return transcript.Result{}, fmt.Errorf("failed to load speech engine: %w", err)
	}

	if info, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return transcript.Result{}, fmt.Errorf("audio file not found: %s", audioPath)
		}
		return transcript.Result{}, fmt.Errorf("audio file %s: %w", audioPath, err)
	} else if info.IsDir() {
		return transcript.Result{}, fmt.Errorf("audio path is a directory: %s", audioPath)
	}

	lang, err = NormalizeLanguage(lang)
	if err != nil {
		return transcript.Result{}, err
	}

	if err := device.Apply(dev); err != nil {
		log.Warnf("apply device: %v", err)
	}
	log.Infof("using device: %s", dev)

	modelPath, err := p.resolveModel(ctx, modelDirs)
	if err != nil {
		return transcript.Result{}, err
	}
	log.Infof("loading model %s with %s", modelPath, backend.Name())
	engine, err := backend.Load(ctx, asr.LoadOptions{
		ModelPath: modelPath,
		Device:    dev,
		Threads:   cfg.ASR.Threads,
	})
	if err != nil {
		return transcript.Result{}, err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warnf("close engine: %v", err)
		}
	}()

	samples, err := audio.Load(ctx, audioPath, audio.Options{FFmpeg: cfg.Audio.FFmpeg})
	if err != nil {
		return transcript.Result{}, fmt.Errorf("load audio: %w", err)
	}
	if len(samples) == 0 {
		log.Info("audio is empty")
		return transcript.Build(nil), nil
	}
	if cfg.VAD.Enabled {
		speech, err := audio.HasSpeech(samples, cfg.VAD.Aggressiveness, cfg.VAD.FrameMS)
		if err != nil {
			return transcript.Result{}, err
		}
		if !speech {
			log.Info("no speech detected, skipping model")
			return transcript.Build(nil), nil
		}
	}

	started := time.Now()
	res, err := engine.Transcribe(ctx, asr.Request{Samples: samples, Language: lang})
	if err != nil {
		return transcript.Result{}, fmt.Errorf("transcribe: %w", err)
	}
	if res == nil {
		res = &asr.Result{}
	}
	if lang != "auto" {
		res.Language = lang
	}
	log.WithFields(logrus.Fields{
		"audio_sec": fmt.Sprintf("%.1f", audio.Duration(samples)),
		"took":      time.Since(started).Round(time.Millisecond),
		"segments":  len(res.Segments),
	}).Info("transcription done")
	return transcript.Build(res), nil
}

// registerRuntime puts a bundled whisper.cpp install on the search paths and
// returns the model directories to search, most specific first.
func (p *Pipeline) registerRuntime(log *logrus.Entry) []string {
	cfg := p.Config
	var dirs []string
	if in, ok := runtimedir.Locate(runtimedir.BaseDir(cfg.Runtime.Dir), cfg.Runtime.Prefix); ok {
		if err := runtimedir.Register(in); err != nil {
			log.Warnf("register runtime %s: %v", in.Dir, err)
		} else {
			log.Infof("added %s to runtime search path", in.Dir)
		}
		dirs = append(dirs, in.ModelsDir)
	}
	return append(dirs, cfg.Paths.ModelsDir)
}

func (p *Pipeline) resolveModel(ctx context.Context, dirs []string) (string, error) {
	cfg := p.Config
	path, err := models.Resolve(cfg.Model.Path, cfg.Model.Name, dirs)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, models.ErrNotFound) || !cfg.Model.AutoDownload {
		return "", err
	}
	download := p.Download
	if download == nil {
		d := &models.Downloader{Progress: p.Progress}
		download = d.Download
	}
	p.Logger.Infof("model %s missing, downloading to %s", cfg.Model.Name, cfg.Paths.ModelsDir)
	path, err = download(ctx, cfg.Model.Name, cfg.Paths.ModelsDir)
	if err != nil {
		return "", fmt.Errorf("download model %s: %w", cfg.Model.Name, err)
	}
	return path, nil
}

// NormalizeLanguage validates a language hint and reduces it to the primary
// subtag whisper expects ("vi-VN" -> "vi"). "auto" passes through.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "auto") {
		return "auto", nil
	}
	code = strings.ReplaceAll(code, "_", "-")
	if _, err := language.Parse(code); err != nil {
		return "", fmt.Errorf("invalid language code %q: %w", code, err)
	}
	primary, _, _ := strings.Cut(code, "-")
	return strings.ToLower(primary), nil
}
