package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"whisperjson/internal/asr"
	"whisperjson/internal/config"
	"whisperjson/internal/device"
	"whisperjson/internal/models"
	"whisperjson/internal/runtimedir"

	"github.com/dustin/go-humanize"
)

// Result represents a diagnostic check.
type Result struct {
	Name   string
	Pass   bool
	Detail string
}

// Run executes doctor checks. probe may be nil to skip GPU detection.
func Run(ctx context.Context, cfg *config.Config, probe device.Prober) []Result {
	rt, dirs := checkRuntime(cfg)
	modelRes, modelPath := checkModel(cfg, dirs)
	dev := device.Select(ctx, cfg.Device.CPUOnly, probe)
	results := []Result{
		checkFile("config path", cfg.Paths.ConfigPath),
		rt,
		checkEngine(cfg, dev),
		modelRes,
		checkModelLoads(modelPath),
		checkExecutable("ffmpeg", cfg.Audio.FFmpeg),
		checkDevice(cfg, dev),
	}
	return results
}

// Failed reports whether any check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return true
		}
	}
	return false
}

func checkFile(label, path string) Result {
	if path == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	if _, err := os.Stat(os.ExpandEnv(path)); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

// checkRuntime registers a bundled install, like a real run would, so the
// engine lookup below sees its bin dir.
func checkRuntime(cfg *config.Config) (Result, []string) {
	label := "runtime"
	base := runtimedir.BaseDir(cfg.Runtime.Dir)
	in, ok := runtimedir.Locate(base, cfg.Runtime.Prefix)
	if !ok {
		return Result{Name: label, Pass: true, Detail: "none bundled under " + base}, []string{cfg.Paths.ModelsDir}
	}
	if err := runtimedir.Register(in); err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}, []string{in.ModelsDir, cfg.Paths.ModelsDir}
	}
	return Result{Name: label, Pass: true, Detail: in.Dir}, []string{in.ModelsDir, cfg.Paths.ModelsDir}
}

func checkEngine(cfg *config.Config, dev device.Device) Result {
	label := "engine"
	engine, err := asr.SelectEngine(cfg.ASR.Engine, dev)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error()}
	}
	if engine == config.EngineBinding {
		return Result{Name: label, Pass: true, Detail: "in-process whisper.cpp"}
	}
	path, err := asr.FindCLI(cfg.ASR.CLIPath)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: err.Error() + " (set asr.cli_path or bundle a runtime)"}
	}
	if _, err := asr.ParseArgs(cfg.ASR.ExtraArgs); err != nil {
		return Result{Name: label, Pass: false, Detail: fmt.Sprintf("asr.extra_args: %v", err)}
	}
	return Result{Name: label, Pass: true, Detail: path}
}

func checkModel(cfg *config.Config, dirs []string) (Result, string) {
	label := "model file"
	path, err := models.Resolve(cfg.Model.Path, cfg.Model.Name, dirs)
	if err != nil {
		if cfg.Model.AutoDownload && cfg.Model.Path == "" {
			return Result{Name: label, Pass: true, Detail: fmt.Sprintf("%s missing, downloads on first run", models.FileName(cfg.Model.Name))}, ""
		}
		return Result{Name: label, Pass: false, Detail: err.Error()}, ""
	}
	detail := path
	if info, err := os.Stat(path); err == nil {
		detail = fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size())))
	}
	return Result{Name: label, Pass: true, Detail: detail}, path
}

func checkExecutable(label, cmd string) Result {
	if cmd == "" {
		return Result{Name: label, Pass: false, Detail: "not set"}
	}
	path := os.ExpandEnv(cmd)
	// If contains a path separator, treat as explicit path.
	if strings.Contains(path, "/") || strings.Contains(path, "\\") {
		info, err := os.Stat(path)
		if err != nil {
			return Result{Name: label, Pass: false, Detail: err.Error()}
		}
		if info.IsDir() {
			return Result{Name: label, Pass: false, Detail: "is a directory"}
		}
		if info.Mode().Perm()&0o111 == 0 {
			return Result{Name: label, Pass: false, Detail: "not executable"}
		}
		return Result{Name: label, Pass: true, Detail: path}
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return Result{Name: label, Pass: false, Detail: "not found; only PCM WAV input will work"}
	}
	return Result{Name: label, Pass: true, Detail: resolved}
}

func checkDevice(cfg *config.Config, d device.Device) Result {
	detail := string(d)
	if cfg.Device.CPUOnly {
		detail += " (forced by WHISPER_CPU_ONLY or device.cpu_only)"
	}
	return Result{Name: "device", Pass: true, Detail: detail}
}
