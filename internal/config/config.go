package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLanguage      = "vi"
	DefaultModel         = "small"
	DefaultRuntimePrefix = "whisper.cpp-v"
	defaultStateDirLinux = ".local/state/whisperjson"
	defaultConfigDir     = ".config/whisperjson"
)

// Engine names accepted by asr.engine.
const (
	EngineAuto    = "auto"
	EngineBinding = "binding"
	EngineCLI     = "cli"
)

// Config holds user configuration loaded from TOML.
type Config struct {
	Model struct {
		Name         string `toml:"name"`
		Path         string `toml:"path"` // explicit ggml file, skips lookup
		AutoDownload bool   `toml:"auto_download"`
	} `toml:"model"`

	ASR struct {
		Engine    string `toml:"engine"` // auto, binding, cli
		Language  string `toml:"language"`
		Threads   int    `toml:"threads"`
		CLIPath   string `toml:"cli_path"`
		ExtraArgs string `toml:"extra_args"` // appended to whisper-cli, shell quoting allowed
	} `toml:"asr"`

	Device struct {
		CPUOnly bool `toml:"cpu_only"`
	} `toml:"device"`

	Runtime struct {
		Dir    string `toml:"dir"` // base dir holding whisper.cpp-v* installs; empty = <exe dir>/runtime
		Prefix string `toml:"prefix"`
	} `toml:"runtime"`

	Audio struct {
		FFmpeg string `toml:"ffmpeg"`
	} `toml:"audio"`

	VAD struct {
		Enabled        bool `toml:"enabled"`
		Aggressiveness int  `toml:"aggressiveness"`
		FrameMS        int  `toml:"frame_ms"`
	} `toml:"vad"`

	Logging struct {
		Level  string `toml:"level"`  // debug, info, warn, error
		Format string `toml:"format"` // text, json
		File   bool   `toml:"file"`   // also write to paths.log_path
	} `toml:"logging"`

	Paths struct {
		StateDir   string `toml:"state_dir"`
		ModelsDir  string `toml:"models_dir"`
		LogPath    string `toml:"log_path"`
		ConfigPath string `toml:"-"`
	} `toml:"paths"`
}

// Default returns Config populated with defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(home, defaultStateDirLinux)
	// macOS prefers ~/Library/Application Support/whisperjson
	if isMac() {
		stateDir = filepath.Join(home, "Library", "Application Support", "whisperjson")
	}

	cfg := &Config{}

	cfg.Model.Name = DefaultModel
	cfg.Model.AutoDownload = true

	cfg.ASR.Engine = EngineAuto
	cfg.ASR.Language = DefaultLanguage

	cfg.Runtime.Prefix = DefaultRuntimePrefix

	cfg.Audio.FFmpeg = "ffmpeg"

	cfg.VAD.Enabled = false
	cfg.VAD.Aggressiveness = 2
	cfg.VAD.FrameMS = 30

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Paths.StateDir = stateDir
	cfg.Paths.ModelsDir = filepath.Join(stateDir, "models")
	cfg.Paths.LogPath = filepath.Join(stateDir, "whisperjson.log")

	return cfg, nil
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, defaultConfigDir, "config.toml")
}

// Load loads config from file, applying defaults and env overrides.
// A missing file is not an error; a template is written there when possible.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultPath()
	}
	cfg.Paths.ConfigPath = path

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// read-only homes are common under process supervisors
		_ = Save(cfg, path)
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

func isMac() bool {
	return runtime.GOOS == "darwin"
}

// MustStatePaths ensures state dirs exist.
func MustStatePaths(cfg *Config) error {
	for _, p := range []string{cfg.Paths.StateDir, cfg.Paths.ModelsDir, filepath.Dir(cfg.Paths.LogPath)} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ParseBool reads boolean-like env values: 1/0, true/false, yes/no, on/off.
// Anything else is false.
func ParseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "yes", "y", "on":
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("WHISPER_CPU_ONLY"); ok {
		cfg.Device.CPUOnly = ParseBool(v)
	}
	if v := os.Getenv("WHISPERJSON_MODEL"); v != "" {
		// a path to a ggml file or a registry size name
		if strings.ContainsRune(v, os.PathSeparator) || strings.HasSuffix(v, ".bin") {
			cfg.Model.Path = v
		} else {
			cfg.Model.Name = v
		}
	}
	if v := os.Getenv("WHISPERJSON_ENGINE"); v != "" {
		cfg.ASR.Engine = strings.ToLower(v)
	}
	if v := os.Getenv("WHISPERJSON_RUNTIME_DIR"); v != "" {
		cfg.Runtime.Dir = v
	}
	if v := os.Getenv("WHISPERJSON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WHISPERJSON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
