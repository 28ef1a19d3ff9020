package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"whisperjson/internal/control"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		if !errors.Is(err, control.ErrReported) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(routeArgs(root, os.Args[1:]))
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		applyColorHelp(root)
	}
	return root.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "whisperjson <audio_path> [language_code]",
		Short: "whisperjson — transcribe one audio file to JSON with whisper.cpp",
		Long: `whisperjson transcribes an audio file locally with whisper.cpp and prints a single JSON
object on stdout: {"text", "segments": [{"text", "start", "end", "words": [...]}]}.
Failures print {"error", "text": "", "segments": []} and exit 1. Diagnostics go to stderr.
An existing file named like a subcommand is transcribed; "whisperjson -- <path>" forces it.

Notable env:
  WHISPER_CPU_ONLY=1          never use a GPU
  WHISPERJSON_MODEL=<name>    model size or ggml file (default small)
  WHISPERJSON_ENGINE=cli      force the whisper-cli subprocess engine
  WHISPERJSON_RUNTIME_DIR     base dir holding whisper.cpp-v* installs
  WHISPERJSON_LOG_LEVEL/FORMAT`,
		Example: `  whisperjson interview.wav
  whisperjson podcast.mp3 en
  WHISPER_CPU_ONLY=1 whisperjson note.m4a vi
  whisperjson models download small
  whisperjson doctor`,
		Args:                  cobra.ArbitraryArgs,
		SilenceErrors:         true,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
	}

	root.Version = version
	root.SetVersionTemplate("whisperjson v{{.Version}}\n")

	cfgPath := root.PersistentFlags().StringP("config", "c", "", "Path to config file (TOML). Defaults to ~/.config/whisperjson/config.toml")
	root.CompletionOptions.DisableDefaultCmd = true
	root.RunE = control.NewTranscribeRunE(cfgPath)

	// callers parse stdout, so bad flags on the root still yield a payload
	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		if c == root {
			return control.ReportFailure(c.OutOrStdout(), err)
		}
		return err
	})

	root.AddCommand(control.NewModelsCmd(cfgPath))
	root.AddCommand(control.NewSetupCmd(cfgPath))
	root.AddCommand(control.NewDoctorCmd(cfgPath))
	root.AddCommand(control.NewTailLogCmd(cfgPath))
	return root
}

// routeArgs sends an existing file that shares a subcommand's name to the
// root transcription instead of the subcommand.
func routeArgs(root *cobra.Command, args []string) []string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return args
		case a == "-c" || a == "--config":
			i++
			continue
		case strings.HasPrefix(a, "-"):
			continue
		}
		if !isSubcommand(root, a) {
			return args
		}
		if info, err := os.Stat(a); err != nil || info.IsDir() {
			return args
		}
		out := append([]string{}, args[:i]...)
		out = append(out, "--")
		return append(out, args[i:]...)
	}
	return args
}

func isSubcommand(root *cobra.Command, name string) bool {
	for _, c := range root.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

func applyColorHelp(root *cobra.Command) {
	const (
		boldBlue = "\033[1;34m"
		green    = "\033[32m"
		bold     = "\033[1m"
		dim      = "\033[2m"
		reset    = "\033[0m"
	)
	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != root {
			defaultHelp(cmd, args)
			return
		}
		out := cmd.OutOrStdout()
		write := func(format string, args ...any) { _, _ = fmt.Fprintf(out, format, args...) }
		writeln := func(line string) { _, _ = fmt.Fprintln(out, line) }

		write("%swhisperjson%s — audio file to JSON transcript %s(v%s)%s\n", boldBlue, reset, dim, version, reset)
		write("%sRuns whisper.cpp locally; stdout carries exactly one JSON object.%s\n\n", dim, reset)

		write("%sUsage%s\n", bold, reset)
		write("  whisperjson <audio_path> [language_code]\n")
		write("  whisperjson -- <audio_path> [language_code]   (path named like a command)\n")
		write("  whisperjson [command] [flags]\n\n")

		write("%sNotable flags & env%s\n", bold, reset)
		writeln("  -c, --config <path>     config file (default ~/.config/whisperjson/config.toml)")
		writeln("  Env: WHISPER_CPU_ONLY=1, WHISPERJSON_MODEL=small,")
		writeln("       WHISPERJSON_ENGINE=cli, WHISPERJSON_RUNTIME_DIR=<dir>,")
		writeln("       WHISPERJSON_LOG_LEVEL=debug, WHISPERJSON_LOG_FORMAT=json")
		writeln("")

		write("%sExamples%s\n", bold, reset)
		writeln("  whisperjson interview.wav")
		writeln("  whisperjson podcast.mp3 en")
		writeln("  whisperjson models list")
		writeln("  whisperjson models download large-v3-turbo-q8_0")
		writeln("  whisperjson models set large-v3-turbo-q8_0")
		writeln("  whisperjson doctor")
		writeln("")

		write("%sCommands%s\n", bold, reset)
		for _, c := range cmd.Commands() {
			if c.Hidden {
				continue
			}
			write("  %s%-15s%s %s\n", green, c.Name(), reset, c.Short)
		}
	})
}
