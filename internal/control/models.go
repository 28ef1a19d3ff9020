package control

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"whisperjson/internal/config"
	"whisperjson/internal/models"
	"whisperjson/internal/runtimedir"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewModelsCmd wires up the models subcommands (list/download/set).
func NewModelsCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List/download/set whisper models",
	}
	cmd.AddCommand(newModelsListCmd(cfgPath))
	cmd.AddCommand(newModelsDownloadCmd(cfgPath))
	cmd.AddCommand(newModelsSetCmd(cfgPath))
	return cmd
}

// modelDirs lists where models are looked up: the bundled runtime first,
// then paths.models_dir.
func modelDirs(cfg *config.Config) []string {
	var dirs []string
	if in, ok := runtimedir.Locate(runtimedir.BaseDir(cfg.Runtime.Dir), cfg.Runtime.Prefix); ok {
		dirs = append(dirs, in.ModelsDir)
	}
	return append(dirs, cfg.Paths.ModelsDir)
}

func newModelsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and those present locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			var rows []table.Row
			for _, e := range models.List(modelDirs(cfg)) {
				name := e.Name
				if e.Name == cfg.Model.Name {
					name += " *"
				}
				size, path := "-", "-"
				if e.Path != "" {
					size = humanize.Bytes(uint64(e.Size))
					path = e.Path
				}
				rows = append(rows, table.Row{name, size, path})
			}
			return writeTable(cmd.OutOrStdout(), table.Row{"Model", "Size", "Path"}, rows, 2)
		},
	}
}

func newModelsDownloadCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download [model]",
		Short: "Download a model (default: model.name) into paths.models_dir",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			name := cfg.Model.Name
			if len(args) == 1 {
				name = args[0]
			}
			d := &models.Downloader{Progress: cmd.ErrOrStderr()}
			path, err := d.Download(cmd.Context(), name, cfg.Paths.ModelsDir)
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s ready at %s (%s)\n", name, path, humanize.Bytes(uint64(info.Size())))
			return err
		},
	}
}

func newModelsSetCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model-name-or-path>",
		Short: "Set model.name (or model.path for a file) in config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			val := args[0]
			// anything that looks like a path pins the file directly
			if strings.ContainsRune(val, filepath.Separator) || strings.HasSuffix(val, ".bin") {
				abs, err := filepath.Abs(val)
				if err != nil {
					return err
				}
				cfg.Model.Path = abs
			} else {
				if !models.Known(val) {
					return fmt.Errorf("unknown model %q; run models list", val)
				}
				cfg.Model.Name = val
				cfg.Model.Path = ""
			}
			if err := config.Save(cfg, cfg.Paths.ConfigPath); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "model set to %s in %s\n", val, cfg.Paths.ConfigPath)
			return err
		},
	}
}
