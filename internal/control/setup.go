package control

import (
	"fmt"

	"whisperjson/internal/config"
	"whisperjson/internal/models"
	"whisperjson/internal/runtimedir"

	"github.com/spf13/cobra"
)

// NewSetupCmd downloads the configured model if no local copy exists.
func NewSetupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Download the configured whisper model if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if path, err := models.Resolve(cfg.Model.Path, cfg.Model.Name, modelDirs(cfg)); err == nil {
				_, err = fmt.Fprintln(out, "model already present at", path)
				return err
			} else if cfg.Model.Path != "" {
				return err
			}
			_, _ = fmt.Fprintf(out, "downloading %s to %s\n", models.FileName(cfg.Model.Name), cfg.Paths.ModelsDir)
			d := &models.Downloader{Progress: cmd.ErrOrStderr()}
			if _, err := d.Download(cmd.Context(), cfg.Model.Name, cfg.Paths.ModelsDir); err != nil {
				return err
			}
			if in, ok := runtimedir.Locate(runtimedir.BaseDir(cfg.Runtime.Dir), cfg.Runtime.Prefix); ok {
				_, _ = fmt.Fprintln(out, "bundled runtime:", in.Dir)
			}
			_, err = fmt.Fprintln(out, "model download complete")
			return err
		},
	}
}
