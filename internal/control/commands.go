package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"whisperjson/internal/config"
	"whisperjson/internal/device"
	"whisperjson/internal/doctor"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewTailLogCmd prints the tail of the log file (needs logging.file = true).
func NewTailLogCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail-log",
		Short: "Show last log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			n, _ := cmd.Flags().GetInt("lines")
			err = tailFile(cmd.OutOrStdout(), cfg.Paths.LogPath, n)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no log at %s; set logging.file = true", cfg.Paths.LogPath)
			}
			return err
		},
	}
	cmd.Flags().IntP("lines", "n", 50, "number of lines")
	return cmd
}

func tailFile(w io.Writer, path string, n int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewDoctorCmd runs environment checks.
func NewDoctorCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check engine, model, runtime and device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			results := doctor.Run(ctx, cfg, device.Detect)
			rows := make([]table.Row, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Pass {
					status = "fail"
				}
				rows = append(rows, table.Row{r.Name, status, r.Detail})
			}
			if err := writeTable(cmd.OutOrStdout(), table.Row{"Check", "Status", "Detail"}, rows); err != nil {
				return err
			}
			if doctor.Failed(results) {
				return fmt.Errorf("doctor found issues")
			}
			return nil
		},
	}
}
