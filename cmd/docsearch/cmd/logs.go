package cmd

import (
	"regexp"

	"github.com/spf13/cobra"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/logging"
	"github.com/Aman-CERP/docsearch/internal/output"
)

func newLogsCmd(a *app) *cobra.Command {
	var (
		lines   int
		level   string
		grep    string
		file    string
		follow  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(file, a.cfg.Index.DataDir)
			if err != nil {
				return err
			}

			vc := logging.ViewerConfig{
				Level:   level,
				NoColor: noColor || !output.IsTTY(cmd.OutOrStdout()) || output.DetectNoColor(),
			}
			if grep != "" {
				vc.Pattern, err = regexp.Compile(grep)
				if err != nil {
					return docerrors.ValidationError("invalid --grep pattern", err)
				}
			}
			viewer := logging.NewViewer(vc, cmd.OutOrStdout())

			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)
			if !follow {
				return nil
			}

			ch := make(chan logging.Entry, 64)
			done := make(chan error, 1)
			go func() {
				done <- viewer.Follow(cmd.Context(), path, ch)
				close(ch)
			}()
			for e := range ch {
				viewer.Print([]logging.Entry{e})
			}
			return <-done
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to read (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show")
	cmd.Flags().StringVar(&grep, "grep", "", "Only show lines matching this regular expression")
	cmd.Flags().StringVar(&file, "file", "", "Read this log file instead of the data directory's")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")
	return cmd
}
