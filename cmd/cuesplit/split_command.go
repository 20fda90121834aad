package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		inDir     string
		outDir    string
		format    string
		workers   int
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split every unprocessed album under the source directory once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if inDir != "" {
				cfg.SourceDir = inDir
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}
			if format != "" {
				cfg.OutputFormat = format
			}
			if workers > 0 {
				cfg.SplitWorkers = workers
			}
			if overwrite {
				cfg.Overwrite = true
			}

			logger := ctx.logger(cmd)
			p, err := ctx.openPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			summary, runErr := p.scheduler.RunOnce(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d albums, %d processed, %d skipped, %d failed\n",
				summary.RunID, summary.Albums, summary.Processed, summary.Skipped, summary.Failed)
			return runErr
		},
	}
	cmd.Flags().StringVar(&inDir, "in", "", "Source directory (overrides SOURCE_DIR)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides OUTPUT_DIR)")
	cmd.Flags().StringVar(&format, "format", "", "Output format (overrides OUTPUT_FORMAT)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent ffmpeg processes (overrides SPLIT_WORKERS)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Write into non-empty album output directories")
	return cmd
}
