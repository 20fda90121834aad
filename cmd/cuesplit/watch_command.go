package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var inDir, outDir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the source directory and split new albums as they arrive",
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

			logger := ctx.logger(cmd)
			p, err := ctx.openPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := p.scheduler.InitialScan(runCtx); err != nil {
				return err
			}
			logger.Println("Application is running. Press Ctrl+C to exit.")
			err = p.scheduler.Watch(runCtx)
			p.scheduler.Wait()
			logger.Println("Shutting down.")
			return err
		},
	}
	cmd.Flags().StringVar(&inDir, "in", "", "Source directory (overrides SOURCE_DIR)")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (overrides OUTPUT_DIR)")
	return cmd
}
