package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFileFlag string
	var quietFlag bool
	var outputFlag string

	ctx := newCommandContext(&envFileFlag, &quietFlag, &outputFlag)

	rootCmd := &cobra.Command{
		Use:           "cuesplit",
		Short:         "Parse cue sheets and split single-file albums into tracks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFlag {
			case outputAuto, outputTable, outputJSON:
				return nil
			}
			return fmt.Errorf("unknown output format %q (want auto, table or json)", outputFlag)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load configuration from this .env file")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress progress logging")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", outputAuto, "Output format: auto, table or json")

	rootCmd.AddCommand(newInspectCommand(ctx))
	rootCmd.AddCommand(newSegmentsCommand(ctx))
	rootCmd.AddCommand(newSplitCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))

	return rootCmd
}
