package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yleoer/cuesplit/pkg/database"
)

type runView struct {
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	RunID       string    `json:"run_id"`
	ProcessedAt time.Time `json:"processed_at"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List cue sheets recorded as processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
			}
			store, err := database.NewSQLiteStore(cfg.DBPath, ctx.logger(cmd))
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.ProcessedRuns()
			if err != nil {
				return err
			}
			if !ctx.wantTable(cmd) {
				views := make([]runView, 0, len(records))
				for _, r := range records {
					views = append(views, runView(r))
				}
				return writeJSON(cmd, views)
			}
			rows := make([]table.Row, 0, len(records))
			for _, r := range records {
				rows = append(rows, table.Row{r.ProcessedAt, r.RunID, r.Path, r.Checksum})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
				{Header: "Processed", Transform: localTime("2006-01-02 15:04:05")},
				left("Run"),
				left("Cue"),
				{Header: "Checksum", Transform: truncate(12)},
			}, rows))
			return nil
		},
	}
}
