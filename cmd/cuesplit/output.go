package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	outputAuto  = "auto"
	outputTable = "table"
	outputJSON  = "json"
)

// wantTable 在 auto 模式下只有终端输出表格，管道输出 JSON
func (c *commandContext) wantTable(cmd *cobra.Command) bool {
	switch *c.outputFlag {
	case outputTable:
		return true
	case outputJSON:
		return false
	}
	return isTerminal(cmd.OutOrStdout())
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
