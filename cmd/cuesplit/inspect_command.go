package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yleoer/cuesplit/pkg/cue"
	"github.com/yleoer/cuesplit/pkg/util"
)

type fieldView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type indexView struct {
	Number       int         `json:"number"`
	Time         string      `json:"time"`
	Milliseconds json.Number `json:"ms"`
}

type trackView struct {
	Number  int         `json:"number"`
	Type    string      `json:"type"`
	Title   string      `json:"title"`
	Indices []indexView `json:"indices"`
	Flags   []string    `json:"flags,omitempty"`
	Pregap  string      `json:"pregap,omitempty"`
	Postgap string      `json:"postgap,omitempty"`
	ISRC    string      `json:"isrc,omitempty"`
	Fields  []fieldView `json:"fields,omitempty"`
}

type fileView struct {
	Path   string      `json:"path"`
	Type   string      `json:"type"`
	Tracks []trackView `json:"tracks"`
}

type sheetView struct {
	Title      string      `json:"title"`
	Performer  string      `json:"performer"`
	Date       string      `json:"date,omitempty"`
	Genre      string      `json:"genre,omitempty"`
	CDTextFile string      `json:"cdtextfile,omitempty"`
	Fields     []fieldView `json:"fields,omitempty"`
	Files      []fileView  `json:"files"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.cue>",
		Short: "Parse a cue sheet and print its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := cue.ParseFile(args[0])
			if err != nil {
				return err
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, newSheetView(sheet))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSheet(sheet))
			return nil
		},
	}
}

func newSheetView(sheet *cue.Sheet) sheetView {
	v := sheetView{
		Title:      sheet.Title,
		Performer:  sheet.Performer,
		Date:       sheet.Date,
		Genre:      sheet.Genre,
		CDTextFile: sheet.CDTextFile,
		Fields:     fieldViews(sheet.Fields),
		Files:      make([]fileView, 0, len(sheet.Files)),
	}
	for _, f := range sheet.Files {
		fv := fileView{Path: f.Path, Type: f.Type, Tracks: make([]trackView, 0, len(f.Tracks))}
		for _, tr := range f.Tracks {
			tv := trackView{
				Number:  tr.Number,
				Type:    tr.Type,
				Title:   tr.Title,
				Indices: make([]indexView, 0, len(tr.Indices)),
				Flags:   tr.Flags,
				ISRC:    tr.ISRC,
				Fields:  fieldViews(tr.Fields),
			}
			for _, idx := range tr.Indices {
				tv.Indices = append(tv.Indices, indexView{
					Number:       idx.Number,
					Time:         idx.Time.String(),
					Milliseconds: json.Number(cue.FormatMilliseconds(idx.Time.Milliseconds())),
				})
			}
			if tr.Pregap != nil {
				tv.Pregap = tr.Pregap.String()
			}
			if tr.Postgap != nil {
				tv.Postgap = tr.Postgap.String()
			}
			fv.Tracks = append(fv.Tracks, tv)
		}
		v.Files = append(v.Files, fv)
	}
	return v
}

func fieldViews(fields []cue.Field) []fieldView {
	if len(fields) == 0 {
		return nil
	}
	out := make([]fieldView, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldView{Name: f.Name, Value: f.Value})
	}
	return out
}

func renderSheet(sheet *cue.Sheet) string {
	rows := []table.Row{
		{"Title", sheet.Title},
		{"Performer", sheet.Performer},
	}
	if sheet.Date != "" {
		rows = append(rows, table.Row{"Date", sheet.Date})
	}
	if sheet.Genre != "" {
		rows = append(rows, table.Row{"Genre", sheet.Genre})
	}
	if sheet.CDTextFile != "" {
		rows = append(rows, table.Row{"CD-Text File", sheet.CDTextFile})
	}
	for _, f := range sheet.Fields {
		switch f.Name {
		case "TITLE", "PERFORMER", "DATE", "GENRE":
			continue
		}
		rows = append(rows, table.Row{f.Name, f.Value})
	}

	var b strings.Builder
	b.WriteString(renderTable([]column{left("Field"), left("Value")}, rows))
	for _, f := range sheet.Files {
		fmt.Fprintf(&b, "\n\nFILE %s (%s)\n", f.Path, f.Type)
		trackRows := make([]table.Row, 0, len(f.Tracks))
		for _, tr := range f.Tracks {
			start, offset := "-", "-"
			if t, ok := tr.Start(); ok {
				start = t.String()
				offset = util.FormatDurationToFFmpegTime(t.Duration())
			}
			performer, _ := tr.Field("PERFORMER")
			trackRows = append(trackRows, table.Row{
				tr.Number,
				tr.Type,
				tr.Title,
				performer,
				start,
				offset,
				strings.Join(tr.Flags, " "),
				tr.ISRC,
			})
		}
		b.WriteString(renderTable([]column{
			right("#"), left("Type"), left("Title"), left("Performer"), left("Index 01"), right("Offset"), left("Flags"), left("ISRC"),
		}, trackRows))
	}
	return b.String()
}
