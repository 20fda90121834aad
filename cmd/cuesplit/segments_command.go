package main

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yleoer/cuesplit/pkg/cue"
	"github.com/yleoer/cuesplit/pkg/util"
)

type segmentView struct {
	Track int               `json:"track"`
	Title string            `json:"title"`
	Start json.Number       `json:"start"`
	End   json.Number       `json:"end,omitempty"`
	Tags  map[string]string `json:"tags"`
}

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "segments <file.cue>",
		Short: "Print the split boundaries of every track in milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheet, err := cue.ParseFile(args[0])
			if err != nil {
				return err
			}
			segments, err := cue.Resolve(sheet)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, newSegmentViews(segments))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSegments(segments))
			return nil
		},
	}
}

func newSegmentViews(segments []cue.Segment) []segmentView {
	out := make([]segmentView, 0, len(segments))
	for _, seg := range segments {
		out = append(out, segmentView{
			Track: seg.Track.Number,
			Title: seg.Tags[cue.TagTitle],
			Start: json.Number(seg.FormatStart()),
			End:   json.Number(seg.FormatEnd()),
			Tags:  seg.Tags,
		})
	}
	return out
}

func renderSegments(segments []cue.Segment) string {
	rows := make([]table.Row, 0, len(segments))
	for _, seg := range segments {
		end, endTime := "-", "-"
		if seg.HasEnd {
			end = seg.FormatEnd()
			endTime = util.FormatDurationToFFmpegTime(seg.EndDuration())
		}
		rows = append(rows, table.Row{
			seg.Track.Number,
			seg.Tags[cue.TagTitle],
			seg.FormatStart(),
			end,
			util.FormatDurationToFFmpegTime(seg.StartDuration()),
			endTime,
		})
	}
	return renderTable([]column{
		right("#"), left("Title"), right("Start (ms)"), right("End (ms)"), right("Start"), right("End"),
	}, rows)
}
