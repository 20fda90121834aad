package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column 描述表格的一列。Transform 为空时单元格按 %v 输出。
type column struct {
	Header    string
	Align     text.Align
	Transform text.Transformer
}

func left(header string) column  { return column{Header: header, Align: text.AlignLeft} }
func right(header string) column { return column{Header: header, Align: text.AlignRight} }

// renderTable 按列描述渲染圆角表格，行比列短时补空单元格
func renderTable(columns []column, rows []table.Row) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.Header
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       c.Align,
			AlignHeader: text.AlignLeft,
			Transformer: c.Transform,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

// localTime 把 time.Time 单元格格式化为本地时间，零值显示为 "-"
func localTime(layout string) text.Transformer {
	return func(val interface{}) string {
		t, ok := val.(time.Time)
		if !ok {
			return fmt.Sprint(val)
		}
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format(layout)
	}
}

// truncate 只保留字符串单元格的前 n 个字节
func truncate(n int) text.Transformer {
	return func(val interface{}) string {
		s := fmt.Sprint(val)
		if len(s) > n {
			return s[:n]
		}
		return s
	}
}
