package whiteboard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Format selects how Render lays out a board.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, csv or markdown)", s)
}

// Render writes objs as a table in the requested format.
func Render(objs []Object, format Format) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "ID", "Type", "Origin", "Properties"})
	for i, o := range objs {
		t.AppendRow(table.Row{i + 1, o.ID, o.Type, o.Origin, formatProps(o.Props)})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(objs)})

	switch format {
	case FormatCSV:
		return t.RenderCSV()
	case FormatMarkdown:
		return t.RenderMarkdown()
	default:
		t.SetStyle(table.StyleRounded)
		return t.Render()
	}
}

func formatProps(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, props[k]))
	}
	return strings.Join(parts, " ")
}
