package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// UI writes colored messages and tables.
type UI struct {
	Out    io.Writer
	ErrOut io.Writer
}

var (
	successPrefix = color.New(color.FgHiGreen).Sprint("✓")
	errorPrefix   = color.New(color.FgHiRed).Sprint("✗")
	cyan          = color.New(color.FgHiCyan).SprintFunc()
	green         = color.New(color.FgHiGreen).SprintFunc()
	yellow        = color.New(color.FgHiYellow).SprintFunc()
	red           = color.New(color.FgHiRed).SprintFunc()
	magenta       = color.New(color.FgHiMagenta).SprintFunc()
)

// StatusColor colors a bug status.
func StatusColor(status string) string {
	switch strings.ToLower(status) {
	case "open":
		return green(status)
	case "in-progress":
		return yellow(status)
	case "resolved":
		return cyan(status)
	case "closed":
		return red(status)
	default:
		return status
	}
}

// PriorityColor colors a bug priority.
func PriorityColor(priority string) string {
	switch strings.ToLower(priority) {
	case "critical":
		return magenta(priority)
	case "high":
		return red(priority)
	case "medium":
		return yellow(priority)
	default:
		return priority
	}
}

func (u *UI) Success(format string, a ...any) {
	fmt.Fprintf(u.Out, "%s %s\n", successPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Error(format string, a ...any) {
	fmt.Fprintf(u.ErrOut, "%s %s\n", errorPrefix, fmt.Sprintf(format, a...))
}

func (u *UI) Println(a ...any) {
	fmt.Fprintln(u.Out, a...)
}

func (u *UI) Printf(format string, a ...any) {
	fmt.Fprintf(u.Out, format+"\n", a...)
}

// Table creates a borderless, left-aligned table.
func (u *UI) Table(headers []string) *tablewriter.Table {
	table := tablewriter.NewTable(u.Out,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header(headers)
	return table
}
