// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Output writes command results to the command's stdout, either as colored
// text or as indented JSON.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance. Color follows the terminal and
// is always off in JSON mode.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && !noColor && !color.NoColor,
	}
}

// IsJSON reports whether --json was passed.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success, Error, Warning, Info, Bold and Dim print one styled line.
func (o *Output) Success(format string, args ...interface{}) {
	o.line(color.New(color.FgGreen), format, args...)
}

func (o *Output) Error(format string, args ...interface{}) {
	o.line(color.New(color.FgRed), format, args...)
}

func (o *Output) Warning(format string, args ...interface{}) {
	o.line(color.New(color.FgYellow), format, args...)
}

func (o *Output) Info(format string, args ...interface{}) {
	o.line(color.New(color.FgCyan), format, args...)
}

func (o *Output) Bold(format string, args ...interface{}) {
	o.line(color.New(color.Bold), format, args...)
}

func (o *Output) Dim(format string, args ...interface{}) {
	o.line(color.New(color.Faint), format, args...)
}

func (o *Output) line(c *color.Color, format string, args ...interface{}) {
	fmt.Fprintln(o.writer, o.paint(c, fmt.Sprintf(format, args...)))
}

// paint applies c to text when color is enabled.
func (o *Output) paint(c *color.Color, text string) string {
	if !o.colorEnabled {
		return text
	}
	c.EnableColor()
	return c.Sprint(text)
}

// Green, Red, Yellow and DimText style a table cell or inline value.
func (o *Output) Green(text string) string {
	return o.paint(color.New(color.FgGreen), text)
}

func (o *Output) Red(text string) string {
	return o.paint(color.New(color.FgRed), text)
}

func (o *Output) Yellow(text string) string {
	return o.paint(color.New(color.FgYellow), text)
}

func (o *Output) DimText(text string) string {
	return o.paint(color.New(color.Faint), text)
}

// FormatPnL formats P&L colored by sign.
func (o *Output) FormatPnL(pnl float64) string {
	formatted := FormatPnL(pnl)
	switch {
	case strings.HasPrefix(formatted, "+"):
		return o.Green(formatted)
	case strings.HasPrefix(formatted, "-"):
		return o.Red(formatted)
	}
	return formatted
}

// FormatOptionalPnL formats a nullable P&L, rendering nil as a dash.
func (o *Output) FormatOptionalPnL(pnl *float64) string {
	if pnl == nil {
		return o.DimText("-")
	}
	return o.FormatPnL(*pnl)
}

// Table buffers rows and pads columns to the widest visible cell.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

func NewTable(output *Output, headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		output:  output,
	}
}

func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header, a separator and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = visibleLen(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && visibleLen(cell) > widths[i] {
				widths[i] = visibleLen(cell)
			}
		}
	}

	t.printRow(t.headers, widths, true)
	t.printSeparator(widths)
	for _, row := range t.rows {
		t.printRow(row, widths, false)
	}
}

func (t *Table) printRow(cells []string, widths []int, isHeader bool) {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		padding := widths[i] - visibleLen(cell)
		if padding < 0 {
			padding = 0
		}
		padded := cell + strings.Repeat(" ", padding)
		if isHeader {
			padded = t.output.paint(color.New(color.Bold), padded)
		}
		parts = append(parts, padded)
	}
	t.output.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}

func (t *Table) printSeparator(widths []int) {
	var parts []string
	for _, w := range widths {
		parts = append(parts, strings.Repeat("-", w))
	}
	t.output.Println(t.output.DimText(strings.Join(parts, "  ")))
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visibleLen returns the printed width of s, ignoring color escapes.
func visibleLen(s string) int {
	return len([]rune(ansiPattern.ReplaceAllString(s, "")))
}
