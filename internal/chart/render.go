package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/avollmer/capview/internal/capper"
)

const (
	minBarWidth         = 10
	maxLabelWidth       = 24
	terminalWidthBackup = 80
	colorReset          = "\x1b[0m"
	othersColor         = "\x1b[90m"
	barRune             = '█'
)

var barPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
	"\x1b[32m", // green
	"\x1b[34m", // blue
}

// Render writes the chart rows as a horizontal bar chart: label, bar
// scaled to the largest value, value, and share of the displayed total.
func (c *Chart) Render(w io.Writer, title string, entries []Entry, width int) error {
	return c.render(w, title, entries, width, false)
}

// RenderWithColor is Render with optional forced color output.
func (c *Chart) RenderWithColor(w io.Writer, title string, entries []Entry, width int, forceColor bool) error {
	return c.render(w, title, entries, width, forceColor)
}

func (c *Chart) render(w io.Writer, title string, entries []Entry, width int, forceColor bool) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "(no data)")
		return err
	}

	if width <= 0 {
		width = autoWidth()
	}

	labels := make([]string, len(entries))
	values := make([]float64, len(entries))
	labelWidth := 0
	var total, maxVal float64
	for i, e := range entries {
		labels[i] = truncateLabel(c.Label(e, i), maxLabelWidth)
		values[i] = c.Value(e, i)
		if lw := runewidth.StringWidth(labels[i]); lw > labelWidth {
			labelWidth = lw
		}
		total += values[i]
		if values[i] > maxVal {
			maxVal = values[i]
		}
	}

	valueWidth := 0
	valueCells := make([]string, len(entries))
	for i, v := range values {
		valueCells[i] = formatValue(v)
		if len(valueCells[i]) > valueWidth {
			valueWidth = len(valueCells[i])
		}
	}

	// label + bar + value + percent, single-space separated.
	barWidth := width - labelWidth - valueWidth - len(" 100.0%") - 2
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}

	useColor := shouldUseColor(w, forceColor)
	for i, e := range entries {
		bar := makeBar(values[i], maxVal, barWidth)
		if useColor {
			color := barPalette[i%len(barPalette)]
			if e.IsBucket() {
				color = othersColor
			}
			bar = color + bar + colorReset
		}
		pct := 0.0
		if total != 0 {
			pct = values[i] / total * 100
		}
		line := fmt.Sprintf("%s %s %s %5.1f%%",
			padRight(labels[i], labelWidth),
			bar,
			padLeft(valueCells[i], valueWidth),
			pct)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func makeBar(value, maxVal float64, width int) string {
	if maxVal <= 0 || value <= 0 || width <= 0 {
		return strings.Repeat(" ", width)
	}
	n := int(math.Round(value / maxVal * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat(string(barRune), n) + strings.Repeat(" ", width-n)
}

func bucketLabel(b *capper.OthersBucket) string {
	return fmt.Sprintf("%s (+%d)", b.Label, len(b.Keys))
}

func truncateLabel(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// formatValue renders a number with two decimals, dropping them when
// the value is integral.
func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func padRight(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

func padLeft(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return strings.Repeat(" ", gap) + s
}

func autoWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
