// Package tui provides the Bubble Tea chart explorer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avollmer/capview/internal/capper"
	"github.com/avollmer/capview/internal/chart"
	"github.com/avollmer/capview/internal/model"
	"github.com/avollmer/capview/internal/store"
)

const (
	labelColWidth = 24
	valueColWidth = 12
	shareColWidth = 7
	minBarCol     = 10
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	othersStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
)

// drillLevel is one step of the Others drill-in stack. A nil key set
// marks the unfiltered root view.
type drillLevel struct {
	label string
	keys  []string
}

// Model implements the Bubble Tea chart explorer.
type Model struct {
	store *store.Store
	cfg   model.ViewConfig

	chart   *chart.Chart
	entries []chart.Entry
	drill   []drillLevel

	rows   table.Model
	width  int
	height int

	errMsg string
	notice string
}

// NewModel constructs a chart explorer model.
func NewModel(st *store.Store, cfg model.ViewConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		drill: []drillLevel{{label: cfg.Dimension}},
	}

	capVal := capper.Unbounded
	if cfg.Cap > 0 {
		capVal = cfg.Cap
	}
	label := cfg.OthersLabel
	if label == "" {
		label = "Others"
	}
	m.chart = chart.New(
		chart.SourceFunc(m.currentGroups),
		capper.WithCap[model.Group](capVal),
		capper.WithTakeFront[model.Group](cfg.TakeFront),
		capper.WithOthersLabel[model.Group](label),
	)

	// Base selection behavior: report the pick and, for a plain row,
	// filter down to that single key.
	m.chart.OnSelect(func(e chart.Entry) {
		m.notice = fmt.Sprintf("selected %s", m.chart.Label(e, 0))
		if !e.IsBucket() {
			m.drill = append(m.drill, drillLevel{
				label: m.chart.Label(e, 0),
				keys:  []string{e.Raw.Key},
			})
		}
	})
	// Drill-in runs before the base behavior and pushes a filter level.
	m.chart.EnableDrillIn(func(keys []string) {
		m.drill = append(m.drill, drillLevel{
			label: fmt.Sprintf("%s (%d)", m.chart.Capper().OthersLabel(), len(keys)),
			keys:  keys,
		})
	})

	m.initTable()
	m.refresh()
	return m
}

// currentGroups queries the store for the active drill level.
func (m *Model) currentGroups(ctx context.Context) ([]model.Group, error) {
	top := m.drill[len(m.drill)-1]
	if top.keys == nil {
		return m.store.GroupTotals(ctx, m.cfg.Dataset, m.cfg.Dimension)
	}
	return m.store.GroupTotalsForKeys(ctx, m.cfg.Dataset, m.cfg.Dimension, top.keys)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			return m.selectCurrent()
		case "esc", "backspace":
			if len(m.drill) > 1 {
				m.drill = m.drill[:len(m.drill)-1]
				m.refresh()
			}
			return m, nil
		case "+", "=":
			c := m.chart.Capper()
			if c.Cap() != capper.Unbounded {
				c.SetCap(c.Cap() + 1)
				m.refresh()
			}
			return m, nil
		case "-":
			c := m.chart.Capper()
			switch {
			case c.Cap() == capper.Unbounded:
				if len(m.entries) > 0 {
					c.SetCap(len(m.entries) - 1)
					m.refresh()
				}
			case c.Cap() > 0:
				c.SetCap(c.Cap() - 1)
				m.refresh()
			}
			return m, nil
		case "u":
			m.chart.Capper().SetCap(capper.Unbounded)
			m.refresh()
			return m, nil
		case "f":
			c := m.chart.Capper()
			c.SetTakeFront(!c.TakeFront())
			m.refresh()
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		default:
			var cmd tea.Cmd
			m.rows, cmd = m.rows.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// selectCurrent runs the selection chain for the highlighted row.
func (m *Model) selectCurrent() (tea.Model, tea.Cmd) {
	i := m.rows.Cursor()
	if i < 0 || i >= len(m.entries) {
		return m, nil
	}
	// Every selection pushes a drill level: the bridge pushes the
	// bucket's absorbed keys, the base handler a single key.
	m.chart.Select(m.entries[i])
	m.refresh()
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	parts := []string{
		m.renderHeader(),
		m.rows.View(),
		m.renderFooter(),
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	title := m.cfg.Title
	if title == "" {
		title = fmt.Sprintf("%s by %s", m.cfg.Dataset, m.cfg.Dimension)
	}
	path := make([]string, 0, len(m.drill))
	for _, lvl := range m.drill {
		path = append(path, lvl.label)
	}
	c := m.chart.Capper()
	capLabel := "∞"
	if c.Cap() != capper.Unbounded {
		capLabel = fmt.Sprintf("%d", c.Cap())
	}
	direction := "front"
	if !c.TakeFront() {
		direction = "back"
	}
	summary := fmt.Sprintf("%s  cap=%s  direction=%s", strings.Join(path, " ▸ "), capLabel, direction)
	return titleStyle.Render(title) + "\n" + headerStyle.Render(summary)
}

func (m *Model) renderFooter() string {
	help := "Select: enter  Back: esc  Cap: -/+/u  Direction: f  Reload: r  Quit: q"
	footer := headerStyle.Render(help)
	if m.errMsg != "" {
		return footer + "\n" + errorStyle.Render(m.errMsg)
	}
	if m.notice != "" {
		return footer + "\n" + noticeStyle.Render(m.notice)
	}
	return footer
}

func (m *Model) initTable() {
	m.rows = table.New(
		table.WithColumns(chartColumns(80)),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#3A3A3A")).
		Bold(true)
	m.rows.SetStyles(styles)
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.rows.SetColumns(chartColumns(m.width))
	m.rows.SetWidth(m.width)
	headerHeight := 2
	footerHeight := 2
	bodyHeight := m.height - headerHeight - footerHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.rows.SetHeight(bodyHeight)
	m.applyRows()
}

// refresh re-runs the transform against the store and rebuilds rows.
func (m *Model) refresh() {
	entries, err := m.chart.Data(context.Background())
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.entries = entries
	m.applyRows()
}

func (m *Model) applyRows() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.rows.SetRows(buildRows(m.chart, m.entries, barColWidth(width)))
	if m.rows.Cursor() >= len(m.entries) {
		m.rows.SetCursor(0)
	}
}

func chartColumns(width int) []table.Column {
	return []table.Column{
		{Title: "Category", Width: labelColWidth},
		{Title: "", Width: barColWidth(width)},
		{Title: "Value", Width: valueColWidth},
		{Title: "Share", Width: shareColWidth},
	}
}

func barColWidth(width int) int {
	w := width - labelColWidth - valueColWidth - shareColWidth - 8
	if w < minBarCol {
		return minBarCol
	}
	return w
}

// buildRows converts presentation entries into table rows.
func buildRows(c *chart.Chart, entries []chart.Entry, barWidth int) []table.Row {
	var total, maxVal float64
	for i, e := range entries {
		v := c.Value(e, i)
		total += v
		if v > maxVal {
			maxVal = v
		}
	}
	rows := make([]table.Row, 0, len(entries))
	for i, e := range entries {
		v := c.Value(e, i)
		pct := 0.0
		if total != 0 {
			pct = v / total * 100
		}
		label := c.Label(e, i)
		if e.IsBucket() {
			label = othersStyle.Render(label)
		}
		rows = append(rows, table.Row{
			label,
			textBar(v, maxVal, barWidth),
			fmt.Sprintf("%.2f", v),
			fmt.Sprintf("%.1f%%", pct),
		})
	}
	return rows
}

func textBar(value, maxVal float64, width int) string {
	if maxVal <= 0 || value <= 0 || width <= 0 {
		return ""
	}
	n := int(value / maxVal * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}
