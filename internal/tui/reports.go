package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/ctxlog"

	"github.com/reportview/reportview/pkg/client"
	"github.com/reportview/reportview/pkg/domain"
)

type reportsLoadedMsg struct {
	reports []domain.Report
	err     error
}

// selectMsg is emitted when the user picks a report or an assignment.
type selectMsg struct {
	sel domain.Selection
}

// reportRow is one line of the report list: a report header when
// assignment is -1, otherwise one of that report's assignments.
type reportRow struct {
	report     int
	assignment int
}

type reportsModel struct {
	client    *client.Client
	ctx       context.Context
	reports   []domain.Report
	rows      []reportRow
	cursor    int
	loading   bool
	err       error
	filter    string
	filtering bool
	width     int
	height    int
}

func newReportsModel(ctx context.Context, c *client.Client) reportsModel {
	return reportsModel{client: c, ctx: ctx, loading: true}
}

func (m reportsModel) Init() tea.Cmd {
	return m.load()
}

func (m reportsModel) load() tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		reports, err := c.ListReports(ctx)
		if err != nil {
			ctxlog.From(ctx).Warn("list reports failed", "error", err)
			return reportsLoadedMsg{err: err}
		}
		return reportsLoadedMsg{reports: reports}
	}
}

func (m reportsModel) Update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.reports = msg.reports
		m.rebuild()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.handleFilterKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m reportsModel) handleFilterKey(msg tea.KeyMsg) (reportsModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter = ""
	case "enter":
		m.filtering = false
	default:
		m.filter = editRune(m.filter, msg.String())
	}
	m.rebuild()
	return m, nil
}

func (m reportsModel) handleKey(msg tea.KeyMsg) (reportsModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}
	case "/":
		m.filtering = true
	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.load()
	case "enter":
		sel, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return selectMsg{sel: sel} }
	}
	return m, nil
}

// selected returns the selection for the row under the cursor.
func (m reportsModel) selected() (domain.Selection, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return domain.Selection{}, false
	}
	row := m.rows[m.cursor]
	r := m.reports[row.report]
	if row.assignment < 0 {
		return domain.ReportSelection(r.ID), true
	}
	return domain.AssignmentSelection(r.ID, r.Assignments[row.assignment].Name), true
}

// rebuild recomputes the visible rows from the reports and the filter.
// The cursor is clamped to the new row count.
func (m *reportsModel) rebuild() {
	m.rows = nil
	q := strings.ToLower(m.filter)
	for i, r := range m.reports {
		idMatch := q == "" || strings.HasPrefix(r.Label(), q)
		var matched []int
		for j, a := range r.Assignments {
			if idMatch || strings.Contains(strings.ToLower(a.Name), q) {
				matched = append(matched, j)
			}
		}
		if !idMatch && len(matched) == 0 {
			continue
		}
		m.rows = append(m.rows, reportRow{report: i, assignment: -1})
		for _, j := range matched {
			m.rows = append(m.rows, reportRow{report: i, assignment: j})
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(0, len(m.rows)-1)
	}
}

func (m reportsModel) View() string {
	var sb strings.Builder
	sb.WriteString(" " + sectionHeaderStyle.Render("── REPORTS ──") + "\n")

	if m.filtering || m.filter != "" {
		sb.WriteString(" " + renderInput("/ ", m.filter, "id or assignment", m.filtering, false) + "\n")
	}

	if m.err != nil && len(m.reports) > 0 {
		// Keep the last good list on screen; enter still selects from it.
		sb.WriteString(" " + errorStyle.Render("reports error ("+client.Kind(m.err)+")") + " " + helpEntry("r", "retry") + "\n")
	} else if m.err != nil {
		sb.WriteString("\n " + errorStyle.Render("reports error ("+client.Kind(m.err)+")") + "\n")
		sb.WriteString(" " + dimStyle.Render(truncStr(m.err.Error(), max(20, m.width-2))) + "\n")
		sb.WriteString("\n " + helpEntry("r", "retry") + "\n")
		return sb.String()
	}
	if m.loading && len(m.reports) == 0 {
		sb.WriteString("\n " + dimStyle.Render("loading...") + "\n")
		return sb.String()
	}
	if len(m.reports) == 0 {
		sb.WriteString("\n " + dimStyle.Render("no reports") + "\n")
		return sb.String()
	}
	if len(m.rows) == 0 {
		sb.WriteString("\n " + dimStyle.Render("no reports match "+strconv.Quote(m.filter)) + "\n")
		return sb.String()
	}

	start, end := m.window()
	nameWidth := max(12, m.width-20)
	for i := start; i < end; i++ {
		row := m.rows[i]
		r := m.reports[row.report]
		prefix := "  "
		if i == m.cursor {
			prefix = accentStyle.Render("> ")
		}
		var line string
		if row.assignment < 0 {
			label := fmt.Sprintf("report %s", r.Label())
			meta := metaStyle.Render(fmt.Sprintf(" %d assignments", len(r.Assignments)))
			if i == m.cursor {
				line = prefix + selectedStyle.Render(label) + meta
			} else {
				line = prefix + normalStyle.Render(label) + meta
			}
		} else {
			a := r.Assignments[row.assignment]
			name := fmt.Sprintf("%-*s", min(nameWidth, 24), truncStr(a.Name, nameWidth))
			if i == m.cursor {
				name = selectedStyle.Render(name)
			} else {
				name = dimStyle.Render(name)
			}
			line = prefix + "  " + name + " " + StatusStyle(a.Status).Render(a.Status)
		}
		sb.WriteString(line + "\n")
	}
	if m.loading {
		sb.WriteString(" " + dimStyle.Render("refreshing...") + "\n")
	}
	return sb.String()
}

// window returns the visible row range, keeping the cursor on screen.
func (m reportsModel) window() (int, int) {
	visible := m.height - 4
	if m.err != nil {
		visible--
	}
	if visible <= 0 || len(m.rows) <= visible {
		return 0, len(m.rows)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	return start, min(len(m.rows), start+visible)
}
