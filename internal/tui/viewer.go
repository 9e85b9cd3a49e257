package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/ctxlog"

	"github.com/reportview/reportview/internal/browser"
	"github.com/reportview/reportview/internal/document"
	"github.com/reportview/reportview/internal/session"
	"github.com/reportview/reportview/pkg/client"
	"github.com/reportview/reportview/pkg/domain"
)

type viewerState int

const (
	viewerIdle viewerState = iota
	viewerReport
	viewerAssignment
	viewerLogin
)

func (s viewerState) String() string {
	switch s {
	case viewerIdle:
		return "idle"
	case viewerReport:
		return "report"
	case viewerAssignment:
		return "assignment"
	case viewerLogin:
		return "login"
	}
	return fmt.Sprintf("viewerState(%d)", int(s))
}

// Results carry the generation they were issued for. A result whose
// generation no longer matches the viewer's is stale and dropped.
type filesLoadedMsg struct {
	gen   int
	files []string
	err   error
}

type documentLoadedMsg struct {
	gen int
	res *document.Resource
	err error
}

type openResultMsg struct{ err error }

type copyResultMsg struct {
	text string
	err  error
}

type viewerModel struct {
	client *client.Client
	ctx    context.Context
	store  session.Store
	holder *document.Holder
	docDir string
	open   func(string) error
	copy   func(string) error

	state   viewerState
	sel     domain.Selection
	gen     int
	loading bool
	files   []string
	cursor  int
	err     error
	notice  string
	login   loginModel
	width   int
}

func newViewerModel(ctx context.Context, c *client.Client, store session.Store, holder *document.Holder) viewerModel {
	return viewerModel{
		client: c,
		ctx:    ctx,
		store:  store,
		holder: holder,
		open:   browser.Open,
		copy:   clipboard.WriteAll,
	}
}

// Open switches the viewer to sel. Picking the selection that is already on
// screen does nothing; use retry to force a reload.
func (m viewerModel) Open(sel domain.Selection) (viewerModel, tea.Cmd) {
	if m.state != viewerIdle && m.state != viewerLogin && m.err == nil && m.sel == sel {
		return m, nil
	}
	m.sel = sel
	return m.issue()
}

// Resume re-issues the selection that was waiting on a login.
func (m viewerModel) Resume() (viewerModel, tea.Cmd) {
	if m.state != viewerLogin {
		return m, nil
	}
	return m.issue()
}

// Close returns the viewer to idle and releases the displayed document.
// In-flight results are invalidated.
func (m viewerModel) Close() viewerModel {
	m.gen++
	m.state = viewerIdle
	m.sel = domain.Selection{}
	m.loading = false
	m.files = nil
	m.cursor = 0
	m.err = nil
	m.notice = ""
	m.releaseDocument()
	return m
}

func (m viewerModel) issue() (viewerModel, tea.Cmd) {
	m.gen++
	m.err = nil
	m.notice = ""
	m.files = nil
	m.cursor = 0
	m.releaseDocument()

	logger := ctxlog.From(m.ctx).With("selection", m.sel.Key(), "gen", m.gen)
	switch m.sel.Kind {
	case domain.SelectReport:
		m.state = viewerReport
		m.loading = true
		token, _ := m.store.Get()
		logger.Debug("loading files")
		return m, m.fetchFiles(m.gen, m.sel.ReportID, token)

	case domain.SelectAssignment:
		token, ok := m.store.Get()
		if !ok {
			logger.Debug("no session token, asking for login")
			m.state = viewerLogin
			m.loading = false
			m.login = newLoginModel(m.ctx, m.client, m.gen, nil)
			return m, nil
		}
		m.state = viewerAssignment
		m.loading = true
		logger.Debug("loading document")
		return m, m.fetchDocument(m.gen, m.sel, token)
	}
	return m, nil
}

func (m viewerModel) fetchFiles(gen int, reportID int64, token string) tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		files, err := c.ListFiles(ctx, reportID, token)
		if err != nil {
			ctxlog.From(ctx).Warn("list files failed", "error", err)
		}
		return filesLoadedMsg{gen: gen, files: files, err: err}
	}
}

func (m viewerModel) fetchDocument(gen int, sel domain.Selection, token string) tea.Cmd {
	c, ctx, holder, dir := m.client, m.ctx, m.holder, m.docDir
	return func() tea.Msg {
		res, err := loadDocument(ctx, c, holder, dir, sel, token)
		if err != nil {
			ctxlog.From(ctx).Warn("load document failed", "error", err)
		}
		return documentLoadedMsg{gen: gen, res: res, err: err}
	}
}

// loadDocument fetches and decodes the document, then writes it to a temp
// file that holder tracks until it is installed or discarded.
func loadDocument(ctx context.Context, c *client.Client, holder *document.Holder, dir string, sel domain.Selection, token string) (*document.Resource, error) {
	payload, err := c.FetchAssignmentDocument(ctx, sel.ReportID, sel.Assignment, token)
	if err != nil {
		return nil, err
	}
	data, err := document.Decode(payload)
	if err != nil {
		return nil, err
	}
	res, err := document.Acquire(dir, sel.Assignment, data)
	if err != nil {
		return nil, err
	}
	if holder == nil {
		return res, nil
	}
	if err := holder.Track(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m viewerModel) discardDocument(res *document.Resource) {
	if res == nil {
		return
	}
	var err error
	if m.holder != nil {
		err = m.holder.Discard(res)
	} else {
		err = res.Release()
	}
	if err != nil {
		ctxlog.From(m.ctx).Warn("release stale document failed", "error", err)
	}
}

func (m viewerModel) releaseDocument() {
	if m.holder == nil {
		return
	}
	if err := m.holder.Release(); err != nil {
		ctxlog.From(m.ctx).Warn("release document failed", "error", err)
	}
}

func (m viewerModel) document() *document.Resource {
	if m.holder == nil || m.state != viewerAssignment {
		return nil
	}
	return m.holder.Current()
}

func (m viewerModel) Update(msg tea.Msg) (viewerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case filesLoadedMsg:
		if msg.gen != m.gen || m.state != viewerReport {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.files = msg.files
		return m, nil

	case documentLoadedMsg:
		if msg.gen != m.gen || m.state != viewerAssignment {
			m.discardDocument(msg.res)
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			if errors.Is(msg.err, client.ErrAuth) {
				m.state = viewerLogin
				m.login = newLoginModel(m.ctx, m.client, m.gen, msg.err)
				return m, nil
			}
			m.err = msg.err
			return m, nil
		}
		if err := m.holder.Install(msg.res); err != nil {
			ctxlog.From(m.ctx).Warn("release superseded document failed", "error", err)
		}
		return m, nil

	case loginResultMsg:
		if m.state == viewerLogin && msg.gen == m.gen {
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		// The form that asked is gone. A failure has nowhere to go, but a
		// token is still worth keeping.
		if msg.err != nil {
			return m, nil
		}
		token := msg.token
		return m, func() tea.Msg { return loginSucceededMsg{token: token} }

	case openResultMsg:
		if msg.err != nil {
			m.notice = "open failed: " + msg.err.Error()
		} else {
			m.notice = "opened in system viewer"
		}
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			m.notice = "copy failed: " + msg.err.Error()
		} else {
			m.notice = "copied " + msg.text
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m viewerModel) handleKey(msg tea.KeyMsg) (viewerModel, tea.Cmd) {
	if msg.String() == "esc" {
		return m.Close(), nil
	}
	if m.state == viewerLogin {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "r":
		return m.issue()
	case "x":
		m.err = nil
		m.notice = ""
	case "j", "down":
		if m.cursor < len(m.files)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "c":
		var text string
		if doc := m.document(); doc != nil {
			text = doc.Path
		} else if m.state == viewerReport && m.cursor < len(m.files) {
			text = m.files[m.cursor]
		}
		if text == "" {
			return m, nil
		}
		copyFn := m.copy
		return m, func() tea.Msg {
			return copyResultMsg{text: text, err: copyFn(text)}
		}
	case "o":
		doc := m.document()
		if doc == nil {
			return m, nil
		}
		openFn, path := m.open, doc.Path
		return m, func() tea.Msg {
			return openResultMsg{err: openFn(path)}
		}
	}
	return m, nil
}

func (m viewerModel) title() string {
	t := "report " + domain.Report{ID: m.sel.ReportID}.Label()
	if m.sel.Kind == domain.SelectAssignment {
		t += " · " + m.sel.Assignment
	}
	return t
}

func (m viewerModel) View() string {
	if m.state == viewerIdle {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(" " + sectionHeaderStyle.Render("── "+strings.ToUpper(m.title())+" ──") + "\n\n")

	if m.err != nil {
		sb.WriteString(" " + errorStyle.Render(client.Kind(m.err)+" error: ") +
			dimStyle.Render(truncStr(m.err.Error(), max(20, m.width-12))) + "\n")
		sb.WriteString(" " + helpEntry("r", "retry") + "  " + helpEntry("x", "dismiss") + "\n\n")
	}

	switch m.state {
	case viewerReport:
		sb.WriteString(m.filesView())
	case viewerAssignment:
		sb.WriteString(m.documentView())
	case viewerLogin:
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
		sb.WriteString(box.Render(m.login.View()) + "\n")
	}

	if m.notice != "" {
		sb.WriteString("\n " + noticeStyle.Render(m.notice) + "\n")
	}
	return sb.String()
}

func (m viewerModel) filesView() string {
	if m.loading {
		return " " + dimStyle.Render("loading files...") + "\n"
	}
	if m.err != nil {
		return ""
	}
	if len(m.files) == 0 {
		return " " + dimStyle.Render("no files") + "\n"
	}
	var sb strings.Builder
	sb.WriteString(" " + metaStyle.Render(fmt.Sprintf("%d files", len(m.files))) + "\n")
	for i, f := range m.files {
		name := truncStr(f, max(12, m.width-6))
		if i == m.cursor {
			sb.WriteString(accentStyle.Render(" > ") + selectedRowBg.Render(selectedStyle.Render(name)) + "\n")
		} else {
			sb.WriteString("   " + normalStyle.Render(name) + "\n")
		}
	}
	return sb.String()
}

func (m viewerModel) documentView() string {
	if m.loading {
		return " " + dimStyle.Render("loading document...") + "\n"
	}
	doc := m.document()
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(" " + metaStyle.Render(fmt.Sprintf("%-6s", label)) + " " + normalStyle.Render(value) + "\n")
	}
	row("name", doc.Name)
	row("size", formatSize(doc.Size))
	row("type", doc.ContentType)
	row("path", truncStr(doc.Path, max(20, m.width-10)))
	if !doc.IsPDF() {
		sb.WriteString("\n " + noticeStyle.Render("content does not look like a PDF") + "\n")
	}
	return sb.String()
}

// helpKeys returns the help bar for the current state.
func (m viewerModel) helpKeys() string {
	switch m.state {
	case viewerLogin:
		return helpBar("enter", "sign in", "esc", "close")
	case viewerAssignment:
		return helpBar("o", "open", "c", "copy path", "r", "reload", "esc", "close", "q", "quit")
	default:
		return helpBar("j/k", "files", "c", "copy name", "r", "reload", "esc", "close", "q", "quit")
	}
}
