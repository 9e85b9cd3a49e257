package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/ctxlog"

	"github.com/reportview/reportview/internal/document"
	"github.com/reportview/reportview/internal/session"
	"github.com/reportview/reportview/pkg/client"
)

type focus int

const (
	focusList focus = iota
	focusViewer
)

// App is the root Bubbletea model. It owns the session store and the live
// document, and routes messages between the report list and the viewer.
type App struct {
	ctx      context.Context
	client   *client.Client
	store    session.Store
	holder   *document.Holder
	reports  reportsModel
	viewer   viewerModel
	focus    focus
	helpOpen bool
	notice   string
	width    int
	height   int
}

// NewApp creates a new TUI application.
func NewApp(ctx context.Context, c *client.Client, store session.Store) App {
	holder := &document.Holder{}
	return App{
		ctx:     ctx,
		client:  c,
		store:   store,
		holder:  holder,
		reports: newReportsModel(ctx, c),
		viewer:  newViewerModel(ctx, c, store, holder),
	}
}

// Close releases the document still on screen and any still being loaded.
// Call it after the program exits.
func (a App) Close() error {
	return a.holder.Close()
}

func (a App) Init() tea.Cmd {
	return a.reports.Init()
}

func (a App) quit() (tea.Model, tea.Cmd) {
	if err := a.holder.Close(); err != nil {
		ctxlog.From(a.ctx).Warn("release documents on quit failed", "error", err)
	}
	return a, tea.Quit
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(1) + blank(1) + help(1) = 3 lines
		bodyHeight := msg.Height - 3
		listWidth, viewerWidth := a.split()
		a.reports, _ = a.reports.Update(tea.WindowSizeMsg{Width: listWidth, Height: bodyHeight})
		a.viewer, _ = a.viewer.Update(tea.WindowSizeMsg{Width: viewerWidth, Height: bodyHeight})
		return a, nil

	case selectMsg:
		ctxlog.From(a.ctx).Debug("selection changed", "selection", msg.sel.Key())
		a.notice = ""
		a.focus = focusViewer
		var cmd tea.Cmd
		a.viewer, cmd = a.viewer.Open(msg.sel)
		return a, cmd

	case loginSucceededMsg:
		if err := a.store.Set(msg.token); err != nil {
			ctxlog.From(a.ctx).Error("store session token failed", "error", err)
			a.notice = "could not store session: " + err.Error()
			return a, nil
		}
		ctxlog.From(a.ctx).Info("signed in")
		var cmd tea.Cmd
		a.viewer, cmd = a.viewer.Resume()
		return a, cmd

	case reportsLoadedMsg:
		var cmd tea.Cmd
		a.reports, cmd = a.reports.Update(msg)
		return a, cmd

	case filesLoadedMsg, documentLoadedMsg, loginResultMsg, openResultMsg, copyResultMsg:
		var cmd tea.Cmd
		a.viewer, cmd = a.viewer.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a.quit()
	}

	// Help overlay captures all keys when open
	if a.helpOpen {
		switch msg.String() {
		case "h", "?", "esc":
			a.helpOpen = false
		case "q":
			return a.quit()
		}
		return a, nil
	}

	if !a.isEditing() {
		switch msg.String() {
		case "q":
			return a.quit()
		case "h", "?":
			a.helpOpen = true
			return a, nil
		case "tab":
			if a.viewer.state != viewerIdle {
				if a.focus == focusList {
					a.focus = focusViewer
				} else {
					a.focus = focusList
				}
			}
			return a, nil
		}
	}

	var cmd tea.Cmd
	if a.focus == focusViewer && a.viewer.state != viewerIdle {
		a.viewer, cmd = a.viewer.Update(msg)
		if a.viewer.state == viewerIdle {
			a.focus = focusList
		}
		return a, cmd
	}
	a.reports, cmd = a.reports.Update(msg)
	return a, cmd
}

// isEditing reports whether keystrokes are going into a text input, in which
// case global single-letter keys are disabled.
func (a App) isEditing() bool {
	if a.reports.filtering && a.focus == focusList {
		return true
	}
	return a.focus == focusViewer && a.viewer.state == viewerLogin
}

// split divides the terminal width between the list and the viewer.
func (a App) split() (int, int) {
	if a.width <= 0 {
		return 0, 0
	}
	list := max(32, a.width*2/5)
	return list, max(0, a.width-list-1)
}

func (a App) View() string {
	header := " " + titleStyle.Render("reportview")
	if a.client != nil {
		header += "  " + metaStyle.Render(a.client.BaseURL())
	}
	if _, ok := a.store.Get(); ok {
		header += "  " + accentStyle.Render("● signed in")
	} else {
		header += "  " + dimStyle.Render("○ signed out")
	}
	if a.notice != "" {
		header += "  " + noticeStyle.Render(a.notice)
	}

	var body, help string
	switch {
	case a.helpOpen:
		body = helpView()
		help = helpBar("esc", "close", "q", "quit")
	case a.viewer.state == viewerIdle:
		body = a.reports.View()
		help = a.listHelp()
	default:
		listWidth, _ := a.split()
		left := lipgloss.NewStyle().Width(listWidth).Render(a.reports.View())
		sep := lipgloss.NewStyle().
			Foreground(borderColor).
			Render(strings.TrimRight(strings.Repeat("│\n", max(1, a.height-3)), "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, sep, a.viewer.View())
		if a.focus == focusViewer {
			help = a.viewer.helpKeys() + "  " + helpEntry("tab", "list")
		} else {
			help = a.listHelp() + "  " + helpEntry("tab", "viewer")
		}
	}

	// Chrome budget: header(1) + blank(1) + help(1)
	body = strings.TrimRight(truncateToHeight(body, a.height-3), "\n")
	return fmt.Sprintf("%s\n\n%s\n%s", header, body, help)
}

func (a App) listHelp() string {
	if a.reports.filtering {
		return helpBar("enter", "apply", "esc", "clear")
	}
	return helpBar("j/k", "nav", "enter", "open", "/", "filter", "r", "reload", "h", "help", "q", "quit")
}
