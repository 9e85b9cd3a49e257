package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/ctxlog"

	"github.com/reportview/reportview/pkg/client"
)

// loginResultMsg is tagged with the viewer generation that opened the form,
// so a failure from an abandoned form never lands on a newer one.
type loginResultMsg struct {
	gen   int
	token string
	err   error
}

// loginSucceededMsg carries a fresh token up to the root model, which
// stores it and resumes whatever was waiting on it.
type loginSucceededMsg struct {
	token string
}

type loginModel struct {
	client     *client.Client
	ctx        context.Context
	gen        int
	password   string
	reason     string
	err        string
	submitting bool
}

// newLoginModel builds the form. cause, when non-nil, is the error that sent
// the user here and is shown above the input.
func newLoginModel(ctx context.Context, c *client.Client, gen int, cause error) loginModel {
	m := loginModel{client: c, ctx: ctx, gen: gen}
	if cause != nil {
		m.reason = errorText(cause)
	}
	return m
}

func (m loginModel) submit(password string) tea.Cmd {
	c, ctx, gen := m.client, m.ctx, m.gen
	return func() tea.Msg {
		token, err := c.Login(ctx, password)
		if err != nil {
			ctxlog.From(ctx).Warn("login failed", "error", err)
			return loginResultMsg{gen: gen, err: err}
		}
		return loginResultMsg{gen: gen, token: token}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.password = ""
			if errors.Is(msg.err, client.ErrAuth) {
				m.err = "password rejected"
			} else {
				m.err = "login failed: " + errorText(msg.err)
			}
			return m, nil
		}
		token := msg.token
		m.password = ""
		m.err = ""
		return m, func() tea.Msg { return loginSucceededMsg{token: token} }

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "enter":
			if m.password == "" {
				m.err = "password is required"
				return m, nil
			}
			m.submitting = true
			m.err = ""
			return m, m.submit(m.password)
		default:
			m.password = editRune(m.password, msg.String())
		}
	}
	return m, nil
}

func (m loginModel) View() string {
	var sb strings.Builder
	sb.WriteString(selectedStyle.Render("Sign in to view assignment documents") + "\n")
	if m.reason != "" {
		sb.WriteString(errorStyle.Render(m.reason) + "\n")
	}
	sb.WriteString("\n" + renderInput("password ", m.password, "type and press enter", !m.submitting, true) + "\n")
	switch {
	case m.submitting:
		sb.WriteString("\n" + dimStyle.Render("signing in...") + "\n")
	case m.err != "":
		sb.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	return sb.String()
}
