package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reportview/reportview/internal/apitest"
	"github.com/reportview/reportview/internal/document"
	"github.com/reportview/reportview/internal/session"
	"github.com/reportview/reportview/pkg/client"
	"github.com/reportview/reportview/pkg/domain"
)

type fakeShell struct {
	opened []string
	copied []string
	err    error
}

func (f *fakeShell) open(path string) error {
	f.opened = append(f.opened, path)
	return f.err
}

func (f *fakeShell) copy(text string) error {
	f.copied = append(f.copied, text)
	return f.err
}

type viewerFixture struct {
	srv    *apitest.Server
	store  *session.Memory
	holder *document.Holder
	shell  *fakeShell
	m      viewerModel
}

func newViewerFixture(t *testing.T) *viewerFixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	f := &viewerFixture{
		srv:    srv,
		store:  session.NewMemory(),
		holder: &document.Holder{},
		shell:  &fakeShell{},
	}
	f.m = newViewerModel(context.Background(), client.New(srv.URL), f.store, f.holder)
	f.m.docDir = t.TempDir()
	f.m.open = f.shell.open
	f.m.copy = f.shell.copy
	f.m, _ = f.m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	t.Cleanup(func() { f.holder.Close() }) //nolint:errcheck
	return f
}

// run executes cmd synchronously and feeds its message back to the viewer.
func (f *viewerFixture) run(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	var next tea.Cmd
	f.m, next = f.m.Update(cmd())
	return next
}

func (f *viewerFixture) open(sel domain.Selection) tea.Cmd {
	var cmd tea.Cmd
	f.m, cmd = f.m.Open(sel)
	return cmd
}

func TestViewerOneFilesRequestPerReportSelection(t *testing.T) {
	f := newViewerFixture(t)

	f.run(f.open(domain.ReportSelection(101)))
	if got := f.srv.Hits(apitest.RouteFiles); got != 1 {
		t.Fatalf("expected 1 files request, got %d", got)
	}
	if !strings.Contains(f.m.View(), "hw1/report.pdf") {
		t.Errorf("expected file list in view, got:\n%s", f.m.View())
	}

	// Picking the same report again does not refetch.
	if cmd := f.open(domain.ReportSelection(101)); cmd != nil {
		t.Error("expected no command when re-selecting the open report")
	}

	f.run(f.open(domain.ReportSelection(102)))
	if got := f.srv.Hits(apitest.RouteFiles); got != 2 {
		t.Errorf("expected 2 files requests after switching reports, got %d", got)
	}
	if strings.Contains(f.m.View(), "hw1/report.pdf") {
		t.Errorf("view still shows the previous report's files:\n%s", f.m.View())
	}
}

func TestViewerIgnoresStaleFilesResult(t *testing.T) {
	f := newViewerFixture(t)

	first := f.open(domain.ReportSelection(101))
	second := f.open(domain.ReportSelection(102))

	// The slower first response lands after the user moved on.
	f.run(first)
	if f.m.files != nil || !f.m.loading {
		t.Fatalf("stale result was applied: files=%v loading=%v", f.m.files, f.m.loading)
	}

	f.run(second)
	if len(f.m.files) != 1 || f.m.files[0] != "README.md" {
		t.Errorf("expected report 102 files, got %v", f.m.files)
	}
}

func TestViewerFilesSendTokenWhenHeld(t *testing.T) {
	f := newViewerFixture(t)
	f.run(f.open(domain.ReportSelection(101)))

	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}
	f.run(f.open(domain.ReportSelection(102)))

	auth := f.srv.Authorization(apitest.RouteFiles)
	if len(auth) != 2 || auth[0] != "" || auth[1] != "Bearer "+apitest.Token {
		t.Errorf("unexpected Authorization headers: %q", auth)
	}
}

func TestViewerFilesErrorAndRetry(t *testing.T) {
	f := newViewerFixture(t)
	f.srv.Fail(apitest.RouteFiles, 500)

	f.run(f.open(domain.ReportSelection(101)))
	view := f.m.View()
	if !strings.Contains(view, "network error") {
		t.Errorf("expected network error banner, got:\n%s", view)
	}

	f.srv.Fail(apitest.RouteFiles, 0)
	f.run(f.handle(keyRunes("r")))
	if f.m.err != nil {
		t.Errorf("expected retry to clear the error, got %v", f.m.err)
	}
	if got := f.srv.Hits(apitest.RouteFiles); got != 2 {
		t.Errorf("expected 2 files requests, got %d", got)
	}
}

func (f *viewerFixture) handle(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.m, cmd = f.m.Update(msg)
	return cmd
}

func TestViewerAssignmentWithoutTokenShowsLogin(t *testing.T) {
	f := newViewerFixture(t)

	cmd := f.open(domain.AssignmentSelection(101, "hw1"))
	if cmd != nil {
		t.Error("expected no request without a session token")
	}
	if f.m.state != viewerLogin {
		t.Errorf("state = %s, want login", f.m.state)
	}
	if got := f.srv.Hits(apitest.RouteDocument); got != 0 {
		t.Errorf("expected no document requests, got %d", got)
	}
	if !strings.Contains(f.m.View(), "Sign in") {
		t.Errorf("expected login prompt, got:\n%s", f.m.View())
	}
}

func TestViewerDocumentLoad(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	f.run(f.open(domain.AssignmentSelection(101, "hw2")))

	auth := f.srv.Authorization(apitest.RouteDocument)
	if len(auth) != 1 || auth[0] != "Bearer "+apitest.Token {
		t.Errorf("document request Authorization = %q", auth)
	}
	doc := f.holder.Current()
	if doc == nil {
		t.Fatal("expected a live document")
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(apitest.SamplePDF) {
		t.Error("document bytes differ from the served PDF")
	}
	view := f.m.View()
	for _, want := range []string{"hw2", "application/pdf"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestViewerAuthErrorShowsLoginWithError(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set("expired"); err != nil {
		t.Fatal(err)
	}

	f.run(f.open(domain.AssignmentSelection(101, "hw1")))

	if f.m.state != viewerLogin {
		t.Fatalf("state = %s, want login", f.m.state)
	}
	view := f.m.View()
	if !strings.Contains(view, "Sign in") || !strings.Contains(view, "auth") {
		t.Errorf("expected login prompt with the auth error, got:\n%s", view)
	}
	if f.holder.Current() != nil {
		t.Error("expected no document after an auth failure")
	}
}

func TestViewerDecodeError(t *testing.T) {
	f := newViewerFixture(t)
	f.srv.SetDocument(101, "hw1", "not base64!!")
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	f.run(f.open(domain.AssignmentSelection(101, "hw1")))

	if !errors.Is(f.m.err, client.ErrDecode) {
		t.Fatalf("expected decode error, got %v", f.m.err)
	}
	if !strings.Contains(f.m.View(), "decode error") {
		t.Errorf("expected decode banner, got:\n%s", f.m.View())
	}

	f.handle(keyRunes("x"))
	if f.m.err != nil {
		t.Error("expected 'x' to dismiss the error")
	}
}

func TestViewerStaleDocumentIsReleased(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	first := f.open(domain.AssignmentSelection(101, "hw1"))
	second := f.open(domain.AssignmentSelection(101, "hw2"))

	msg := first()
	stale, ok := msg.(documentLoadedMsg)
	if !ok || stale.res == nil {
		t.Fatalf("expected a loaded document, got %#v", msg)
	}
	f.m, _ = f.m.Update(stale)
	if !stale.res.Released() {
		t.Error("stale document was not released")
	}
	if f.holder.Current() != nil {
		t.Error("stale document was installed")
	}

	f.run(second)
	if doc := f.holder.Current(); doc == nil || doc.Name != "hw2" {
		t.Errorf("expected hw2 to be live, got %+v", doc)
	}
}

func TestViewerSupersededDocumentIsReleased(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	f.run(f.open(domain.AssignmentSelection(101, "hw1")))
	first := f.holder.Current()
	f.run(f.open(domain.AssignmentSelection(102, "hw1")))

	if !first.Released() {
		t.Error("previous document was not released")
	}
	if _, err := os.Stat(first.Path); !os.IsNotExist(err) {
		t.Errorf("previous document file still exists: %v", err)
	}
}

func TestViewerEscClosesAndReleases(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}
	f.run(f.open(domain.AssignmentSelection(101, "hw1")))
	doc := f.holder.Current()

	f.handle(escKey)

	if f.m.state != viewerIdle {
		t.Errorf("state = %s, want idle", f.m.state)
	}
	if !doc.Released() {
		t.Error("expected esc to release the document")
	}
	if f.m.View() != "" {
		t.Errorf("idle viewer should render nothing, got %q", f.m.View())
	}
}

func TestViewerResultAfterCloseIsDropped(t *testing.T) {
	f := newViewerFixture(t)
	cmd := f.open(domain.ReportSelection(101))
	f.handle(escKey)
	f.run(cmd)
	if f.m.state != viewerIdle || f.m.files != nil {
		t.Errorf("result applied after close: state=%s files=%v", f.m.state, f.m.files)
	}
}

func TestViewerCopyAndOpen(t *testing.T) {
	f := newViewerFixture(t)
	f.run(f.open(domain.ReportSelection(101)))

	f.handle(keyRunes("j"))
	f.run(f.handle(keyRunes("c")))
	if len(f.shell.copied) != 1 || f.shell.copied[0] != "hw2/report.pdf" {
		t.Errorf("copied %q, want the selected file name", f.shell.copied)
	}
	if !strings.Contains(f.m.View(), "copied hw2/report.pdf") {
		t.Errorf("expected copy notice, got:\n%s", f.m.View())
	}

	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}
	f.run(f.open(domain.AssignmentSelection(101, "hw1")))
	path := f.holder.Current().Path

	f.run(f.handle(keyRunes("o")))
	if len(f.shell.opened) != 1 || f.shell.opened[0] != path {
		t.Errorf("opened %q, want %q", f.shell.opened, path)
	}
	f.run(f.handle(keyRunes("c")))
	if last := f.shell.copied[len(f.shell.copied)-1]; last != path {
		t.Errorf("copied %q, want the document path", last)
	}
}

func TestViewerOpenFailureShowsNotice(t *testing.T) {
	f := newViewerFixture(t)
	f.shell.err = fmt.Errorf("no viewer installed")
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}
	f.run(f.open(domain.AssignmentSelection(101, "hw1")))
	f.run(f.handle(keyRunes("o")))
	if !strings.Contains(f.m.View(), "open failed: no viewer installed") {
		t.Errorf("expected open failure notice, got:\n%s", f.m.View())
	}
}

func TestViewerStateString(t *testing.T) {
	tests := map[viewerState]string{
		viewerIdle:       "idle",
		viewerReport:     "report",
		viewerAssignment: "assignment",
		viewerLogin:      "login",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
}

func TestViewerReportWithoutFiles(t *testing.T) {
	f := newViewerFixture(t)
	f.srv.SetFiles(101, []string{})

	f.run(f.open(domain.ReportSelection(101)))
	if !strings.Contains(f.m.View(), "no files") {
		t.Errorf("expected empty file list, got:\n%s", f.m.View())
	}
	// Nothing to copy.
	if cmd := f.handle(keyRunes("c")); cmd != nil {
		t.Error("expected no copy command without files")
	}
}

func TestViewerDocumentInFlightAtShutdownIsRemoved(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	cmd := f.open(domain.AssignmentSelection(101, "hw1"))
	if err := f.holder.Close(); err != nil {
		t.Fatal(err)
	}
	msg, ok := cmd().(documentLoadedMsg)
	if !ok {
		t.Fatalf("expected documentLoadedMsg, got %T", msg)
	}
	if !errors.Is(msg.err, document.ErrClosed) || msg.res != nil {
		t.Errorf("expected the late document to be refused, got res=%v err=%v", msg.res, msg.err)
	}
	entries, err := os.ReadDir(f.m.docDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no temp files after shutdown, found %d", len(entries))
	}
}

func TestViewerUndeliveredDocumentReleasedOnShutdown(t *testing.T) {
	f := newViewerFixture(t)
	if err := f.store.Set(apitest.Token); err != nil {
		t.Fatal(err)
	}

	// The fetch finishes but its message never reaches Update.
	msg := f.open(domain.AssignmentSelection(101, "hw1"))().(documentLoadedMsg)
	if msg.res == nil {
		t.Fatalf("expected a loaded document, got %v", msg.err)
	}
	if err := f.holder.Close(); err != nil {
		t.Fatal(err)
	}
	if !msg.res.Released() {
		t.Error("expected shutdown to release the undelivered document")
	}
	entries, err := os.ReadDir(f.m.docDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no temp files after shutdown, found %d", len(entries))
	}
}

func (f *viewerFixture) typeLogin(s string) {
	for _, r := range s {
		f.handle(keyRunes(string(r)))
	}
}

func TestViewerStaleLoginFailureNotShownOnNewForm(t *testing.T) {
	f := newViewerFixture(t)

	f.open(domain.AssignmentSelection(101, "hw1"))
	f.typeLogin("wrong")
	pending := f.handle(enterKey)
	if pending == nil {
		t.Fatal("expected a login request")
	}

	f.handle(escKey)
	f.open(domain.AssignmentSelection(102, "hw1"))
	if f.m.state != viewerLogin {
		t.Fatalf("state = %s, want login", f.m.state)
	}

	if next := f.handle(pending()); next != nil {
		t.Error("expected no follow-up for an abandoned failed login")
	}
	if strings.Contains(f.m.View(), "password rejected") {
		t.Errorf("old failure leaked onto the new form:\n%s", f.m.View())
	}
	if f.m.login.err != "" {
		t.Errorf("login error = %q, want none", f.m.login.err)
	}
}

func TestViewerLoginSuccessAfterEscStillHandsOverToken(t *testing.T) {
	f := newViewerFixture(t)

	f.open(domain.AssignmentSelection(101, "hw1"))
	f.typeLogin(apitest.Password)
	pending := f.handle(enterKey)
	if pending == nil {
		t.Fatal("expected a login request")
	}
	f.handle(escKey)

	next := f.handle(pending())
	if next == nil {
		t.Fatal("expected the token to be handed over after esc")
	}
	got, ok := next().(loginSucceededMsg)
	if !ok || got.token != apitest.Token {
		t.Errorf("got %#v, want token %q", got, apitest.Token)
	}
	if f.m.state != viewerIdle {
		t.Errorf("state = %s, want idle", f.m.state)
	}
}
