package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ggh-shell/internal/command"
	"ggh-shell/internal/history"
	"ggh-shell/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

func pingTransport() command.Transport {
	return command.TransportFunc(func(_ context.Context, req command.Request) command.Response {
		if req.Line == "ping" {
			return command.Success("pong")
		}
		return command.Fail(command.Failure{StatusCode: 404, StatusText: "Not Found"})
	})
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run 执行 cmd 并把产生的消息喂回模型，直到没有新消息。
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatalf("too many command steps")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case responseMsg, execMsg:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func send(t *testing.T, m *Model, msgs ...tea.Msg) {
	t.Helper()
	for _, msg := range msgs {
		_, cmd := m.Update(msg)
		run(t, m, cmd)
	}
}

func newTestModel(t *testing.T, opts Options) *Model {
	t.Helper()
	if opts.Transport == nil {
		opts.Transport = pingTransport()
	}
	if opts.Greeting == "" {
		opts.Greeting = "-~== GoofyGoHome Shell ==~-"
	}
	m := New(opts)
	_, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return m
}

func TestModelTypedLineRendersResponse(t *testing.T) {
	store := &history.Store{Path: filepath.Join(t.TempDir(), "history.jsonl")}
	m := newTestModel(t, Options{History: store})

	send(t, m, keyRunes("ping"), tea.KeyMsg{Type: tea.KeyEnter})

	got := m.Transcript()
	want := []string{"-~== GoofyGoHome Shell ==~-", "> ping", "> ", "pong", "> "}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("transcript = %#v", got)
	}
	if len(m.outstanding) != 0 || m.status.Busy() {
		t.Fatalf("model should be idle after the response")
	}
	lines, err := store.LoadLines()
	if err != nil || len(lines) != 1 || lines[0] != "ping" {
		t.Fatalf("history = %#v err=%v", lines, err)
	}
}

func TestModelClipboardPasteUsesShell(t *testing.T) {
	m := newTestModel(t, Options{ReadClipboard: func() (string, error) { return "ping", nil }})
	send(t, m, keyRunes("garbage"), tea.KeyMsg{Type: tea.KeyCtrlV})

	got := m.Transcript()
	if got[1] != "> ping" || got[3] != "pong" {
		t.Fatalf("paste should clear the line and submit: %#v", got)
	}
}

func TestModelClipboardErrorShowsNotice(t *testing.T) {
	m := newTestModel(t, Options{ReadClipboard: func() (string, error) { return "", errors.New("no clipboard") }})
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if !strings.Contains(m.notice, "no clipboard") {
		t.Fatalf("notice = %q", m.notice)
	}
}

func TestModelPasteAfterCloseNotifies(t *testing.T) {
	m := newTestModel(t, Options{ReadClipboard: func() (string, error) { return "ping", nil }})
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.Opened() {
		t.Fatalf("ctrl+d should close the terminal")
	}
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if m.notice != session.NoActiveSessionMessage {
		t.Fatalf("notice = %q", m.notice)
	}

	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !m.Opened() {
		t.Fatalf("ctrl+o should reopen the terminal")
	}
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlV})
	if got := m.Transcript(); got[len(got)-2] != "pong" {
		t.Fatalf("transcript after reopen = %#v", got)
	}
}

func TestModelBusyRefusesPasteButNotTyping(t *testing.T) {
	gate := make(chan struct{})
	tr := command.TransportFunc(func(ctx context.Context, req command.Request) command.Response {
		<-gate
		return command.Success(req.Line)
	})
	m := newTestModel(t, Options{Transport: tr, ReadClipboard: func() (string, error) { return "pasted", nil }})

	_, cmd := m.Update(keyRunes("first"))
	run(t, m, cmd)
	_, enterCmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.outstanding) != 1 {
		t.Fatalf("outstanding = %d", len(m.outstanding))
	}

	_, pasteCmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlV})
	if pasteCmd != nil || len(m.outstanding) != 1 {
		t.Fatalf("paste while busy should be refused")
	}

	_, _ = m.Update(keyRunes("second"))
	_, secondCmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.outstanding) != 2 {
		t.Fatalf("interactive line while busy should still dispatch, outstanding = %d", len(m.outstanding))
	}

	close(gate)
	run(t, m, enterCmd)
	run(t, m, secondCmd)
	if len(m.outstanding) != 0 {
		t.Fatalf("outstanding after responses = %d", len(m.outstanding))
	}
}

func TestModelHistorySearchHoldsKeyLock(t *testing.T) {
	m := newTestModel(t, Options{})
	m.history.Set([]string{"ping", "version", "dnslookup 127.0.0.1"})

	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !m.search.Active() || !m.shell.KeyLocked() {
		t.Fatalf("ctrl+r should open search and hold the key lock")
	}
	m.search.SetQuery("dns")
	send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.search.Active() || m.shell.KeyLocked() {
		t.Fatalf("enter should close search and release the key lock")
	}
	if m.buffer.Input() != "dnslookup 127.0.0.1" {
		t.Fatalf("input = %q", m.buffer.Input())
	}
}

func TestModelHistoryArrows(t *testing.T) {
	m := newTestModel(t, Options{})
	send(t, m, keyRunes("ping"), tea.KeyMsg{Type: tea.KeyEnter})
	send(t, m, keyRunes("pi"), tea.KeyMsg{Type: tea.KeyUp})
	if m.buffer.Input() != "ping" {
		t.Fatalf("up: input = %q", m.buffer.Input())
	}
	send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.buffer.Input() != "pi" {
		t.Fatalf("down should restore draft: %q", m.buffer.Input())
	}
}

func TestModelExecLinesRunInOrder(t *testing.T) {
	m := newTestModel(t, Options{Exec: []string{"ping", "nope"}})
	run(t, m, m.Init())

	got := strings.Join(m.Transcript(), "\n")
	if !strings.Contains(got, "pong") || !strings.Contains(got, "Request failed: 404 Not Found") {
		t.Fatalf("transcript = %q", got)
	}
	if strings.Index(got, "pong") > strings.Index(got, "Request failed") {
		t.Fatalf("exec lines out of order: %q", got)
	}
}

func TestModelExecLineWaitsForKeyLock(t *testing.T) {
	m := newTestModel(t, Options{Exec: []string{"ping"}})
	m.history.Set([]string{"version"})
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})

	next := m.nextExec()
	if next == nil {
		t.Fatalf("expected the exec line to be scheduled")
	}
	send(t, m, next())
	if len(m.outstanding) != 0 {
		t.Fatalf("exec line dispatched while the key lock was held")
	}
	if len(m.execQueue) != 1 || m.execQueue[0] != "ping" {
		t.Fatalf("execQueue = %#v, want the refused line kept", m.execQueue)
	}

	send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.execQueue) != 0 || len(m.outstanding) != 0 {
		t.Fatalf("execQueue = %#v outstanding = %d after unlock", m.execQueue, len(m.outstanding))
	}
	if !strings.Contains(strings.Join(m.Transcript(), "\n"), "pong") {
		t.Fatalf("transcript = %#v", m.Transcript())
	}
}

func TestModelViewShowsGreetingAndHints(t *testing.T) {
	m := newTestModel(t, Options{Endpoint: "http://127.0.0.1:8080/proc"})
	view := m.View()
	for _, want := range []string{"GoofyGoHome Shell", "http://127.0.0.1:8080/proc", "ctrl+v paste"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	send(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if view := m.View(); !strings.Contains(view, "ctrl+o open") {
		t.Fatalf("closed view should offer reopen:\n%s", view)
	}
}
