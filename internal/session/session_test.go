package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ggh-shell/internal/command"
)

// fakeSurface 按 termlib 的方式工作：Enter 期间加锁，Prompt 解锁。
type fakeSurface struct {
	line    []rune
	ops     []string
	handler func(string)
	locked  bool
	closed  bool
}

func (f *fakeSurface) NewLine()          { f.ops = append(f.ops, "newline") }
func (f *fakeSurface) Write(text string) { f.ops = append(f.ops, "write:"+text) }
func (f *fakeSurface) Prompt() {
	f.locked = false
	f.ops = append(f.ops, "prompt")
}
func (f *fakeSurface) ClearLine() { f.line = nil }
func (f *fakeSurface) Key(r rune) {
	if f.locked {
		return
	}
	f.line = append(f.line, r)
}
func (f *fakeSurface) Enter() {
	if f.locked {
		return
	}
	raw := string(f.line)
	f.line = nil
	f.locked = true
	if f.handler != nil {
		f.handler(raw)
	}
}
func (f *fakeSurface) OnLine(fn func(string)) { f.handler = fn }
func (f *fakeSurface) Closed() bool           { return f.closed }
func (f *fakeSurface) Locked() bool           { return f.locked }

func (f *fakeSurface) typeLine(s string) {
	for _, r := range s {
		f.Key(r)
	}
	f.Enter()
}

func (f *fakeSurface) writes() []string {
	var out []string
	for _, op := range f.ops {
		if strings.HasPrefix(op, "write:") {
			out = append(out, strings.TrimPrefix(op, "write:"))
		}
	}
	return out
}

// recordingTransport 记录请求并返回预设响应；gate 非 nil 时阻塞到 gate 关闭。
type recordingTransport struct {
	mu   sync.Mutex
	reqs []command.Request
	resp command.Response
	gate chan struct{}
}

func (r *recordingTransport) Send(ctx context.Context, req command.Request) command.Response {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return command.Fail(command.Failure{StatusCode: 0, StatusText: "Canceled", Errno: 1, ErrString: ctx.Err().Error()})
		}
	}
	return r.resp
}

func (r *recordingTransport) requests() []command.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Request(nil), r.reqs...)
}

type harness struct {
	shell    *Shell
	surface  *fakeSurface
	tr       *recordingTransport
	pendings []*Pending
	notices  []string
}

func newHarness(t *testing.T, resp command.Response) *harness {
	t.Helper()
	h := &harness{surface: &fakeSurface{}, tr: &recordingTransport{resp: resp}}
	h.shell = NewShell(Options{
		Transport:  h.tr,
		OnDispatch: func(p *Pending) { h.pendings = append(h.pendings, p) },
	}, NotifierFunc(func(msg string) { h.notices = append(h.notices, msg) }))
	return h
}

// drain 模拟事件循环：等待每个 Pending 并回调 Complete。
func (h *harness) drain(t *testing.T, sess *Session) {
	t.Helper()
	for _, p := range h.pendings {
		select {
		case <-p.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for response of %q", p.Request.Line)
		}
		sess.Complete(p, p.Wait())
	}
	h.pendings = nil
}

func TestOnLineCompleteDispatchesNormalizedLineAndPromptsImmediately(t *testing.T) {
	h := newHarness(t, command.Success("pong"))
	h.tr.gate = make(chan struct{})
	sess := h.shell.Open(h.surface)

	h.surface.typeLine("  ping foo")

	if len(h.pendings) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(h.pendings))
	}
	p := h.pendings[0]
	if p.Request.Line != "ping foo" || p.Request.Target != command.DefaultTarget {
		t.Fatalf("unexpected request: %#v", p.Request)
	}
	if strings.Join(p.Args, "|") != "ping|foo" {
		t.Fatalf("args = %#v", p.Args)
	}
	// 响应尚未到达，提示符已经重新显示。
	if got := strings.Join(h.surface.ops, ","); got != "newline,prompt" {
		t.Fatalf("ops before response = %q", got)
	}
	if sess.State() != StateBusy {
		t.Fatalf("state = %v, want busy", sess.State())
	}

	close(h.tr.gate)
	h.drain(t, sess)

	if got := strings.Join(h.surface.ops, ","); got != "newline,prompt,write:\npong,prompt" {
		t.Fatalf("ops after response = %q", got)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want idle", sess.State())
	}
}

func TestLeadingWhitespaceRemovedButNotRequoted(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "\t  echo \"a  b\"", want: "echo \"a  b\""},
		{raw: "   x   y  ", want: "x   y  "},
		{raw: "db events release 3", want: "db events release 3"},
		{raw: "    ", want: ""},
	}
	for _, tc := range cases {
		h := newHarness(t, command.Success(""))
		sess := h.shell.Open(h.surface)
		p := sess.OnLineComplete(tc.raw)
		if p.Request.Line != tc.want {
			t.Fatalf("line for %q = %q, want %q", tc.raw, p.Request.Line, tc.want)
		}
		sess.Complete(p, p.Wait())
	}
}

func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name  string
		input string
		resp  command.Response
		line  string
		want  string
	}{
		{
			name:  "success",
			input: "  ping foo",
			resp:  command.Success("pong"),
			line:  "ping foo",
			want:  "\npong",
		},
		{
			name:  "not found",
			input: "bad",
			resp:  command.Fail(command.Failure{StatusCode: 404, StatusText: "Not Found"}),
			line:  "bad",
			want:  "Request failed: 404 Not Found",
		},
		{
			name:  "extended error",
			input: "boom",
			resp:  command.Fail(command.Failure{StatusCode: 500, StatusText: "Error", Errno: 7, ErrString: "disk full"}),
			line:  "boom",
			want:  "Request failed: 500 Error\ndisk full",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.resp)
			sess := h.shell.Open(h.surface)
			h.surface.typeLine(tc.input)
			h.drain(t, sess)

			reqs := h.tr.requests()
			if len(reqs) != 1 || reqs[0].Line != tc.line {
				t.Fatalf("requests = %#v, want one with line %q", reqs, tc.line)
			}
			writes := h.surface.writes()
			if len(writes) != 1 || writes[0] != tc.want {
				t.Fatalf("writes = %q, want [%q]", writes, tc.want)
			}
			if last := h.surface.ops[len(h.surface.ops)-1]; last != "prompt" {
				t.Fatalf("last op = %q, want prompt", last)
			}
		})
	}
}

func TestCompleteRendersOnlyOnce(t *testing.T) {
	h := newHarness(t, command.Success("x"))
	sess := h.shell.Open(h.surface)
	p := sess.OnLineComplete("x")
	resp := p.Wait()
	sess.Complete(p, resp)
	sess.Complete(p, resp)
	if got := len(h.surface.writes()); got != 1 {
		t.Fatalf("writes = %d, want 1", got)
	}
}

func TestCompleteAfterSurfaceClosedWritesNothing(t *testing.T) {
	h := newHarness(t, command.Success("late"))
	sess := h.shell.Open(h.surface)
	p := sess.OnLineComplete("slow")
	h.surface.closed = true
	sess.Complete(p, p.Wait())
	if got := h.surface.writes(); len(got) != 0 {
		t.Fatalf("writes = %q, want none", got)
	}
	if sess.State() != StateIdle {
		t.Fatalf("state = %v, want idle", sess.State())
	}
}

// 交互路径不检查 Busy：提示符立即出现，上一条响应到达前还能再提交一行。
// 只有粘贴路径会被 Busy 拦下。
func TestInteractiveLineWhileBusyStillDispatches(t *testing.T) {
	h := newHarness(t, command.Success("ok"))
	h.tr.gate = make(chan struct{})
	sess := h.shell.Open(h.surface)

	h.surface.typeLine("first")
	h.surface.typeLine("second")
	if len(h.pendings) != 2 {
		t.Fatalf("dispatched %d, want 2 while busy on the interactive path", len(h.pendings))
	}
	if err := h.shell.Paste("third"); !errors.Is(err, ErrSessionLocked) {
		t.Fatalf("paste while busy err = %v, want ErrSessionLocked", err)
	}

	close(h.tr.gate)
	h.drain(t, sess)
	if got := h.surface.writes(); len(got) != 2 {
		t.Fatalf("writes = %q, want two responses", got)
	}
}

func TestPasteReplaysKeysThroughCompletionPath(t *testing.T) {
	h := newHarness(t, command.Success("pong"))
	sess := h.shell.Open(h.surface)
	h.surface.line = []rune("partial")

	if err := h.shell.Paste("  ping"); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(h.pendings) != 1 || h.pendings[0].Request.Line != "ping" {
		t.Fatalf("pendings = %#v", h.pendings)
	}
	h.drain(t, sess)
	if got := strings.Join(h.surface.writes(), ""); got != "\npong" {
		t.Fatalf("writes = %q", got)
	}
}

func TestPasteWhileLockedIsSilentNoOp(t *testing.T) {
	cases := []struct {
		name string
		lock func(h *harness)
	}{
		{name: "global key lock", lock: func(h *harness) { h.shell.SetKeyLock(true) }},
		{name: "surface lock", lock: func(h *harness) { h.surface.locked = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, command.Success("x"))
			h.shell.Open(h.surface)
			tc.lock(h)

			if err := h.shell.Paste("ping"); !errors.Is(err, ErrSessionLocked) {
				t.Fatalf("err = %v, want ErrSessionLocked", err)
			}
			if len(h.surface.ops) != 0 {
				t.Fatalf("ops = %q, want none", h.surface.ops)
			}
			if len(h.tr.requests()) != 0 || len(h.pendings) != 0 {
				t.Fatalf("request dispatched while locked")
			}
			if len(h.notices) != 0 {
				t.Fatalf("notices = %q, want none", h.notices)
			}
		})
	}
}

func TestPasteWithoutSessionNotifies(t *testing.T) {
	cases := []struct {
		name  string
		setup func(h *harness)
	}{
		{name: "never opened", setup: func(h *harness) {}},
		{name: "surface closed", setup: func(h *harness) {
			h.shell.Open(h.surface)
			h.surface.closed = true
		}},
		{name: "shell closed", setup: func(h *harness) {
			h.shell.Open(h.surface)
			h.shell.Close()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, command.Success("x"))
			tc.setup(h)
			if err := h.shell.Paste("ping"); !errors.Is(err, ErrNoActiveSession) {
				t.Fatalf("err = %v, want ErrNoActiveSession", err)
			}
			if len(h.notices) != 1 || h.notices[0] != NoActiveSessionMessage {
				t.Fatalf("notices = %q", h.notices)
			}
			if len(h.tr.requests()) != 0 {
				t.Fatalf("request dispatched without session")
			}
		})
	}
}

func TestOpenReusesLiveSession(t *testing.T) {
	h := newHarness(t, command.Success(""))
	first := h.shell.Open(h.surface)
	if again := h.shell.Open(&fakeSurface{}); again != first {
		t.Fatalf("Open returned a new session while the first is live")
	}
	h.surface.closed = true
	next := &fakeSurface{}
	if reopened := h.shell.Open(next); reopened == first || reopened.Surface() != next {
		t.Fatalf("Open did not replace a closed session")
	}
}

func TestPendingCancelEndsRequest(t *testing.T) {
	h := newHarness(t, command.Success("never"))
	h.tr.gate = make(chan struct{})
	sess := h.shell.Open(h.surface)
	p := sess.OnLineComplete("hang")
	p.Cancel()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("cancel did not finish the pending request")
	}
	resp := p.Wait()
	if resp.Kind() != command.KindFailure {
		t.Fatalf("kind = %v, want failure", resp.Kind())
	}
}

func TestRequestIDPropagatedToTransport(t *testing.T) {
	var got string
	surface := &fakeSurface{}
	shell := NewShell(Options{Transport: command.TransportFunc(func(ctx context.Context, req command.Request) command.Response {
		got = command.RequestID(ctx)
		return command.Success("")
	})}, nil)
	sess := shell.Open(surface)
	p := sess.OnLineComplete("x")
	p.Wait()
	if got == "" || got != p.ID {
		t.Fatalf("request id = %q, want %q", got, p.ID)
	}
}
