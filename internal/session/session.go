package session

import (
	"context"
	"sync"

	"ggh-shell/internal/command"
	"ggh-shell/internal/logger"

	"github.com/google/uuid"
)

// State 描述会话是否在等待响应。
type State int

const (
	StateIdle State = iota
	StateBusy
)

func (s State) String() string {
	if s == StateBusy {
		return "busy"
	}
	return "idle"
}

// Options 描述会话依赖。
type Options struct {
	// Target 为固定命令端点，默认 command.DefaultTarget。
	Target    string
	Transport command.Transport
	// Context 是所有请求的父 context；Shell.Close 时取消。
	Context context.Context
	// OnDispatch 在请求发出后同步调用，事件循环借此等待 Pending 并回调 Complete。
	OnDispatch func(p *Pending)
	Log        *logger.LogEntry
}

// Session 持有一块交互终端与其请求/响应循环。
type Session struct {
	id         string
	surface    Surface
	transport  command.Transport
	target     string
	ctx        context.Context
	cancel     context.CancelFunc
	onDispatch func(p *Pending)
	log        *logger.LogEntry

	mu          sync.Mutex
	outstanding int
}

func newSession(surface Surface, opts Options) *Session {
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	target := opts.Target
	if target == "" {
		target = command.DefaultTarget
	}
	log := opts.Log
	if log == nil {
		log = logger.Named("session")
	}
	id := uuid.NewString()
	s := &Session{
		id:         id,
		surface:    surface,
		transport:  opts.Transport,
		target:     target,
		ctx:        ctx,
		cancel:     cancel,
		onDispatch: opts.OnDispatch,
		log:        log.WithField("session_id", id),
	}
	surface.OnLine(func(raw string) {
		p := s.OnLineComplete(raw)
		if s.onDispatch != nil {
			s.onDispatch(p)
		}
	})
	return s
}

func (s *Session) ID() string { return s.id }

// Surface 返回会话绑定的终端。
func (s *Session) Surface() Surface { return s.surface }

// State 返回当前 Idle/Busy 状态。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outstanding > 0 {
		return StateBusy
	}
	return StateIdle
}

// OnLineComplete 把一行输入转成请求并异步发出，随后立即重新显示提示符，不等待响应。
// 交互路径不受 Busy 限制：上一个响应到达前仍可提交新行。
func (s *Session) OnLineComplete(raw string) *Pending {
	s.surface.NewLine()
	line := command.NormalizeLine(raw)
	args := command.Args(line)
	req := command.NewRequest(s.target, line)

	s.mu.Lock()
	s.outstanding++
	s.mu.Unlock()

	p := s.dispatch(req, args)
	s.surface.Prompt()
	return p
}

// Complete 渲染 p 对应的响应并恢复提示符。同一个 Pending 只会渲染一次。
func (s *Session) Complete(p *Pending, resp command.Response) {
	if p == nil || !p.markRendered() {
		return
	}
	s.mu.Lock()
	if s.outstanding > 0 {
		s.outstanding--
	}
	s.mu.Unlock()

	entry := s.log.WithFields(logger.Fields{
		"op":         "render",
		"request_id": p.ID,
		"kind":       resp.Kind().String(),
	})
	if s.surface.Closed() {
		entry.Info("surface closed before response; dropping output")
		return
	}
	s.surface.Write(command.Render(resp))
	s.surface.Prompt()
	entry.Debug("response rendered")
}

func (s *Session) dispatch(req command.Request, args []string) *Pending {
	ctx, cancel := context.WithCancel(s.ctx)
	p := &Pending{
		ID:        uuid.NewString(),
		SessionID: s.id,
		Request:   req,
		Args:      args,
		done:      make(chan struct{}),
		cancel:    cancel,
	}
	s.log.WithFields(logger.Fields{
		"op":         "dispatch",
		"request_id": p.ID,
		"target":     req.Target,
		"line":       req.Line,
	}).Info("dispatching command request")

	transport := s.transport
	go func() {
		defer cancel()
		var resp command.Response
		if transport == nil {
			resp = command.Fail(command.Failure{StatusCode: 0, StatusText: "No Transport"})
		} else {
			resp = transport.Send(command.WithRequestID(ctx, p.ID), req)
		}
		p.resolve(resp)
	}()
	return p
}

func (s *Session) close() {
	s.cancel()
}

// Pending 是一次只产出一个 Response 的异步任务。
type Pending struct {
	ID        string
	SessionID string
	Request   command.Request
	// Args 是按空白切分的命令行，请求本身不使用。
	Args []string

	done     chan struct{}
	resp     command.Response
	cancel   context.CancelFunc
	rendered sync.Once
}

// Done 在响应可用时关闭。
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait 阻塞直到响应可用。
func (p *Pending) Wait() command.Response {
	<-p.done
	return p.resp
}

// Cancel 取消底层请求；传输层会以 Failure 结束这次请求。
// 默认没有超时，需要超时的调用方可以在这里挂接。
func (p *Pending) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pending) resolve(resp command.Response) {
	p.resp = resp
	close(p.done)
}

func (p *Pending) markRendered() bool {
	first := false
	p.rendered.Do(func() { first = true })
	return first
}
