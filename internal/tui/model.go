package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"ggh-shell/internal/command"
	"ggh-shell/internal/history"
	"ggh-shell/internal/logger"
	"ggh-shell/internal/screen"
	"ggh-shell/internal/session"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type Options struct {
	Transport command.Transport
	Target    string
	// Endpoint 仅用于标题栏展示，例如 http://127.0.0.1:8080/proc。
	Endpoint string
	Prompt   string
	Greeting string
	// Exec 中的行在打开后以粘贴方式依次提交。
	Exec    []string
	History *history.Store
	// ReadClipboard 默认读取系统剪贴板。
	ReadClipboard func() (string, error)
	Context       context.Context
	Log           *logger.LogEntry
	// Inline 为 true 时不使用 alt screen，输出保留在终端里。
	Inline bool
	Clock  func() time.Time
}

type responseMsg struct {
	sess    *session.Session
	pending *session.Pending
	resp    command.Response
}

type execMsg struct {
	Line string
}

type Model struct {
	opts    Options
	shell   *session.Shell
	queue   *session.Queue
	buffer  *screen.Buffer
	sess    *session.Session
	log     *logger.LogEntry
	history promptHistory
	search  historySearch
	status  statusIndicator

	outstanding map[string]*session.Pending
	execQueue   []string
	notice      string
	scroll      int
	width       int
	height      int
	quitting    bool
}

func New(opts Options) *Model {
	log := opts.Log
	if log == nil {
		log = logger.Named("tui")
	}
	if opts.ReadClipboard == nil {
		opts.ReadClipboard = clipboard.ReadAll
	}
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}
	m := &Model{
		opts:        opts,
		queue:       &session.Queue{},
		log:         log,
		search:      newHistorySearch(),
		status:      newStatusIndicator(opts.Clock),
		outstanding: map[string]*session.Pending{},
		execQueue:   append([]string(nil), opts.Exec...),
		width:       90,
		height:      24,
	}
	m.shell = session.NewShell(session.Options{
		Target:     opts.Target,
		Transport:  opts.Transport,
		Context:    opts.Context,
		OnDispatch: m.queue.Push,
		Log:        logger.Named("session"),
	}, session.NotifierFunc(m.notify))

	if opts.History != nil {
		lines, err := opts.History.LoadLines()
		if err != nil {
			log.WithField("op", "history").Warnf("load history: %v", err)
		}
		m.history.Set(lines)
	}
	m.open()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.status.spin.Tick, m.nextExec())
}

// nextExec 在没有未完成请求时提交下一条 -e 行。
func (m *Model) nextExec() tea.Cmd {
	if len(m.execQueue) == 0 || len(m.outstanding) > 0 {
		return nil
	}
	line := m.execQueue[0]
	m.execQueue = m.execQueue[1:]
	return func() tea.Msg { return execMsg{Line: line} }
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.finish(cmds...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.status.spin, cmd = m.status.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case execMsg:
		cmds = append(cmds, m.pasteExec(msg.Line)...)
		return m.finish(cmds...)
	case responseMsg:
		delete(m.outstanding, msg.pending.ID)
		msg.sess.Complete(msg.pending, msg.resp)
		if cmd := m.nextExec(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m.finish(cmds...)
	case tea.KeyMsg:
		if m.search.Active() {
			cmds = append(cmds, m.updateSearch(msg)...)
			return m.finish(cmds...)
		}
		cmds = append(cmds, m.handleKey(msg)...)
		return m.finish(cmds...)
	}
	return m.finish(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) []tea.Cmd {
	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace, tea.KeyTab:
		m.history.ResetBrowsing()
		switch {
		case len(msg.Runes) > 0:
		case msg.Type == tea.KeySpace:
			msg.Runes = []rune{' '}
		case msg.Type == tea.KeyTab:
			msg.Runes = []rune{'\t'}
		}
		for _, r := range msg.Runes {
			m.buffer.Key(r)
		}
		return nil
	}
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.shell.Close()
		return []tea.Cmd{tea.Quit}
	case "ctrl+d":
		m.closeTerminal()
		return nil
	case "ctrl+o":
		m.open()
		return nil
	case "ctrl+v":
		text, err := m.opts.ReadClipboard()
		if err != nil {
			m.notice = "clipboard: " + err.Error()
			return nil
		}
		return m.paste(text)
	case "ctrl+r":
		if m.sess == nil {
			m.notify(session.NoActiveSessionMessage)
			return nil
		}
		m.shell.SetKeyLock(true)
		return []tea.Cmd{m.search.Open(m.history.Entries())}
	case "esc":
		m.cancelOutstanding()
		return nil
	case "up":
		if v, ok := m.history.Prev(m.buffer.Input()); ok {
			m.replaceInput(v)
		}
		return nil
	case "down":
		if v, ok := m.history.Next(); ok {
			m.replaceInput(v)
		}
		return nil
	case "pgup":
		m.scroll += max(m.bodyHeight()-1, 1)
		return nil
	case "pgdown":
		m.scroll = max(m.scroll-max(m.bodyHeight()-1, 1), 0)
		return nil
	case "enter":
		m.notice = ""
		m.scroll = 0
		m.buffer.Enter()
		return m.collect()
	case "backspace":
		m.buffer.Key(0x7f)
	}
	return nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) []tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+c", "ctrl+r":
		return []tea.Cmd{m.closeSearch()}
	case "up", "ctrl+p":
		m.search.Move(-1)
		return nil
	case "down", "ctrl+n":
		m.search.Move(1)
		return nil
	case "enter":
		line, ok := m.search.Selected()
		cmd := m.closeSearch()
		if ok {
			m.replaceInput(line)
		}
		return []tea.Cmd{cmd}
	}
	return []tea.Cmd{m.search.Update(msg)}
}

// closeSearch 释放全局按键锁，并继续提交被锁挡住的 -e 行。
func (m *Model) closeSearch() tea.Cmd {
	m.search.Close()
	m.shell.SetKeyLock(false)
	return m.nextExec()
}

// paste 走 Shell.Paste：没有会话时由通知器提示，锁定时静默忽略。
func (m *Model) paste(text string) []tea.Cmd {
	cmds, err := m.tryPaste(text)
	if errors.Is(err, session.ErrSessionLocked) {
		m.log.WithField("op", "paste").Debug("paste ignored while locked")
	}
	return cmds
}

// pasteExec 提交一条 -e 行；被锁挡住时放回队首，等解锁或响应到达后重试。
func (m *Model) pasteExec(line string) []tea.Cmd {
	cmds, err := m.tryPaste(line)
	if errors.Is(err, session.ErrSessionLocked) {
		m.execQueue = append([]string{line}, m.execQueue...)
		m.log.WithField("op", "exec").Debug("exec line deferred while locked")
	}
	return cmds
}

func (m *Model) tryPaste(text string) ([]tea.Cmd, error) {
	if err := m.shell.Paste(text); err != nil {
		return nil, err
	}
	m.scroll = 0
	return m.collect(), nil
}

// collect 取走本轮发出的请求，记录历史并为每个请求返回一个等待命令。
func (m *Model) collect() []tea.Cmd {
	var cmds []tea.Cmd
	sess := m.sess
	for _, p := range m.queue.Drain() {
		p := p
		m.outstanding[p.ID] = p
		m.history.Add(p.Request.Line)
		if m.opts.History != nil {
			if err := m.opts.History.Append(p.Request.Line, p.SessionID); err != nil {
				m.log.WithField("op", "history").Warnf("append history: %v", err)
			}
		}
		cmds = append(cmds, func() tea.Msg {
			return responseMsg{sess: sess, pending: p, resp: p.Wait()}
		})
	}
	return cmds
}

func (m *Model) replaceInput(line string) {
	m.buffer.ClearLine()
	for _, r := range line {
		m.buffer.Key(r)
	}
}

func (m *Model) cancelOutstanding() {
	for _, p := range m.outstanding {
		p.Cancel()
	}
}

// open 打开终端；已有打开的终端时直接复用。
func (m *Model) open() {
	if m.sess != nil && m.shell.Active() == m.sess {
		return
	}
	m.buffer = screen.NewBuffer(screen.BufferOptions{Prompt: m.opts.Prompt, Greeting: m.opts.Greeting})
	m.sess = m.shell.Open(m.buffer)
	m.buffer.Prompt()
	m.notice = ""
	m.scroll = 0
}

// closeTerminal 关闭终端并取消未完成的请求；迟到的响应会被丢弃。
func (m *Model) closeTerminal() {
	if m.sess == nil {
		return
	}
	m.buffer.Close()
	m.shell.Close()
	m.sess = nil
	m.notice = "Terminal closed • ctrl+o reopen • ctrl+c quit"
}

func (m *Model) notify(msg string) {
	m.notice = msg
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	m.status.SetBusy(len(m.outstanding) > 0)
	return m, tea.Batch(cmds...)
}

// Opened 报告终端当前是否打开。
func (m *Model) Opened() bool { return m.sess != nil }

// SessionID 返回当前会话 id；终端关闭后为空。
func (m *Model) SessionID() string {
	if m.sess == nil {
		return ""
	}
	return m.sess.ID()
}

// Transcript 返回终端缓冲的全部行。
func (m *Model) Transcript() []string {
	return m.buffer.Lines()
}

func (m *Model) bodyHeight() int {
	// 标题、边框上下、状态行、提示行
	return max(m.height-5, 3)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	header := renderHeader(m.opts.Endpoint, m.Opened(), m.width)
	body := renderPane(m.renderBody(), m.width, m.bodyHeight(), m.Opened())
	status := m.renderStatus()
	content := lipgloss.JoinVertical(lipgloss.Left, header, body, status, renderHints(m.width, m.Opened()))
	if m.search.Active() {
		return lipgloss.JoinVertical(lipgloss.Left, content, m.search.View(m.width))
	}
	return content
}

func (m *Model) renderBody() string {
	lines := m.buffer.Lines()
	greet := m.buffer.GreetingRows()
	height := m.bodyHeight()
	width := max(m.width-4, 10)

	end := len(lines)
	maxScroll := max(len(lines)-height, 0)
	m.scroll = min(m.scroll, maxScroll)
	end -= m.scroll
	start := max(end-height, 0)

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		text := runewidth.Truncate(strings.ReplaceAll(lines[i], "\t", "    "), width, "")
		switch {
		case i < greet:
			text = greetingStyle.Render(text)
		case i == len(lines)-1 && m.Opened() && !m.buffer.Locked():
			text += cursorStyle.Render(" ")
		}
		out = append(out, text)
	}
	return strings.Join(out, "\n")
}

func (m *Model) renderStatus() string {
	if line := m.status.Render(len(m.outstanding), m.width); line != "" {
		return line
	}
	if m.notice != "" {
		return noticeStyle.Render(truncateToWidth(m.notice, max(m.width, 10)))
	}
	if m.scroll > 0 {
		return hintStyle.Render("scrolled • pgdown to return")
	}
	return ""
}
