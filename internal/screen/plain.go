package screen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"ggh-shell/internal/session"
)

// Plain 是行模式终端：输出直接写到 io.Writer，用于非 TTY 输入与脚本。
type Plain struct {
	out    io.Writer
	prompt string
	echo   bool

	mu     sync.Mutex
	col    int
	input  []rune
	locked bool
	closed bool
	onLine func(raw string)
	err    error
}

// PlainOptions 配置行模式终端。Echo 为 true 时把读入的行回显到输出。
type PlainOptions struct {
	Prompt string
	Echo   bool
}

func NewPlain(out io.Writer, opts PlainOptions) *Plain {
	return &Plain{out: out, prompt: opts.Prompt, echo: opts.Echo, locked: true}
}

func (p *Plain) NewLine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeLocked("\n")
}

func (p *Plain) Write(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeLocked(text)
}

func (p *Plain) Prompt() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.col != 0 {
		p.writeLocked("\n")
	}
	p.writeLocked(p.prompt)
	p.input = nil
	p.locked = false
}

func (p *Plain) ClearLine() {
	p.mu.Lock()
	p.input = nil
	p.mu.Unlock()
}

func (p *Plain) Key(r rune) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.locked {
		return
	}
	p.input = append(p.input, r)
}

func (p *Plain) Enter() {
	p.mu.Lock()
	if p.closed || p.locked {
		p.mu.Unlock()
		return
	}
	raw := string(p.input)
	p.locked = true
	if p.echo {
		p.writeLocked(raw)
	}
	fn := p.onLine
	p.mu.Unlock()

	if fn != nil {
		fn(raw)
	}
}

func (p *Plain) OnLine(fn func(raw string)) {
	p.mu.Lock()
	p.onLine = fn
	p.mu.Unlock()
}

func (p *Plain) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Plain) Locked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locked
}

// Close 结束终端；若光标不在行首则补一个换行。
func (p *Plain) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.col != 0 {
		p.writeLocked("\n")
	}
	p.closed = true
	p.locked = true
}

// Err 返回第一次写输出失败的错误。
func (p *Plain) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Plain) writeLocked(text string) {
	if text == "" {
		return
	}
	if p.err == nil {
		_, p.err = io.WriteString(p.out, text)
	}
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		p.col = utf8.RuneCountInString(text[i+1:])
	} else {
		p.col += utf8.RuneCountInString(text)
	}
}

// RunPlain 在 surface 上打开会话并逐行读取 in：每行走按键路径提交，
// 等响应渲染完成后再读下一行。exec 中的行在读取 in 之前以粘贴方式提交。
// in 读完或 ctx 取消时关闭会话。queue 必须是 shell 的 OnDispatch 目标。
func RunPlain(ctx context.Context, in io.Reader, shell *session.Shell, surface *Plain, queue *session.Queue, exec ...string) error {
	if shell == nil || surface == nil || queue == nil {
		return errors.New("plain: shell, surface and queue are required")
	}
	sess := shell.Open(surface)
	surface.Prompt()
	defer func() {
		shell.Close()
		surface.Close()
	}()

	for _, line := range exec {
		if err := shell.Paste(line); err != nil {
			return fmt.Errorf("submit %q: %w", line, err)
		}
		if err := completeQueued(ctx, sess, queue); err != nil {
			return err
		}
	}
	if in == nil {
		return surface.Err()
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return surface.Err()
			}
			surface.ClearLine()
			for _, r := range strings.TrimRight(line, "\r") {
				surface.Key(r)
			}
			surface.Enter()
			if err := completeQueued(ctx, sess, queue); err != nil {
				return err
			}
		}
	}
}

func completeQueued(ctx context.Context, sess *session.Session, queue *session.Queue) error {
	for _, p := range queue.Drain() {
		select {
		case <-p.Done():
			sess.Complete(p, p.Wait())
		case <-ctx.Done():
			p.Cancel()
			return ctx.Err()
		}
	}
	return nil
}
