package screen

import (
	"strings"
	"sync"
	"unicode"
)

// DefaultMaxLines 是 Buffer 保留的滚动行数上限。
const DefaultMaxLines = 2000

// BufferOptions 配置滚动缓冲终端。
type BufferOptions struct {
	Prompt   string
	Greeting string
	MaxLines int
}

// Buffer 是给 TUI 用的滚动缓冲终端，实现 session.Surface。
//
// 行为与网页终端一致：Enter 提交当前行并加锁，Prompt 在新行重新显示提示符并解锁。
// 在提示符之后到达的输出会把已输入的内容固定在该行，然后另起一行。
type Buffer struct {
	prompt   string
	maxLines int

	mu        sync.Mutex
	lines     []string
	cur       string
	input     []rune
	editing   bool
	locked    bool
	closed    bool
	greetRows int
	onLine    func(raw string)
}

func NewBuffer(opts BufferOptions) *Buffer {
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	b := &Buffer{prompt: opts.Prompt, maxLines: maxLines, locked: true}
	if opts.Greeting != "" {
		b.writeLocked(opts.Greeting)
		b.greetRows = len(b.lines) + 1
		b.newLineLocked()
	}
	return b
}

// NewLine 结束当前显示行。
func (b *Buffer) NewLine() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.newLineLocked()
}

func (b *Buffer) Write(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeLocked(text)
}

// Prompt 在新行显示提示符并解锁输入。
func (b *Buffer) Prompt() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freezeLocked()
	if b.cur != "" {
		b.newLineLocked()
	}
	b.cur = b.prompt
	b.input = nil
	b.editing = true
	b.locked = false
}

func (b *Buffer) ClearLine() {
	b.mu.Lock()
	b.input = nil
	b.mu.Unlock()
}

// Key 输入一个字符；退格删除最后一个字符。锁定或已关闭时忽略。
func (b *Buffer) Key(r rune) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.locked || !b.editing {
		return
	}
	switch {
	case r == '\b' || r == 0x7f:
		if n := len(b.input); n > 0 {
			b.input = b.input[:n-1]
		}
	case r == '\t' || unicode.IsPrint(r):
		b.input = append(b.input, r)
	}
}

// Enter 提交当前行：加锁后把原始行交给 OnLine 回调。
func (b *Buffer) Enter() {
	b.mu.Lock()
	if b.closed || b.locked || !b.editing {
		b.mu.Unlock()
		return
	}
	raw := string(b.input)
	b.locked = true
	fn := b.onLine
	b.mu.Unlock()

	if fn != nil {
		fn(raw)
	}
}

func (b *Buffer) OnLine(fn func(raw string)) {
	b.mu.Lock()
	b.onLine = fn
	b.mu.Unlock()
}

func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Close 关闭终端，之后的按键与提交都会被忽略。
func (b *Buffer) Close() {
	b.mu.Lock()
	b.freezeLocked()
	b.closed = true
	b.locked = true
	b.mu.Unlock()
}

// Input 返回尚未提交的当前行。
func (b *Buffer) Input() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.input)
}

// GreetingRows 返回开头属于欢迎语的行数。
func (b *Buffer) GreetingRows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.greetRows
}

// Lines 返回全部显示行，最后一行是当前行（含正在输入的内容）。
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.lines)+1)
	out = append(out, b.lines...)
	return append(out, b.currentLocked())
}

func (b *Buffer) currentLocked() string {
	if b.editing {
		return b.cur + string(b.input)
	}
	return b.cur
}

// freezeLocked 把正在输入的内容固定到当前行。
func (b *Buffer) freezeLocked() {
	if !b.editing {
		return
	}
	b.cur += string(b.input)
	b.input = nil
	b.editing = false
}

func (b *Buffer) newLineLocked() {
	b.freezeLocked()
	b.lines = append(b.lines, b.cur)
	b.cur = ""
	if over := len(b.lines) - b.maxLines; over > 0 {
		b.lines = append([]string(nil), b.lines[over:]...)
		b.greetRows = max(0, b.greetRows-over)
	}
}

func (b *Buffer) writeLocked(text string) {
	b.freezeLocked()
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	b.cur += parts[0]
	for _, p := range parts[1:] {
		b.newLineLocked()
		b.cur = p
	}
}
