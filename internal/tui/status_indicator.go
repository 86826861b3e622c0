package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// statusIndicator 管理等待响应期间的状态行：spinner + 标题 + 计时/取消提示。
// 会话 Busy 时计时，回到 Idle 时清零。
type statusIndicator struct {
	spin  spinner.Model
	clock func() time.Time

	busy  bool
	since time.Time
}

func newStatusIndicator(clock func() time.Time) statusIndicator {
	if clock == nil {
		clock = time.Now
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	return statusIndicator{spin: spin, clock: clock}
}

// SetBusy 切换计时状态；重复设置同一状态不会重置计时。
func (s *statusIndicator) SetBusy(busy bool) {
	if busy == s.busy {
		return
	}
	s.busy = busy
	if busy {
		s.since = s.clock()
	} else {
		s.since = time.Time{}
	}
}

func (s *statusIndicator) Busy() bool { return s.busy }

func (s *statusIndicator) ElapsedSeconds() uint64 {
	if !s.busy {
		return 0
	}
	d := s.clock().Sub(s.since)
	if d < 0 {
		return 0
	}
	return uint64(d.Seconds())
}

// Render 返回状态行；outstanding 为尚未渲染的请求数。
func (s *statusIndicator) Render(outstanding int, width int) string {
	if !s.busy {
		return ""
	}
	header := "Waiting for response"
	if outstanding > 1 {
		header = fmt.Sprintf("Waiting for %d responses", outstanding)
	}
	hint := lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("(%s • esc to cancel)", fmtElapsedCompact(s.ElapsedSeconds())),
	)
	line := s.spin.View() + " " + header + " " + hint
	if width > 0 && lipgloss.Width(line) > width {
		return truncateToWidth(header, width)
	}
	return line
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}

func truncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	w := 0
	out := make([]rune, 0, len(text))
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}
		out = append(out, r)
		w += rw
	}
	return string(out)
}
