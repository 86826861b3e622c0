package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

const historySearchLimit = 8

// historySearch 是 ctrl+r 打开的模糊历史搜索。打开期间持有全局按键锁。
type historySearch struct {
	input    textinput.Model
	entries  []string
	matches  []string
	selected int
	active   bool
}

func newHistorySearch() historySearch {
	ti := textinput.New()
	ti.Prompt = "search: "
	ti.Placeholder = "type to filter history"
	ti.CharLimit = 256
	return historySearch{input: ti}
}

// Open 以最近优先、去重后的 entries 打开搜索。
func (s *historySearch) Open(entries []string) tea.Cmd {
	seen := make(map[string]struct{}, len(entries))
	s.entries = s.entries[:0]
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		s.entries = append(s.entries, e)
	}
	s.input.Reset()
	s.active = true
	s.refresh()
	return s.input.Focus()
}

func (s *historySearch) Close() {
	s.active = false
	s.input.Blur()
	s.matches = nil
	s.selected = 0
}

func (s *historySearch) Active() bool { return s.active }

func (s *historySearch) Move(delta int) {
	if len(s.matches) == 0 {
		s.selected = 0
		return
	}
	s.selected = (s.selected + delta + len(s.matches)) % len(s.matches)
}

func (s *historySearch) Selected() (string, bool) {
	if s.selected < 0 || s.selected >= len(s.matches) {
		return "", false
	}
	return s.matches[s.selected], true
}

// Update 把按键交给查询输入框并重新匹配。
func (s *historySearch) Update(msg tea.Msg) tea.Cmd {
	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if s.input.Value() != before {
		s.refresh()
	}
	return cmd
}

func (s *historySearch) SetQuery(q string) {
	s.input.SetValue(q)
	s.refresh()
}

func (s *historySearch) refresh() {
	s.selected = 0
	query := strings.TrimSpace(s.input.Value())
	if query == "" {
		s.matches = append([]string(nil), s.entries[:min(len(s.entries), historySearchLimit)]...)
		return
	}
	found := fuzzy.Find(query, s.entries)
	s.matches = s.matches[:0]
	for i, m := range found {
		if i == historySearchLimit {
			break
		}
		s.matches = append(s.matches, m.Str)
	}
}

var (
	searchSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	searchItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C9C7D1"))
)

func (s *historySearch) View(width int) string {
	lines := []string{s.input.View()}
	if len(s.matches) == 0 {
		lines = append(lines, searchItemStyle.Faint(true).Render("(no match)"))
	}
	for i, m := range s.matches {
		text := truncateToWidth(m, max(width-6, 10))
		if i == s.selected {
			lines = append(lines, searchSelectedStyle.Render("› "+text))
			continue
		}
		lines = append(lines, searchItemStyle.Render("  "+text))
	}
	lines = append(lines, searchItemStyle.Faint(true).Render("enter select • esc cancel"))
	return modalStyle.Width(max(width-4, 20)).Render(strings.Join(lines, "\n"))
}
