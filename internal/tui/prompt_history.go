package tui

import "strings"

// promptHistory 负责命令行的历史浏览状态（上下箭头）。
// cursor == len(entries) 表示当前在“正在输入”的位置，而不是某条历史。
type promptHistory struct {
	entries []string
	cursor  int
	draft   string
}

func (h *promptHistory) Set(entries []string) {
	h.entries = h.entries[:0]
	for _, e := range entries {
		h.push(e)
	}
	h.ResetBrowsing()
}

// Add 记录一条已提交的命令；空行与紧邻的重复行不记录。
func (h *promptHistory) Add(line string) {
	h.push(line)
	h.ResetBrowsing()
}

func (h *promptHistory) push(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
}

// Entries 返回历史副本，按提交顺序。
func (h *promptHistory) Entries() []string {
	return append([]string(nil), h.entries...)
}

func (h *promptHistory) Browsing() bool {
	return h.cursor < len(h.entries)
}

func (h *promptHistory) ResetBrowsing() {
	h.cursor = len(h.entries)
	h.draft = ""
}

func (h *promptHistory) Prev(current string) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == len(h.entries) {
		h.draft = current
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

func (h *promptHistory) Next() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == len(h.entries) {
		return "", false
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor], true
	}
	h.cursor = len(h.entries)
	return h.draft, true
}
