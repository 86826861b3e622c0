package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry 是一条已发送的命令行。
type Entry struct {
	Line      string    `json:"line"`
	SessionID string    `json:"session_id,omitempty"`
	TS        time.Time `json:"ts"`
}

// Store 以 jsonl 追加保存命令历史。
type Store struct {
	Path string

	mu sync.Mutex
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ggh", "history.jsonl"), nil
}

// Open 返回 path 对应的 store；path 为空时使用默认路径。
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{Path: path}, nil
}

func (s *Store) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return errors.New("history store path is empty")
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}

// Append 记录一条命令；空行不记录。
func (s *Store) Append(line, sessionID string) error {
	if s == nil {
		return errors.New("history store is nil")
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	entry := Entry{Line: line, SessionID: sessionID, TS: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// LoadLines 读取全部历史命令，按写入顺序返回；损坏的行会被跳过。
func (s *Store) LoadLines() ([]string, error) {
	if s == nil {
		return nil, errors.New("history store is nil")
	}
	if strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("history store path is empty")
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var out []string
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		if strings.TrimSpace(e.Line) == "" {
			continue
		}
		out = append(out, e.Line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
