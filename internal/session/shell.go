package session

import (
	"errors"
	"sync"

	"ggh-shell/internal/logger"
)

var (
	// ErrNoActiveSession 表示没有打开的终端会话。
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionLocked 表示会话或全局按键锁被占用，粘贴被静默拒绝。
	ErrSessionLocked = errors.New("session locked")
)

// NoActiveSessionMessage 是没有打开终端时展示给用户的通知。
const NoActiveSessionMessage = "Please open the terminal first."

// Shell 持有唯一的活动会话与全局按键锁。
// 同一时间最多一个会话，由 Shell 自身保证。
type Shell struct {
	opts     Options
	notifier Notifier
	log      *logger.LogEntry

	mu      sync.Mutex
	active  *Session
	keyLock bool
}

// NewShell 创建 Shell；opts 用于之后每个打开的会话。
func NewShell(opts Options, notifier Notifier) *Shell {
	log := opts.Log
	if log == nil {
		log = logger.Named("session")
		opts.Log = log
	}
	return &Shell{opts: opts, notifier: notifier, log: log}
}

// Open 在 surface 上打开会话。已有未关闭的会话时直接返回它。
func (sh *Shell) Open(surface Surface) *Session {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.active != nil && !sh.active.surface.Closed() {
		return sh.active
	}
	if sh.active != nil {
		sh.active.close()
	}
	sh.active = newSession(surface, sh.opts)
	sh.active.log.WithField("op", "open").Info("session opened")
	return sh.active
}

// Close 关闭当前会话并取消其未完成的请求。
func (sh *Shell) Close() {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.active == nil {
		return
	}
	sh.active.close()
	sh.active.log.WithField("op", "close").Info("session closed")
	sh.active = nil
}

// Active 返回打开且未关闭的会话；没有时返回 nil。
func (sh *Shell) Active() *Session {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.active == nil || sh.active.surface.Closed() {
		return nil
	}
	return sh.active
}

// SetKeyLock 设置全局按键锁。
func (sh *Shell) SetKeyLock(locked bool) {
	sh.mu.Lock()
	sh.keyLock = locked
	sh.mu.Unlock()
}

func (sh *Shell) KeyLocked() bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.keyLock
}

// Paste 把 text 当作键入内容提交：先清空当前行，逐字符走按键路径，最后回车。
//
// 没有活动会话时通知用户并返回 ErrNoActiveSession；
// 全局锁、终端锁或会话 Busy 时静默返回 ErrSessionLocked。
func (sh *Shell) Paste(text string) error {
	sess := sh.Active()
	if sess == nil {
		if sh.notifier != nil {
			sh.notifier.Notify(NoActiveSessionMessage)
		}
		sh.log.WithField("op", "paste").Warn("paste refused: no active session")
		return ErrNoActiveSession
	}
	if sh.KeyLocked() || sess.surface.Locked() || sess.State() == StateBusy {
		sess.log.WithField("op", "paste").Debug("paste refused: session locked")
		return ErrSessionLocked
	}
	surface := sess.surface
	surface.ClearLine()
	for _, r := range text {
		surface.Key(r)
	}
	surface.Enter()
	return nil
}
