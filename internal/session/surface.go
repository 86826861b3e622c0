package session

// Surface 是交互终端对会话层暴露的能力。渲染、光标、滚动都由实现方负责。
type Surface interface {
	// NewLine 结束当前显示行。
	NewLine()
	// Write 追加任意文本到显示区。
	Write(text string)
	// Prompt 重新显示输入提示符，并解除处理期间的锁定。
	Prompt()
	// ClearLine 清空尚未提交的当前行。
	ClearLine()
	// Key 走真实按键相同的路径输入一个字符。
	Key(r rune)
	// Enter 走真实按键相同的路径提交当前行。
	Enter()
	// OnLine 注册行完成回调，raw 为当前行缓冲的原始内容。
	OnLine(fn func(raw string))
	Closed() bool
	Locked() bool
}

// Notifier 向用户展示显式通知（例如没有打开的终端）。
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc 让普通函数满足 Notifier。
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }
