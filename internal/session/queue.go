package session

import "sync"

// Queue 收集已发出的 Pending，供事件循环取走后等待并回调 Complete。
// 把 Queue.Push 作为 Options.OnDispatch 即可。
type Queue struct {
	mu    sync.Mutex
	items []*Pending
}

func (q *Queue) Push(p *Pending) {
	if p == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
}

// Drain 按发出顺序返回并清空队列。
func (q *Queue) Drain() []*Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
