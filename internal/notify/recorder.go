package notify

import (
	"context"
	"sync"
)

// Recorder 在内存中保留每个 Handle 的最新通知，用于测试和命令行输出
type Recorder struct {
	mu     sync.Mutex
	all    []Notification
	latest map[Handle]Notification
}

func NewRecorder() *Recorder {
	return &Recorder{latest: map[Handle]Notification{}}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
	r.latest[n.Handle] = n
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

func (r *Recorder) Latest(h Handle) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.latest[h]
	return n, ok
}

// Count 指定级别的通知条数
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.all {
		if n.Level == level {
			c++
		}
	}
	return c
}
