package service

import "sync"

// Update 推送给 websocket 订阅者的消息
type Update struct {
	SessionID string     `json:"session_id"`
	Project   string     `json:"project,omitempty"`
	Version   uint64     `json:"version"`
	Tasks     []TaskView `json:"tasks"`
}

// Hub 将状态变更广播给所有订阅者。每个订阅者只保留最新一条，慢的订阅者不会阻塞发布方
type Hub struct {
	mu   sync.Mutex
	subs map[chan Update]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Update]struct{})}
}

// Subscribe 返回更新通道和取消函数
func (h *Hub) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- u:
			continue
		default:
		}
		// 丢弃旧消息，保留最新
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
