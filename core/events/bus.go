package events

import (
	"sync"
	"time"
)

// EventType 事件类型
type EventType string

const (
	// SongsChanged 歌曲集合发生变化（新增/更新/删除），下游派生视图需要刷新
	SongsChanged EventType = "songs_changed"
	// AlbumsChanged 智能歌单列表发生变化
	AlbumsChanged EventType = "albums_changed"
	// SyncCompleted 一次同步批次结束
	SyncCompleted EventType = "sync_completed"
)

// Event 是总线上广播的一条变更通知
type Event struct {
	Type      EventType `json:"type"`
	SongID    string    `json:"songId,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Bus fans change notifications out to subscribers. The song repository
// publishes on every applied mutation; the websocket layer and the cover
// cache subscribe. Publish never blocks: a subscriber that falls behind
// drops events rather than stalling store writes.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// function. The cancel function is safe to call more than once.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish broadcasts an event to all current subscribers.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// 订阅者处理不过来时丢弃，避免阻塞存储层写入
		}
	}
}
