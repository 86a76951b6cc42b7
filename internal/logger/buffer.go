package logger

import (
	"sync"

	"github.com/goccy/go-json"
)

const defaultBufferSize = 500

// Publisher pushes a typed message to connected clients.
type Publisher interface {
	Broadcast(msgType string, payload interface{})
}

// Entry is a parsed log record kept for the system logs endpoint.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is an io.Writer sink that keeps the most recent log entries and
// optionally republishes them to websocket clients.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	pub     Publisher
}

// NewBuffer creates a buffer holding up to capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// SetPublisher attaches a publisher. The hub is built after the logger, so
// this is set late.
func (b *Buffer) SetPublisher(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pub = p
}

// Write implements io.Writer over zerolog JSON records.
func (b *Buffer) Write(p []byte) (int, error) {
	entry, ok := parseEntry(p)
	if !ok {
		return len(p), nil
	}

	b.mu.Lock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	pub := b.pub
	b.mu.Unlock()

	if pub != nil {
		pub.Broadcast("logs:entry", entry)
	}
	return len(p), nil
}

// Recent returns up to limit entries, oldest first. A limit <= 0 returns all.
func (b *Buffer) Recent(limit int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.next
	start := 0
	if b.full {
		n = len(b.entries)
		start = b.next
	}
	if limit > 0 && limit < n {
		start = (start + n - limit) % len(b.entries)
		n = limit
	}

	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

func parseEntry(data []byte) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, false
	}

	entry := Entry{}
	take := func(key string) string {
		s, _ := raw[key].(string)
		delete(raw, key)
		return s
	}
	entry.Timestamp = take("time")
	entry.Level = take("level")
	entry.Component = take("component")
	entry.Message = take("message")
	if len(raw) > 0 {
		entry.Fields = raw
	}
	return entry, true
}
