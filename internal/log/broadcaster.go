package log

import (
	"io"
	"sync"
)

const (
	subscriberBuffer = 256
	defaultBacklog   = 100
)

// Broadcaster copies every log line to live subscribers and keeps the most
// recent lines so that a new subscriber starts with some context.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan []byte]struct{}

	backlog [][]byte
	next    int
	full    bool
}

func NewBroadcaster() *Broadcaster {
	return NewBroadcasterWithBacklog(defaultBacklog)
}

func NewBroadcasterWithBacklog(lines int) *Broadcaster {
	if lines < 0 {
		lines = 0
	}
	return &Broadcaster{
		subscribers: make(map[chan []byte]struct{}),
		backlog:     make([][]byte, lines),
	}
}

// Write never blocks on a subscriber: a line is dropped for subscribers
// whose buffer is full.
func (b *Broadcaster) Write(p []byte) (int, error) {
	line := make([]byte, len(p))
	copy(line, p)

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.backlog) > 0 {
		b.backlog[b.next] = line
		b.next = (b.next + 1) % len(b.backlog)
		if b.next == 0 {
			b.full = true
		}
	}
	for ch := range b.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
	return len(p), nil
}

// Subscribe returns a channel pre-filled with the backlog. Call Unsubscribe
// when done.
func (b *Broadcaster) Subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer+len(b.backlog))

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, line := range b.recentLocked() {
		ch <- line
	}
	b.subscribers[ch] = struct{}{}
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	_, ok := b.subscribers[ch]
	delete(b.subscribers, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Recent returns the backlog, oldest line first.
func (b *Broadcaster) Recent() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recentLocked()
}

func (b *Broadcaster) recentLocked() [][]byte {
	if !b.full {
		out := make([][]byte, b.next)
		copy(out, b.backlog[:b.next])
		return out
	}
	out := make([][]byte, 0, len(b.backlog))
	out = append(out, b.backlog[b.next:]...)
	return append(out, b.backlog[:b.next]...)
}

var _ io.Writer = (*Broadcaster)(nil)
