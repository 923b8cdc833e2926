package statistics

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/rule/common"
)

const (
	DefaultMaxEvents = 1000
	dumpInterval     = 5 * time.Second
	day              = 24 * time.Hour
)

// Recorder collects redirect and not-found events. Record* calls never block
// the request path: events are queued and applied by Run.
type Recorder struct {
	settings  config.Settings
	maxEvents int
	dumpFile  string
	now       func() time.Time

	eventChan chan *Event

	mu     sync.RWMutex
	events []*Event // newest first
	hits   map[string]*HitRecord
	dirty  bool
}

func NewRecorder(settings config.Settings, dumpFile string) *Recorder {
	return &Recorder{
		settings:  settings,
		maxEvents: DefaultMaxEvents,
		dumpFile:  dumpFile,
		now:       time.Now,
		eventChan: make(chan *Event, 256),
		hits:      make(map[string]*HitRecord, 64),
	}
}

// RecordRedirect queues the event for a matched rule.
func (r *Recorder) RecordRedirect(res *common.Result, userAgent, referrer string) {
	if res == nil {
		return
	}
	r.enqueue(redirectEvent(res, userAgent, referrer))
}

// RecordNotFound queues the event for a request no rule handled and that
// ended as a not-found.
func (r *Recorder) RecordNotFound(uri, userAgent, referrer string) {
	r.enqueue(notFoundEvent(uri, userAgent, referrer))
}

func (r *Recorder) enqueue(e *Event) {
	e.Timestamp = r.now()
	select {
	case r.eventChan <- e:
	default:
		slog.Debug("Event queue full, dropping", slog.Any("event", e))
	}
}

// Add applies an event immediately.
func (r *Recorder) Add(e *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}
	if e.FromRule != "" {
		key := e.FromRule + "\x00" + e.ToRule
		if h, ok := r.hits[key]; ok {
			h.Count++
			h.Status = e.Status
			h.LastHit = e.Timestamp
		} else {
			r.hits[key] = &HitRecord{
				FromRule: e.FromRule,
				ToRule:   e.ToRule,
				Status:   e.Status,
				Count:    1,
				LastHit:  e.Timestamp,
			}
		}
	}

	if r.retention(e) == 0 {
		return
	}
	r.events = append(r.events, nil)
	copy(r.events[1:], r.events)
	r.events[0] = e
	if len(r.events) > r.maxEvents {
		r.events = r.events[:r.maxEvents]
	}
	r.dirty = true
}

func (r *Recorder) retention(e *Event) int {
	if e.IsNotFound() {
		return r.settings.NotFoundLogs
	}
	return r.settings.RedirectLogs
}

func (r *Recorder) expired(e *Event, now time.Time) bool {
	days := r.retention(e)
	switch {
	case days < 0:
		return false
	case days == 0:
		return true
	default:
		return now.Sub(e.Timestamp) > time.Duration(days)*day
	}
}

// Events returns the retained events, newest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	out := make([]Event, len(r.events))
	for i, e := range r.events {
		out[i] = *e
	}
	return out
}

// Hits returns per-rule hit counts, most used first.
func (r *Recorder) Hits() []HitRecord {
	r.mu.RLock()
	out := make([]HitRecord, 0, len(r.hits))
	for _, h := range r.hits {
		out = append(out, *h)
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].FromRule < out[j].FromRule
	})
	return out
}

func (r *Recorder) pruneLocked() {
	now := r.now()
	kept := r.events[:0]
	for _, e := range r.events {
		if !r.expired(e, now) {
			kept = append(kept, e)
		}
	}
	if len(kept) != len(r.events) {
		r.dirty = true
	}
	for i := len(kept); i < len(r.events); i++ {
		r.events[i] = nil
	}
	r.events = kept
}

// Run applies queued events and dumps the log every few seconds until ctx
// is done, then dumps once more.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(dumpInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-r.eventChan:
			r.Add(e)
		case <-ticker.C:
			if err := r.Dump(); err != nil {
				slog.Error("Recorder.Dump", slog.Any("error", err))
			}
		case <-ctx.Done():
			r.drain()
			return r.Dump()
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.eventChan:
			r.Add(e)
		default:
			return
		}
	}
}

// Dump writes the retained events as a JSON array to the dump file. It is a
// no-op without a dump file or when nothing changed since the last dump.
func (r *Recorder) Dump() error {
	if r.dumpFile == "" {
		return nil
	}

	r.mu.Lock()
	r.pruneLocked()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	events := make([]*Event, len(r.events))
	copy(events, r.events)
	r.dirty = false
	r.mu.Unlock()

	tmp := r.dumpFile + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("os.Create: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		_ = f.Close()
		return fmt.Errorf("json.Encode: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("bufio.Writer.Flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("os.File.Close: %w", err)
	}
	return os.Rename(tmp, r.dumpFile)
}
