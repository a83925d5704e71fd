// ABOUTME: In-memory ring of recent log lines behind a slog handler
// ABOUTME: Keeps the terminal clean while the TUI runs; the overlay reads Lines
package reqlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultCapacity = 200

// Ring stores the most recent log lines, oldest first. Safe for concurrent
// use: bubbletea commands log from their own goroutines.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

// NewRing returns a ring holding up to capacity lines.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ring{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest when full.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns a copy of the buffered lines in insertion order.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	if r.full {
		out = append(out, r.lines[r.next:]...)
	}
	out = append(out, r.lines[:r.next]...)
	return out
}

// Handler is a slog.Handler that renders records into a Ring.
type Handler struct {
	ring  *Ring
	level slog.Level
	attrs []slog.Attr
}

// NewHandler returns a handler appending to ring at or above level.
func NewHandler(ring *Ring, level slog.Level) *Handler {
	return &Handler{ring: ring, level: level}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", rec.Time.Format(time.TimeOnly), rec.Level, rec.Message)
	for _, attr := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
	}
	rec.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	h.ring.Append(b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is accepted but not rendered; the overlay shows flat lines.
func (h *Handler) WithGroup(string) slog.Handler { return h }

// Install routes the default slog logger into a new ring and returns it.
func Install(level slog.Level) *Ring {
	ring := NewRing(defaultCapacity)
	slog.SetDefault(slog.New(NewHandler(ring, level)))
	return ring
}
