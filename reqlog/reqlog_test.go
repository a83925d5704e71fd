// ABOUTME: Tests for the log ring and its slog handler
// ABOUTME: Covers eviction order, level gating, and attr rendering
package reqlog

import (
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Append("line" + strconv.Itoa(i))
	}
	assert.Equal(t, []string{"line3", "line4", "line5"}, r.Lines())
}

func TestRingPartialFill(t *testing.T) {
	r := NewRing(10)
	r.Append("a")
	r.Append("b")
	assert.Equal(t, []string{"a", "b"}, r.Lines())
}

func TestHandlerRendersAttrs(t *testing.T) {
	ring := NewRing(10)
	logger := slog.New(NewHandler(ring, slog.LevelDebug))

	logger.Info("request", "method", "REPORT", "url", "https://caldav.example.com/home/")
	logger.With("provider", "google").Info("response", "status", 200)

	lines := ring.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "request")
	assert.Contains(t, lines[0], "method=REPORT")
	assert.Contains(t, lines[1], "provider=google")
	assert.Contains(t, lines[1], "status=200")
}

func TestHandlerLevelGate(t *testing.T) {
	ring := NewRing(10)
	logger := slog.New(NewHandler(ring, slog.LevelInfo))

	logger.Debug("hidden")
	logger.Warn("shown")

	lines := ring.Lines()
	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "shown"))
}
