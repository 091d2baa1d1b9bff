package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// LogEntry represents a single log message with metadata
type LogEntry struct {
	Time    time.Time
	Level   slog.Level
	Message string
}

// LogBuffer is a thread-safe circular buffer for log entries
type LogBuffer struct {
	entries []LogEntry
	size    int
	index   int
	count   int
	mutex   sync.RWMutex
}

// NewLogBuffer creates a new log buffer with the specified capacity
func NewLogBuffer(size int) *LogBuffer {
	if size < 1 {
		size = 1
	}
	return &LogBuffer{
		entries: make([]LogEntry, size),
		size:    size,
	}
}

// Add inserts a new log entry into the buffer, overwriting the oldest one
// when full.
func (lb *LogBuffer) Add(entry LogEntry) {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	lb.entries[lb.index] = entry
	lb.index = (lb.index + 1) % lb.size
	if lb.count < lb.size {
		lb.count++
	}
}

// GetRecent returns up to maxCount entries at or above minLevel, newest first.
// A maxCount of zero returns every matching entry.
func (lb *LogBuffer) GetRecent(maxCount int, minLevel slog.Level) []LogEntry {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()

	var result []LogEntry
	for i := 0; i < lb.count; i++ {
		entry := lb.entries[(lb.index-1-i+lb.size)%lb.size]
		if entry.Level < minLevel {
			continue
		}
		result = append(result, entry)
		if maxCount > 0 && len(result) == maxCount {
			break
		}
	}
	return result
}

// Len returns the number of buffered entries.
func (lb *LogBuffer) Len() int {
	lb.mutex.RLock()
	defer lb.mutex.RUnlock()
	return lb.count
}

// LogBufferHandler is a slog.Handler that captures logs to a LogBuffer,
// flattening attributes into the message as key=value pairs.
type LogBufferHandler struct {
	buffer *LogBuffer
	level  slog.Leveler
	prefix string // pre-rendered attributes from WithAttrs
	group  string
}

// NewLogBufferHandler creates a new handler that writes to the given buffer
func NewLogBufferHandler(buffer *LogBuffer, level slog.Leveler) *LogBufferHandler {
	return &LogBufferHandler{
		buffer: buffer,
		level:  level,
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *LogBufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle processes a log record
func (h *LogBufferHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)
	sb.WriteString(h.prefix)
	record.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&sb, a)
		return true
	})

	h.buffer.Add(LogEntry{
		Time:    record.Time,
		Level:   record.Level,
		Message: sb.String(),
	})
	return nil
}

func (h *LogBufferHandler) writeAttr(sb *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	fmt.Fprintf(sb, " %s=%v", key, a.Value.Resolve())
}

// WithAttrs returns a handler that renders attrs on every record
func (h *LogBufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.prefix)
	for _, a := range attrs {
		h.writeAttr(&sb, a)
	}
	clone := *h
	clone.prefix = sb.String()
	return &clone
}

// WithGroup returns a handler that qualifies later attribute keys with name
func (h *LogBufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		clone.group += "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// FormatLogEntry formats a log entry for display
func FormatLogEntry(entry LogEntry) string {
	levelStr := ""
	switch {
	case entry.Level >= slog.LevelError:
		levelStr = "ERR"
	case entry.Level >= slog.LevelWarn:
		levelStr = "WRN"
	case entry.Level >= slog.LevelInfo:
		levelStr = "INF"
	default:
		levelStr = "DBG"
	}

	timeStr := entry.Time.Format("15:04:05")
	return fmt.Sprintf("%s [%s] %s", timeStr, levelStr, entry.Message)
}
