package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives progress updates while many documents are validated.
type ProgressCallback interface {
	OnStart(total int)
	OnProgress(current, total int)
	OnComplete()
	OnError(current int, err error)
}

// NoOpProgressCallback ignores all updates.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)         {}
func (NoOpProgressCallback) OnProgress(int, int) {}
func (NoOpProgressCallback) OnComplete()         {}
func (NoOpProgressCallback) OnError(int, error)  {}

// ConsoleProgressCallback draws a single-line progress bar.
type ConsoleProgressCallback struct {
	mu       sync.Mutex
	w        io.Writer
	prefix   string
	width    int
	interval time.Duration
	started  time.Time
	last     time.Time
	failed   int
}

// NewConsoleProgressCallback writes to w, or stderr when w is nil.
func NewConsoleProgressCallback(w io.Writer, prefix string) *ConsoleProgressCallback {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgressCallback{w: w, prefix: prefix, width: 30, interval: 100 * time.Millisecond}
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = time.Now()
	c.last = time.Time{}
	c.failed = 0
	_, _ = fmt.Fprintf(c.w, "%s0/%d\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnProgress(current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if total <= 0 || (now.Sub(c.last) < c.interval && current < total) {
		return
	}
	c.last = now

	filled := c.width * current / total
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)
	line := fmt.Sprintf("\r%s[%s] %d/%d", c.prefix, bar, current, total)
	if elapsed := now.Sub(c.started); elapsed > 0 && current > 0 {
		line += fmt.Sprintf(" %.1f docs/s", float64(current)/elapsed.Seconds())
	}
	if c.failed > 0 {
		line += fmt.Sprintf(" (%d failed)", c.failed)
	}
	_, _ = fmt.Fprint(c.w, line)
}

func (c *ConsoleProgressCallback) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "\n%sdone in %v\n", c.prefix, time.Since(c.started).Round(time.Millisecond))
}

func (c *ConsoleProgressCallback) OnError(int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
}

// LogProgressCallback reports progress through slog every interval items.
type LogProgressCallback struct {
	logger   *slog.Logger
	interval int
	started  time.Time
}

// NewLogProgressCallback uses slog.Default when logger is nil.
func NewLogProgressCallback(logger *slog.Logger, interval int) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, interval: max(1, interval)}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.started = time.Now()
	l.logger.Info("validation started", "total", total)
}

func (l *LogProgressCallback) OnProgress(current, total int) {
	if current%l.interval == 0 || current == total {
		l.logger.Info("validation progress", "current", current, "total", total)
	}
}

func (l *LogProgressCallback) OnComplete() {
	l.logger.Info("validation complete", "duration", time.Since(l.started))
}

func (l *LogProgressCallback) OnError(current int, err error) {
	l.logger.Warn("validation failed", "item", current, "error", err)
}
