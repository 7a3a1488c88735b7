package bgtask

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vk/buildgridgo/internal/ctxlog"
)

const (
	// DefaultHeartbeatInterval is one beat per minute.
	DefaultHeartbeatInterval = time.Minute

	// DefaultMaxHours caps how long a heartbeat keeps beating without
	// external termination.
	DefaultMaxHours = 3
)

// Heartbeat periodically prints a keep-alive line so an external
// supervisor does not treat a long, quiet build as hung. It self-limits
// to MaxHours worth of beats: in practice the App cancels it much
// earlier, but a hung build must not leave an immortal background task.
type Heartbeat struct {
	// Interval between beats. Defaults to DefaultHeartbeatInterval.
	Interval time.Duration

	// MaxHours caps the total number of beats at MaxHours * 60,
	// independent of Interval. Defaults to DefaultMaxHours.
	MaxHours int

	// Out receives the keep-alive lines.
	Out io.Writer

	// Message is the text of each beat. Defaults to "build still running".
	Message string
}

// Run beats until ctx is cancelled or the iteration ceiling is reached.
func (h *Heartbeat) Run(ctx context.Context) {
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	maxHours := h.MaxHours
	if maxHours <= 0 {
		maxHours = DefaultMaxHours
	}
	message := h.Message
	if message == "" {
		message = "build still running"
	}
	maxBeats := maxHours * 60

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for beat := 1; beat <= maxBeats; beat++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(h.Out, "[heartbeat] %s (%s elapsed)\n", message, (time.Duration(beat) * interval).String())
		}
	}
	ctxlog.FromContext(ctx).Warn("Heartbeat reached its iteration ceiling, stopping.", "max_beats", maxBeats)
}
