// Package progress describes how build progress is relayed to whatever
// is driving a build: a CLI renders it as log lines, a future GUI or RPC
// caller could render it as an actual progress bar.
package progress

import (
	"context"

	"github.com/oxidecomputer/zonepkg/internal/dcontext"
)

// Progress receives incremental status updates while a package is being
// constructed.
type Progress interface {
	// SetMessage updates the message displayed regarding progress
	// constructing the package.
	SetMessage(msg string)

	// Increment reports that delta more units of work (bytes fetched,
	// archive entries written) have completed.
	Increment(delta uint64)
}

// NoProgress discards every update.
type NoProgress struct{}

func (NoProgress) SetMessage(string) {}
func (NoProgress) Increment(uint64)  {}

// LogProgress renders updates as log lines through the context-scoped
// logger, for a CLI with no interactive terminal to draw a progress bar
// on.
type LogProgress struct {
	ctx   context.Context
	total uint64
}

// NewLogProgress returns a LogProgress reporting through ctx's logger.
func NewLogProgress(ctx context.Context) *LogProgress {
	return &LogProgress{ctx: ctx}
}

func (l *LogProgress) SetMessage(msg string) {
	dcontext.GetLogger(l.ctx).Info(msg)
}

func (l *LogProgress) Increment(delta uint64) {
	l.total += delta
	dcontext.GetLoggerWithField(l.ctx, "completed", l.total).Debug("progress")
}
