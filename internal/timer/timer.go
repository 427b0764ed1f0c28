// Package timer tracks how long each named phase of a package build
// takes, for logging and progress reporting.
package timer

import (
	"context"
	"fmt"
	"time"

	"github.com/oxidecomputer/zonepkg/internal/dcontext"
)

// Phase is a single completed, named time span.
type Phase struct {
	name     string
	endLabel string
	hasLabel bool
	start    time.Time
	end      time.Time
}

// Name is the label the phase was started with.
func (p Phase) Name() string { return p.name }

// EndLabel is the optional label attached when the phase finished.
func (p Phase) EndLabel() (string, bool) { return p.endLabel, p.hasLabel }

// Duration is the phase's elapsed wall-clock time.
func (p Phase) Duration() time.Duration { return p.end.Sub(p.start) }

type phaseStart struct {
	name  string
	start time.Time
}

// BuildTimer tracks a single ongoing phase at a time, recording each one
// as it finishes. It is not safe for concurrent use; callers drive it
// from one goroutine per build.
type BuildTimer struct {
	current *phaseStart
	past    []Phase
}

// New returns an empty BuildTimer.
func New() *BuildTimer {
	return &BuildTimer{}
}

// Start begins a new phase named name, implicitly finishing whatever
// phase was previously in progress (with no end label).
func (b *BuildTimer) Start(name string) {
	if b.current != nil {
		_ = b.finish("")
	}
	b.current = &phaseStart{name: name, start: time.Now()}
}

// Finish closes the current phase with no end label.
func (b *BuildTimer) Finish() error {
	return b.finish("")
}

// FinishWithLabel closes the current phase, recording label alongside it.
func (b *BuildTimer) FinishWithLabel(label string) error {
	return b.finish(label)
}

func (b *BuildTimer) finish(label string) error {
	if b.current == nil {
		return fmt.Errorf("timer: no build phase in progress")
	}
	p := Phase{
		name:  b.current.name,
		start: b.current.start,
		end:   time.Now(),
	}
	if label != "" {
		p.endLabel, p.hasLabel = label, true
	}
	b.past = append(b.past, p)
	b.current = nil
	return nil
}

// Completed returns every phase recorded so far, in the order they
// finished.
func (b *BuildTimer) Completed() []Phase {
	return b.past
}

// LogAll logs a summary line for every completed phase via the
// context-scoped logger.
func (b *BuildTimer) LogAll(ctx context.Context) {
	log := dcontext.GetLogger(ctx)
	for _, p := range b.Completed() {
		suffix := ""
		if label, ok := p.EndLabel(); ok {
			suffix = " -- " + label
		}
		d := p.Duration()
		log.Infof("Phase %s took %d.%06ds%s", p.Name(), int64(d/time.Second), int64(d%time.Second/time.Microsecond), suffix)
	}
}
