// Package progress keeps aggregated step counters for a single workflow
// instance run. The tracker lives in the execution context so every
// component receiving the context can update counters via Delta without a
// global registry.
package progress

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental counter change emitted by the engine. Fields are
// signed, so both increments and decrements are possible.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
	Pending   int
}

// Progress keeps aggregated step counters for one instance. It is safe for
// concurrent use.
type Progress struct {
	InstanceID string
	WorkflowID string
	StartedAt  time.Time

	TotalSteps     int
	CompletedSteps int
	SkippedSteps   int
	FailedSteps    int
	RunningSteps   int
	PendingSteps   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta. A registered onChange callback gets a
// copy of the updated tracker outside the critical section, so it may do
// slow work without blocking the engine.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalSteps += d.Total
	p.CompletedSteps += d.Completed
	p.SkippedSteps += d.Skipped
	p.FailedSteps += d.Failed
	p.RunningSteps += d.Running
	p.PendingSteps += d.Pending
	snapshot := *p
	cb := p.onChange
	p.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it; only one callback can be active.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker, embeds it in a derived context and
// returns both.
func WithNewTracker(ctx context.Context, instanceID, workflowID string, onChange func(Progress)) (context.Context, *Progress) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Progress{
		InstanceID: instanceID,
		WorkflowID: workflowID,
		StartedAt:  time.Now(),
		onChange:   onChange,
	}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
