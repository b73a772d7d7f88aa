package generation

import (
	"context"
	"sync"
	"time"

	"setka/internal/providers/image"
)

// Registry keeps the runs of this process so they can be polled and stopped.
type Registry struct {
	orch *Orchestrator

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry tracks runs started through orch.
func NewRegistry(orch *Orchestrator) *Registry {
	return &Registry{orch: orch, runs: make(map[string]*Run)}
}

// Start submits b and remembers the run.
func (r *Registry) Start(ctx context.Context, b Batch, sink Sink) (*Run, error) {
	run, err := r.orch.Submit(ctx, b, sink)
	if err != nil {
		return nil, err
	}
	r.track(run)
	return run, nil
}

// Regenerate reruns item itemID of run runID as a new one-item run. Fields
// left empty in req are taken from the item's original request, so
// reference images do not have to be uploaded again.
func (r *Registry) Regenerate(ctx context.Context, runID, itemID string, req image.Request, pay PaymentContext, sink Sink) (*Run, error) {
	prev, ok := r.Get(runID)
	if !ok {
		return nil, ErrRunNotFound
	}
	item, ok := prev.Item(itemID)
	if !ok {
		return nil, ErrRunNotFound
	}
	if orig, ok := prev.Request(itemID); ok {
		if len(req.References) == 0 {
			req.References = orig.References
		}
		if req.Resolution == "" {
			req.Resolution = orig.Resolution
		}
		if req.Mode == "" {
			req.Mode = orig.Mode
		}
		if req.Strength == 0 {
			req.Strength = orig.Strength
		}
	}
	run, err := r.orch.Regenerate(ctx, item, req, pay, sink)
	if err != nil {
		return nil, err
	}
	r.track(run)
	return run, nil
}

// Get returns the run with id.
func (r *Registry) Get(id string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	return run, ok
}

// Stop cancels the run with id. It reports whether the run exists.
func (r *Registry) Stop(id string) bool {
	run, ok := r.Get(id)
	if !ok {
		return false
	}
	run.Stop()
	return true
}

// Prune forgets finished runs older than age and returns how many it dropped.
func (r *Registry) Prune(age time.Duration) int {
	cutoff := r.orch.now().Add(-age)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, run := range r.runs {
		snap := run.Snapshot()
		if (snap.State == StateCompleted || snap.State == StateCancelled) && snap.FinishedAt.Before(cutoff) {
			delete(r.runs, id)
			n++
		}
	}
	return n
}

func (r *Registry) track(run *Run) {
	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()
}
