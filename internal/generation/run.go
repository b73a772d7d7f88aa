package generation

import (
	"context"
	"sync"
	"time"

	"setka/internal/domain"
	"setka/internal/providers/image"
)

// Run is the live view of one submitted batch.
type Run struct {
	ID       string
	UserID   string
	Provider string

	mu         sync.RWMutex
	state      State
	results    []Result
	requests   []image.Request
	token      *CancelToken
	sink       Sink
	now        func() time.Time
	done       chan struct{}
	startedAt  time.Time
	finishedAt time.Time
}

// Snapshot is a copy of a run's state, safe to serialise.
type Snapshot struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	State      State     `json:"state"`
	Items      []Result  `json:"items"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func newRun(id, userID, provider string, token *CancelToken, sink Sink, now func() time.Time) *Run {
	if sink == nil {
		sink = nopSink{}
	}
	return &Run{
		ID:       id,
		UserID:   userID,
		Provider: provider,
		state:    StateIdle,
		token:    token,
		sink:     sink,
		now:      now,
		done:     make(chan struct{}),
	}
}

// Snapshot copies the current state.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		ID:         r.ID,
		Provider:   r.Provider,
		State:      r.state,
		Items:      append([]Result(nil), r.results...),
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
	}
}

// State returns the run state.
func (r *Run) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Item returns the result with id.
func (r *Run) Item(id string) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.results {
		if res.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// Request returns the request item id was dispatched with.
func (r *Run) Request(id string) (image.Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, res := range r.results {
		if res.ID == id && i < len(r.requests) {
			return r.requests[i], true
		}
	}
	return image.Request{}, false
}

// Stop flips the run's cancel token.
func (r *Run) Stop() { r.token.Cancel() }

// Done is closed when processing ends.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends or ctx is done.
func (r *Run) Wait(ctx context.Context) (State, error) {
	select {
	case <-r.done:
		return r.State(), nil
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

func (r *Run) publishPlaceholders(batchID string, prompts []string, ids []string, aspects []domain.AspectRatio) {
	r.mu.Lock()
	now := r.now()
	r.startedAt = now
	r.results = make([]Result, len(prompts))
	for i := range prompts {
		r.results[i] = Result{
			ID:          ids[i],
			BatchID:     batchID,
			Index:       i,
			Status:      StatusPending,
			Prompt:      prompts[i],
			AspectRatio: aspects[i],
			Provider:    r.Provider,
			UpdatedAt:   now,
		}
	}
	pending := append([]Result(nil), r.results...)
	r.mu.Unlock()

	for _, res := range pending {
		r.sink.Publish(res)
	}
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	if s == StateCompleted || s == StateCancelled {
		r.finishedAt = r.now()
	}
	r.mu.Unlock()
}

// commit moves item i out of pending. It is a no-op for terminal items.
func (r *Run) commit(i int, fn func(*Result)) bool {
	r.mu.Lock()
	if i < 0 || i >= len(r.results) || r.results[i].Terminal() {
		r.mu.Unlock()
		return false
	}
	fn(&r.results[i])
	r.results[i].UpdatedAt = r.now()
	res := r.results[i]
	r.mu.Unlock()

	r.sink.Publish(res)
	return true
}

// cancelPending marks every pending item as cancelled.
func (r *Run) cancelPending() int {
	n := 0
	for i := range r.Snapshot().Items {
		if r.commit(i, func(res *Result) {
			res.Status = StatusError
			res.Reason = ReasonCancelled
		}) {
			n++
		}
	}
	return n
}
