package generation

import (
	"sync"
	"time"

	"setka/internal/domain"
	"setka/internal/providers/image"
)

// Status is the lifecycle of one item. It leaves pending exactly once.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ReasonCancelled is the error reason of items stopped by the user.
const ReasonCancelled = "cancelled"

// Result is one item of a batch.
type Result struct {
	ID          string             `json:"id"`
	BatchID     string             `json:"batch_id"`
	Index       int                `json:"index"`
	Status      Status             `json:"status"`
	Image       *image.Asset       `json:"image,omitempty"`
	Prompt      string             `json:"prompt"`
	AspectRatio domain.AspectRatio `json:"aspect_ratio"`
	Provider    string             `json:"provider"`
	Reason      string             `json:"reason,omitempty"`
	Attempts    int                `json:"attempts,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Terminal reports whether the item is no longer pending.
func (r Result) Terminal() bool { return r.Status != StatusPending }

// State is the lifecycle of a run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Sink receives every placeholder and every transition, in dispatch order.
// Publish is called from one goroutine per run.
type Sink interface {
	Publish(Result)
}

// FuncSink adapts a function to Sink.
type FuncSink func(Result)

func (f FuncSink) Publish(r Result) { f(r) }

// MultiSink fans out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Publish(r Result) {
	for _, s := range m {
		if s != nil {
			s.Publish(r)
		}
	}
}

// ChannelSink forwards results to a buffered channel. Results are dropped
// when the buffer is full so a slow reader never stalls a batch.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan Result
	closed bool
}

// NewChannelSink allocates a sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Result, buffer)}
}

// C is the receive side.
func (s *ChannelSink) C() <-chan Result { return s.ch }

func (s *ChannelSink) Publish(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

// Close closes the channel. Later publishes are ignored.
func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

type nopSink struct{}

func (nopSink) Publish(Result) {}
