package generation

import "sync"

// CancelToken is a one-way stop flag shared by a batch and whoever may stop
// it. Once cancelled it stays cancelled; each batch gets a fresh token.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken returns an unset token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel sets the token. Further calls are no-ops.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done is closed on Cancel.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}
