package control

import "sync"

// pendingWrite waits for a fixed number of concurrent writes. It resolves
// exactly once, after the last write reports, and keeps the failures in
// the order they arrived.
type pendingWrite struct {
	mu        sync.Mutex
	remaining int
	failures  []error
	resolved  bool
	done      chan struct{}
}

func newPendingWrite(n int) *pendingWrite {
	return &pendingWrite{remaining: n, done: make(chan struct{})}
}

// complete records the outcome of one write.
func (p *pendingWrite) complete(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return
	}
	if err != nil {
		p.failures = append(p.failures, err)
	}
	p.remaining--
	if p.remaining == 0 {
		p.resolved = true
		close(p.done)
	}
}

// wait blocks until every write has reported and returns the failures.
func (p *pendingWrite) wait() []error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
