package checkout

import "sync"

// Pool hands out one Orchestrator per shopper session, so the
// one-checkout-at-a-time guard applies per cart.
type Pool struct {
	mu    sync.Mutex
	byID  map[string]*Orchestrator
	build func(CartStore) *Orchestrator
}

// NewPool creates a Pool that builds orchestrators with build.
func NewPool(build func(CartStore) *Orchestrator) *Pool {
	return &Pool{
		byID:  make(map[string]*Orchestrator),
		build: build,
	}
}

// For returns the session's orchestrator, creating it over c on first use.
// An idle orchestrator bound to a different cart is replaced.
func (p *Pool) For(sessionID string, c CartStore) *Orchestrator {
	p.mu.Lock()
	defer p.mu.Unlock()

	if o, ok := p.byID[sessionID]; ok && (o.cart == c || o.Processing()) {
		return o
	}
	o := p.build(c)
	p.byID[sessionID] = o
	return o
}

// WhileIdle runs fn unless the session has a checkout in progress.
// See Orchestrator.WhileIdle.
func (p *Pool) WhileIdle(sessionID string, fn func() error) error {
	p.mu.Lock()
	o, ok := p.byID[sessionID]
	if !ok {
		// No orchestrator yet; holding the pool lock keeps For from making one.
		defer p.mu.Unlock()
		return fn()
	}
	p.mu.Unlock()
	return o.WhileIdle(fn)
}

// Processing reports whether the session has a checkout in progress.
func (p *Pool) Processing(sessionID string) bool {
	p.mu.Lock()
	o, ok := p.byID[sessionID]
	p.mu.Unlock()
	return ok && o.Processing()
}

// Forget drops the session's orchestrator unless it is mid-checkout.
func (p *Pool) Forget(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.byID[sessionID]; ok && !o.Processing() {
		delete(p.byID, sessionID)
	}
}

// Len returns the number of live orchestrators.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byID)
}
