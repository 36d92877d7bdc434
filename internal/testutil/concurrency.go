package testutil

import "sync"

// ConcurrencyProbe tracks how many tasks are inside Process at once.
type ConcurrencyProbe struct {
	mu      sync.Mutex
	current int
	max     int
	total   int
}

// Enter marks the start of a Process call.
func (p *ConcurrencyProbe) Enter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	p.total++
	if p.current > p.max {
		p.max = p.current
	}
}

// Leave marks the end of a Process call.
func (p *ConcurrencyProbe) Leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current--
}

// Max returns the highest number of overlapping calls observed.
func (p *ConcurrencyProbe) Max() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// Total returns the number of calls observed.
func (p *ConcurrencyProbe) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
