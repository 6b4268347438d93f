package organizer

import (
	"sync"

	"github.com/starford/raido/internal/applier"
)

// ring keeps the latest outcomes in memory only.
type ring struct {
	mu    sync.Mutex
	buf   []applier.Outcome
	next  int
	count int
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 1
	}
	return &ring{buf: make([]applier.Outcome, size)}
}

func (r *ring) add(o applier.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = o
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// last returns up to n outcomes, newest first. n <= 0 returns all.
func (r *ring) last(n int) []applier.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > r.count {
		n = r.count
	}
	out := make([]applier.Outcome, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out
}
