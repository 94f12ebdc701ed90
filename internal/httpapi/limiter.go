package httpapi

import (
	"sync"

	"golang.org/x/time/rate"
)

// mailboxLimiters hands out one token-bucket limiter per mailbox, so a
// single noisy mailbox cannot starve the worker pool for everyone else.
// Grounded on SPEC_FULL §11's golang.org/x/time/rate row.
type mailboxLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newMailboxLimiters(rps rate.Limit, burst int) *mailboxLimiters {
	return &mailboxLimiters{limiters: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (m *mailboxLimiters) allow(mailbox string) bool {
	m.mu.Lock()
	l, ok := m.limiters[mailbox]
	if !ok {
		l = rate.NewLimiter(m.rps, m.burst)
		m.limiters[mailbox] = l
	}
	m.mu.Unlock()
	return l.Allow()
}
