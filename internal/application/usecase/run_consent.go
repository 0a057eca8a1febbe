package usecase

import (
	"context"
	"sync"

	"massdownloader/internal/application/ports"
)

// runConsent wraps the operator's gate for the length of one run: only one
// prompt is shown at a time and the first answer is kept.
type runConsent struct {
	gate ports.ConsentGate

	mu       sync.Mutex
	answered bool
	accepted bool
}

func newRunConsent(gate ports.ConsentGate) *runConsent {
	return &runConsent{gate: gate}
}

func (c *runConsent) RequestConsent(ctx context.Context, req ports.ConsentRequest) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.answered {
		return c.accepted, nil
	}
	if c.gate == nil {
		// no gate configured, nobody can accept
		c.answered = true
		return false, nil
	}

	accepted, err := c.gate.RequestConsent(ctx, req)
	if err != nil {
		return false, err
	}
	c.answered = true
	c.accepted = accepted
	return accepted, nil
}
