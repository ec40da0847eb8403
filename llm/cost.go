package llm

import (
	"fmt"
	"strings"
	"sync"
)

// Ledger accumulates the monetary cost (USD) of completed calls on one
// client instance. Appends are atomic with respect to each other, so
// concurrent in-flight calls on the same client cannot lose updates.
type Ledger struct {
	mu          sync.Mutex
	accumulated float64
	costs       []float64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends a non-negative cost entry and folds it into the running
// total. A negative value returns ErrNegativeCost and leaves the ledger
// unchanged.
func (l *Ledger) Add(cost float64) error {
	if cost < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeCost, cost)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accumulated += cost
	l.costs = append(l.costs, cost)
	return nil
}

// Accumulated returns the running total.
func (l *Ledger) Accumulated() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accumulated
}

// Costs returns a copy of the ordered per-call cost history.
func (l *Ledger) Costs() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.costs))
	copy(out, l.costs)
	return out
}

// String renders the ledger for logs and the cost CLI command.
func (l *Ledger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "accumulated_cost: %.6f\n", l.accumulated)
	fmt.Fprintf(&b, "costs: %v\n", l.costs)
	return b.String()
}
