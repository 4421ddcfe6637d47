package pipeline

import "sync"

// Budget is the session's consumable token counter, used as an
// admission-control gate in front of every analysis call. Check and
// decrement are a single atomic operation so concurrent regenerations
// cannot overspend.
type Budget struct {
	balance int
	mu      sync.Mutex
}

// NewBudget creates a budget with the given starting balance
func NewBudget(initial int) *Budget {
	return &Budget{balance: initial}
}

// Balance returns the current token balance
func (b *Budget) Balance() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance
}

// Debit atomically checks and spends cost tokens. Returns false, and
// spends nothing, when the balance is insufficient.
func (b *Budget) Debit(cost int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balance < cost {
		return false
	}
	b.balance -= cost
	return true
}

// Refund returns tokens debited for a call that subsequently failed,
// keeping the balance equal to the count of successful calls times the
// per-item cost.
func (b *Budget) Refund(cost int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance += cost
}
