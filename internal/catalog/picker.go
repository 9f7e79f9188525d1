package catalog

import (
	"math/rand"
	"sync"
)

// Picker draws items from a catalog with probability proportional to weight.
// It is safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewPicker creates a Picker using the given random source.
// Pass a seeded source for deterministic tests.
func NewPicker(rng *rand.Rand) *Picker {
	return &Picker{rng: rng}
}

// Pick selects one item with probability weight_i / sum(weights).
// Items with non-positive weight are never selected.
// Returns ErrInvalidCatalog if the catalog is empty or all weights are <= 0.
func (p *Picker) Pick(items []Item) (Item, error) {
	var total float64
	for _, item := range items {
		if item.Weight > 0 {
			total += item.Weight
		}
	}
	if total <= 0 {
		return Item{}, ErrInvalidCatalog
	}

	p.mu.Lock()
	target := p.rng.Float64() * total
	p.mu.Unlock()

	for _, item := range items {
		if item.Weight <= 0 {
			continue
		}
		target -= item.Weight
		if target < 0 {
			return item, nil
		}
	}

	// Float rounding can leave target at exactly zero; fall back to the
	// last selectable item.
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Weight > 0 {
			return items[i], nil
		}
	}
	return Item{}, ErrInvalidCatalog
}
