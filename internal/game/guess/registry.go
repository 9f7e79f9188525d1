package guess

import (
	"sync"

	"github.com/rs/zerolog/log"

	"car-guess-bot/internal/catalog"
)

// Registry holds at most one live Session. Replacement is atomic: readers
// always see either the old round or the new one, never a half-swapped slot,
// and a superseded Pending round is expired before the new one is installed
// so stale entrants fail fast.
type Registry struct {
	entryCost int64
	reward    int64
	ledger    Ledger

	mu      sync.Mutex
	current *Session
}

// NewRegistry creates an empty registry. Sessions it starts use the given
// ledger and game parameters.
func NewRegistry(ledger Ledger, entryCost, reward int64) *Registry {
	return &Registry{
		entryCost: entryCost,
		reward:    reward,
		ledger:    ledger,
	}
}

// StartNew expires any still-pending round and installs a fresh Session for
// the given car as the sole live round.
func (r *Registry) StartNew(item catalog.Item) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.Expire() {
		log.Info().
			Str("session_id", r.current.ID().String()).
			Str("car", r.current.Item().Name).
			Int("entrants", r.current.EntrantCount()).
			Msg("Expired unresolved round, starting a new one")
	}

	r.current = NewSession(item, r.ledger, r.entryCost, r.reward)
	return r.current
}

// Current returns the live session, if any. The reference stays valid after
// replacement; callers racing a swap get rejected by the session itself.
func (r *Registry) Current() (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != nil
}

// Retire expires the current round without starting a new one.
// Used on shutdown so late guesses are rejected cleanly.
func (r *Registry) Retire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Expire()
	}
}
