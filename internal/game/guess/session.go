// Package guess implements the guessing round state machine.
// A Session owns exactly one round: who paid to enter, whether the round is
// still open, and who won. All state transitions happen under a single
// session mutex, so the Pending -> Resolved flip is an atomic test-and-set
// and the ledger is never touched on behalf of a finished round.
package guess

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"car-guess-bot/internal/catalog"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	// StatusPending means the round is open for entries and guesses.
	StatusPending Status = iota
	// StatusResolved means a participant guessed correctly. Terminal.
	StatusResolved
	// StatusExpired means the round ended without a winner. Terminal.
	StatusExpired
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Ledger is the narrow account store contract the session mutates through.
// Implementations must be safe for concurrent use across user IDs.
type Ledger interface {
	// TryDebit atomically deducts amount if the balance is sufficient.
	// Returns ErrInsufficientFunds when it is not; no partial debit.
	TryDebit(ctx context.Context, userID int64, amount int64) error

	// CreditAndAward credits amount and inserts itemName into the user's
	// collection if absent. Reports whether the item was already owned;
	// already-owned items still pay the coins.
	CreditAndAward(ctx context.Context, userID int64, amount int64, itemName string) (alreadyOwned bool, err error)
}

// EnterResult reports the outcome of an accepted entry.
type EnterResult struct {
	// AlreadyEntered is true when the user had already paid for this round;
	// re-pressing the button never charges twice.
	AlreadyEntered bool
}

// GuessResult reports the outcome of an accepted guess.
type GuessResult struct {
	Won          bool
	Answer       string // the correct car name, shown on both outcomes
	AlreadyOwned bool   // winner already had the car in their collection
}

// Session is one guessing round. Create with NewSession; it starts Pending.
type Session struct {
	id        uuid.UUID
	item      catalog.Item
	entryCost int64
	reward    int64
	ledger    Ledger
	createdAt time.Time

	mu       sync.Mutex
	status   Status
	entrants map[int64]struct{}
	winner   int64
}

// NewSession creates a Pending round for the given car.
func NewSession(item catalog.Item, ledger Ledger, entryCost, reward int64) *Session {
	return &Session{
		id:        uuid.New(),
		item:      item,
		entryCost: entryCost,
		reward:    reward,
		ledger:    ledger,
		createdAt: time.Now(),
		status:    StatusPending,
		entrants:  make(map[int64]struct{}),
	}
}

// ID returns the round's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Item returns the car being guessed.
func (s *Session) Item() catalog.Item { return s.item }

// CreatedAt returns when the round started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Winner returns the winning user ID, if the round has been resolved.
func (s *Session) Winner() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusResolved {
		return 0, false
	}
	return s.winner, true
}

// EntrantCount returns how many users have paid into this round.
func (s *Session) EntrantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entrants)
}

// Enter charges the entry fee and makes the user eligible to guess.
// Returns ErrSessionNotPending if the round is over and ErrInsufficientFunds
// if the user cannot afford the fee. Re-entry while the round is still open
// is acknowledged without a second charge.
//
// The debit happens under the session mutex: a terminal transition and an
// entry fee can never interleave, so a finished round cannot take money.
func (s *Session) Enter(ctx context.Context, userID int64) (EnterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return EnterResult{}, ErrSessionNotPending
	}

	if _, ok := s.entrants[userID]; ok {
		return EnterResult{AlreadyEntered: true}, nil
	}

	if err := s.ledger.TryDebit(ctx, userID, s.entryCost); err != nil {
		return EnterResult{}, err
	}

	s.entrants[userID] = struct{}{}
	return EnterResult{}, nil
}

// SubmitGuess checks the user's answer against the round's car.
// Returns ErrSessionNotPending if the round is over (whether someone else
// won or it expired) and ErrNotEntered if the user never paid the fee.
// The first correct guess resolves the round and pays the reward; under
// concurrent correct guesses exactly one caller wins and the rest observe
// ErrSessionNotPending.
func (s *Session) SubmitGuess(ctx context.Context, userID int64, text string) (GuessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return GuessResult{}, ErrSessionNotPending
	}

	if _, ok := s.entrants[userID]; !ok {
		return GuessResult{}, ErrNotEntered
	}

	guess := Normalize(text)
	answer := Normalize(s.item.Name)
	if guess == "" || guess != answer {
		return GuessResult{Won: false, Answer: s.item.Name}, nil
	}

	// Single serialization point: flip the round before any payout.
	s.status = StatusResolved
	s.winner = userID

	alreadyOwned, err := s.ledger.CreditAndAward(ctx, userID, s.reward, s.item.Name)
	if err != nil {
		// The round stays resolved; the winner's guess was correct.
		log.Error().
			Err(err).
			Int64("user_id", userID).
			Str("session_id", s.id.String()).
			Str("car", s.item.Name).
			Msg("Failed to pay out guess reward")
		return GuessResult{Won: true, Answer: s.item.Name}, nil
	}

	return GuessResult{Won: true, Answer: s.item.Name, AlreadyOwned: alreadyOwned}, nil
}

// Expire moves a Pending round to Expired. It reports whether this call
// performed the transition; expiring a finished round is a no-op. No ledger
// effects either way.
func (s *Session) Expire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return false
	}
	s.status = StatusExpired
	return true
}

// IsTerminal reports whether err marks the round as over for the caller.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSessionNotPending)
}
