package guess

import "errors"

// Guess session errors. All are recoverable caller outcomes, never fatal.
var (
	// ErrSessionNotPending is returned when the round has already been
	// resolved or expired. Late guesses after a win and guesses after a
	// timeout are deliberately indistinguishable.
	ErrSessionNotPending = errors.New("round is no longer accepting guesses")

	// ErrNotEntered is returned when a user guesses without paying the
	// entry fee for the current round.
	ErrNotEntered = errors.New("user has not entered this round")

	// ErrInsufficientFunds is returned when a user cannot afford the entry fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
)
