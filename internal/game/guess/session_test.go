package guess

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-guess-bot/internal/catalog"
)

const (
	testEntryCost = 100
	testReward    = 500
)

// fakeLedger is an in-memory Ledger for session tests.
type fakeLedger struct {
	mu          sync.Mutex
	balances    map[int64]int64
	collections map[int64]map[string]bool
	credits     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:    make(map[int64]int64),
		collections: make(map[int64]map[string]bool),
	}
}

func (f *fakeLedger) setBalance(userID, balance int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] = balance
}

func (f *fakeLedger) balance(userID int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID]
}

func (f *fakeLedger) owns(userID int64, itemName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections[userID][itemName]
}

func (f *fakeLedger) creditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credits
}

func (f *fakeLedger) TryDebit(ctx context.Context, userID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return ErrInsufficientFunds
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeLedger) CreditAndAward(ctx context.Context, userID int64, amount int64, itemName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credits++
	f.balances[userID] += amount
	if f.collections[userID] == nil {
		f.collections[userID] = make(map[string]bool)
	}
	alreadyOwned := f.collections[userID][itemName]
	f.collections[userID][itemName] = true
	return alreadyOwned, nil
}

func testItem() catalog.Item {
	return catalog.Item{Name: "Red Car", Image: "red_car.jpg", Weight: 1}
}

func TestSessionWinScenario(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)
	require.Equal(t, StatusPending, session.Status())

	// U1 enters: balance 1000 -> 900
	result, err := session.Enter(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.AlreadyEntered)
	assert.Equal(t, int64(900), ledger.balance(1))

	// Normalized guess matches "Red Car"
	guessResult, err := session.SubmitGuess(ctx, 1, "red car")
	require.NoError(t, err)
	assert.True(t, guessResult.Won)
	assert.False(t, guessResult.AlreadyOwned)
	assert.Equal(t, "Red Car", guessResult.Answer)

	assert.Equal(t, StatusResolved, session.Status())
	winner, ok := session.Winner()
	require.True(t, ok)
	assert.Equal(t, int64(1), winner)

	// 900 + 500 reward
	assert.Equal(t, int64(1400), ledger.balance(1))
	assert.True(t, ledger.owns(1, "Red Car"))
}

func TestSessionGuessAfterResolved(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)
	ledger.setBalance(2, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)

	_, err := session.Enter(ctx, 1)
	require.NoError(t, err)
	_, err = session.Enter(ctx, 2)
	require.NoError(t, err)

	_, err = session.SubmitGuess(ctx, 1, "Red Car!")
	require.NoError(t, err)

	// U2's correct guess after resolution is just "too late"
	_, err = session.SubmitGuess(ctx, 2, "Red Car")
	assert.ErrorIs(t, err, ErrSessionNotPending)

	// U2 keeps the entry fee loss, nothing more
	assert.Equal(t, int64(900), ledger.balance(2))
	assert.False(t, ledger.owns(2, "Red Car"))
}

func TestSessionInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 50)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)

	_, err := session.Enter(ctx, 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(50), ledger.balance(1))
	assert.Equal(t, 0, session.EntrantCount())

	// Not an entrant, so a guess is rejected
	_, err = session.SubmitGuess(ctx, 1, "red car")
	assert.ErrorIs(t, err, ErrNotEntered)
}

func TestSessionDoubleEntryChargesOnce(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)

	first, err := session.Enter(ctx, 1)
	require.NoError(t, err)
	assert.False(t, first.AlreadyEntered)

	second, err := session.Enter(ctx, 1)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEntered)

	assert.Equal(t, int64(900), ledger.balance(1))
	assert.Equal(t, 1, session.EntrantCount())
}

func TestSessionNotEntered(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)

	_, err := session.SubmitGuess(ctx, 1, "red car")
	assert.ErrorIs(t, err, ErrNotEntered)
	assert.Equal(t, StatusPending, session.Status())
}

func TestSessionIncorrectGuessKeepsRoundOpen(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)

	_, err := session.Enter(ctx, 1)
	require.NoError(t, err)

	result, err := session.SubmitGuess(ctx, 1, "blue car")
	require.NoError(t, err)
	assert.False(t, result.Won)
	assert.Equal(t, "Red Car", result.Answer)
	assert.Equal(t, StatusPending, session.Status())
	assert.Equal(t, int64(900), ledger.balance(1))
}

func TestSessionExpire(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)
	_, err := session.Enter(ctx, 1)
	require.NoError(t, err)

	assert.True(t, session.Expire())
	assert.Equal(t, StatusExpired, session.Status())

	// Expiry is idempotent and has no ledger effects
	assert.False(t, session.Expire())
	assert.Equal(t, int64(900), ledger.balance(1))

	// All operations on an expired round collapse to "too late"
	_, err = session.Enter(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotPending)
	_, err = session.SubmitGuess(ctx, 1, "red car")
	assert.ErrorIs(t, err, ErrSessionNotPending)
}

func TestSessionNoPostTerminalMutation(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)
	ledger.setBalance(2, 1000)

	session := NewSession(testItem(), ledger, testEntryCost, testReward)
	_, err := session.Enter(ctx, 1)
	require.NoError(t, err)
	_, err = session.Enter(ctx, 2)
	require.NoError(t, err)

	_, err = session.SubmitGuess(ctx, 1, "red car")
	require.NoError(t, err)

	balance1 := ledger.balance(1)
	balance2 := ledger.balance(2)
	credits := ledger.creditCount()

	// Hammer the terminal session; nothing may change
	for i := 0; i < 10; i++ {
		_, _ = session.Enter(ctx, 2)
		_, _ = session.SubmitGuess(ctx, 2, "red car")
		session.Expire()
	}

	assert.Equal(t, StatusResolved, session.Status())
	winner, _ := session.Winner()
	assert.Equal(t, int64(1), winner)
	assert.Equal(t, balance1, ledger.balance(1))
	assert.Equal(t, balance2, ledger.balance(2))
	assert.Equal(t, credits, ledger.creditCount())
}

func TestSessionEmptyNormalizedGuessNeverWins(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance(1, 1000)

	item := catalog.Item{Name: "???", Image: "mystery.jpg", Weight: 1}
	session := NewSession(item, ledger, testEntryCost, testReward)

	_, err := session.Enter(ctx, 1)
	require.NoError(t, err)

	// Both guess and answer normalize to ""; that must not be a win
	result, err := session.SubmitGuess(ctx, 1, "!!!")
	require.NoError(t, err)
	assert.False(t, result.Won)
	assert.Equal(t, StatusPending, session.Status())
}

func TestSessionConcurrentCorrectGuesses(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()

	const numUsers = 50
	session := NewSession(testItem(), ledger, testEntryCost, testReward)
	for i := int64(1); i <= numUsers; i++ {
		ledger.setBalance(i, 1000)
		_, err := session.Enter(ctx, i)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var winsMu sync.Mutex
	var winners []int64

	for i := int64(1); i <= numUsers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			result, err := session.SubmitGuess(ctx, userID, "RED car")
			if err == nil && result.Won {
				winsMu.Lock()
				winners = append(winners, userID)
				winsMu.Unlock()
			} else if err != nil {
				assert.ErrorIs(t, err, ErrSessionNotPending)
			}
		}(i)
	}
	wg.Wait()

	// Exactly one winner, exactly one payout
	require.Len(t, winners, 1)
	assert.Equal(t, 1, ledger.creditCount())

	winner, ok := session.Winner()
	require.True(t, ok)
	assert.Equal(t, winners[0], winner)

	// Conservation: winner nets +400, everyone else nets -100
	for i := int64(1); i <= numUsers; i++ {
		if i == winner {
			assert.Equal(t, int64(1000-testEntryCost+testReward), ledger.balance(i))
		} else {
			assert.Equal(t, int64(1000-testEntryCost), ledger.balance(i))
		}
	}
}
