// Package model defines the data models for the car guess bot.
package model

import "time"

// User represents a Telegram user account in the game.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	Balance    int64     `db:"balance"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// CollectionEntry represents a car a user has won.
type CollectionEntry struct {
	UserID   int64     `db:"user_id"`
	ItemName string    `db:"item_name"`
	WonAt    time.Time `db:"won_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeInitial     = "initial"      // Initial balance on account creation
	TxTypeGuessEntry  = "guess_entry"  // Entry fee for a guessing round
	TxTypeGuessReward = "guess_reward" // Reward for a correct guess
	TxTypeAdminAdd    = "admin_add"    // Admin added balance
	TxTypeAdminSub    = "admin_sub"    // Admin subtracted balance
)
