// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"car-guess-bot/internal/game/guess"
	"car-guess-bot/internal/model"
	"car-guess-bot/internal/pkg/lock"
	"car-guess-bot/internal/repository"
)

// LedgerService implements the account ledger the guess sessions mutate
// through. Same-user operations are serialized by a per-user lock; different
// users never block each other.
type LedgerService struct {
	userRepo       *repository.UserRepository
	txRepo         *repository.TransactionRepository
	collectionRepo *repository.CollectionRepository
	userLock       *lock.UserLock
}

// NewLedgerService creates a new LedgerService instance.
func NewLedgerService(
	userRepo *repository.UserRepository,
	txRepo *repository.TransactionRepository,
	collectionRepo *repository.CollectionRepository,
	userLock *lock.UserLock,
) *LedgerService {
	return &LedgerService{
		userRepo:       userRepo,
		txRepo:         txRepo,
		collectionRepo: collectionRepo,
		userLock:       userLock,
	}
}

// EnsureUser ensures an account exists, creating one lazily with the
// starting balance. Reports whether it was newly created.
func (s *LedgerService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if created {
		desc := "starting balance"
		if _, err := s.txRepo.Create(ctx, telegramID, user.Balance, model.TxTypeInitial, &desc); err != nil {
			log.Error().Err(err).Int64("user_id", telegramID).Msg("Failed to record initial transaction")
		}
		return user, true, nil
	}

	// Keep the stored username fresh; a failure here is not fatal.
	if username != "" && user.Username != username {
		if err := s.userRepo.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to update username")
		} else {
			user.Username = username
		}
	}

	return user, false, nil
}

// GetUser retrieves a user account.
func (s *LedgerService) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, telegramID)
}

// TryDebit atomically deducts amount if the balance is sufficient and
// records the entry-fee transaction. Returns guess.ErrInsufficientFunds
// when the balance does not cover the amount.
func (s *LedgerService) TryDebit(ctx context.Context, userID int64, amount int64) error {
	return s.userLock.WithLock(userID, func() error {
		_, err := s.userRepo.TryDebit(ctx, userID, amount)
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientFunds) {
				return guess.ErrInsufficientFunds
			}
			return err
		}

		desc := "guess round entry fee"
		if _, err := s.txRepo.Create(ctx, userID, -amount, model.TxTypeGuessEntry, &desc); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to record entry transaction")
		}
		return nil
	})
}

// CreditAndAward credits the reward and adds the car to the user's
// collection if absent. Reports whether the car was already owned;
// duplicates still pay the coins but never duplicate the collection entry.
func (s *LedgerService) CreditAndAward(ctx context.Context, userID int64, amount int64, itemName string) (bool, error) {
	var alreadyOwned bool
	err := s.userLock.WithLock(userID, func() error {
		if _, err := s.userRepo.Credit(ctx, userID, amount); err != nil {
			return err
		}

		added, err := s.collectionRepo.Add(ctx, userID, itemName)
		if err != nil {
			return err
		}
		alreadyOwned = !added

		desc := fmt.Sprintf("guess reward: %s", itemName)
		if _, err := s.txRepo.Create(ctx, userID, amount, model.TxTypeGuessReward, &desc); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to record reward transaction")
		}
		return nil
	})
	return alreadyOwned, err
}

// AdminAdjust changes a user's balance by amount on behalf of an admin and
// records the transaction. amount may be negative.
func (s *LedgerService) AdminAdjust(ctx context.Context, userID int64, amount int64) (*model.User, error) {
	var user *model.User
	err := s.userLock.WithLock(userID, func() error {
		var err error
		user, err = s.userRepo.Credit(ctx, userID, amount)
		if err != nil {
			return err
		}

		txType := model.TxTypeAdminAdd
		if amount < 0 {
			txType = model.TxTypeAdminSub
		}
		if _, err := s.txRepo.Create(ctx, userID, amount, txType, nil); err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to record admin transaction")
		}
		return nil
	})
	return user, err
}
