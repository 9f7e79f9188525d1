package service

import (
	"context"
	"fmt"
	"sort"

	"car-guess-bot/internal/catalog"
	"car-guess-bot/internal/model"
	"car-guess-bot/internal/repository"
)

// Profile is a user's balance and collection, with catalog rarity attached.
type Profile struct {
	User       *model.User
	Collection []OwnedCar
}

// OwnedCar is one collection entry annotated with its catalog weight.
// Weight is zero when the car has since been removed from the catalog.
type OwnedCar struct {
	Name   string
	Weight float64
}

// ProfileService assembles profile and leaderboard views.
type ProfileService struct {
	userRepo       *repository.UserRepository
	collectionRepo *repository.CollectionRepository
	catalogStore   catalog.Store
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(
	userRepo *repository.UserRepository,
	collectionRepo *repository.CollectionRepository,
	catalogStore catalog.Store,
) *ProfileService {
	return &ProfileService{
		userRepo:       userRepo,
		collectionRepo: collectionRepo,
		catalogStore:   catalogStore,
	}
}

// GetProfile returns a user's balance and collection, rarest cars first.
func (s *ProfileService) GetProfile(ctx context.Context, telegramID int64) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	entries, err := s.collectionRepo.GetByUserID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	// Missing catalog only degrades rarity display; the profile still renders.
	weights := make(map[string]float64)
	if items, err := s.catalogStore.Load(ctx); err == nil {
		for _, item := range items {
			weights[item.Name] = item.Weight
		}
	}

	owned := make([]OwnedCar, 0, len(entries))
	for _, entry := range entries {
		owned = append(owned, OwnedCar{Name: entry.ItemName, Weight: weights[entry.ItemName]})
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].Weight < owned[j].Weight
	})

	return &Profile{User: user, Collection: owned}, nil
}

// GetLeaderboard returns the top users by balance.
func (s *ProfileService) GetLeaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	return s.userRepo.GetTopUsers(ctx, limit)
}
