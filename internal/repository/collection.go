package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"car-guess-bot/internal/model"
)

// CollectionRepository handles the cars users have won.
type CollectionRepository struct {
	pool *pgxpool.Pool
}

// NewCollectionRepository creates a new CollectionRepository instance.
func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

// Add inserts itemName into a user's collection if absent.
// Reports whether the item was newly added; adding an owned item is a no-op.
func (r *CollectionRepository) Add(ctx context.Context, userID int64, itemName string) (bool, error) {
	const query = `
		INSERT INTO collections (user_id, item_name, won_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, item_name) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, userID, itemName)
	if err != nil {
		return false, fmt.Errorf("failed to add collection entry: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Has checks whether a user already owns an item.
func (r *CollectionRepository) Has(ctx context.Context, userID int64, itemName string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM collections WHERE user_id = $1 AND item_name = $2)`

	var owned bool
	if err := r.pool.QueryRow(ctx, query, userID, itemName).Scan(&owned); err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return owned, nil
}

// GetByUserID returns all collection entries for a user, newest first.
func (r *CollectionRepository) GetByUserID(ctx context.Context, userID int64) ([]model.CollectionEntry, error) {
	const query = `
		SELECT user_id, item_name, won_at
		FROM collections
		WHERE user_id = $1
		ORDER BY won_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	defer rows.Close()

	var entries []model.CollectionEntry
	for rows.Next() {
		var entry model.CollectionEntry
		if err := rows.Scan(&entry.UserID, &entry.ItemName, &entry.WonAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection: %w", err)
	}

	return entries, nil
}

// Count returns how many distinct cars a user owns.
func (r *CollectionRepository) Count(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM collections WHERE user_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collection: %w", err)
	}
	return count, nil
}
