// Package main is the entry point for the car guess bot.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"car-guess-bot/internal/bot"
	"car-guess-bot/internal/catalog"
	"car-guess-bot/internal/config"
	"car-guess-bot/internal/game/guess"
	"car-guess-bot/internal/pkg/db"
	"car-guess-bot/internal/pkg/lock"
	"car-guess-bot/internal/repository"
	"car-guess-bot/internal/scheduler"
	"car-guess-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool, cfg.Game.StartingBalance)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	collectionRepo := repository.NewCollectionRepository(dbPool.Pool)
	settingsRepo := repository.NewSettingsRepository(dbPool.Pool)

	// Initialize user lock and services
	userLock := lock.NewUserLock()
	ledgerService := service.NewLedgerService(userRepo, txRepo, collectionRepo, userLock)

	// Catalog store and weighted picker
	catalogStore := catalog.NewFileStore(cfg.Catalog.Path)
	picker := catalog.NewPicker(rand.New(rand.NewSource(time.Now().UnixNano())))

	profileService := service.NewProfileService(userRepo, collectionRepo, catalogStore)

	// Guess session registry: at most one live round
	registry := guess.NewRegistry(ledgerService, cfg.Game.EntryCost, cfg.Game.Reward)

	// Initialize bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:         cfg,
		LedgerService:  ledgerService,
		ProfileService: profileService,
		Registry:       registry,
		SettingsRepo:   settingsRepo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	// Round scheduler drives the game loop
	roundScheduler := scheduler.New(
		catalogStore,
		picker,
		registry,
		telegramBot.Announcer(),
		cfg.Game.MinWait,
		cfg.Game.MaxWait,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	go roundScheduler.Run(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown: stop scheduling, retire the open round, stop polling
	cancel()
	registry.Retire()
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			balance BIGINT NOT NULL DEFAULT 1000,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_balance ON users(balance DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: transactions table created")

	// Migration 3: Create collections table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS collections (
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			item_name VARCHAR(255) NOT NULL,
			won_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, item_name)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: collections table created")

	// Migration 4: Create settings table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS settings (
			key VARCHAR(100) PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: settings table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
