// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"car-guess-bot/internal/config"
	"car-guess-bot/internal/game/guess"
	"car-guess-bot/internal/handler"
	"car-guess-bot/internal/repository"
	"car-guess-bot/internal/scheduler"
	"car-guess-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	adminHandler   *handler.AdminHandler
	guessHandler   *handler.GuessHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config         *config.Config
	LedgerService  *service.LedgerService
	ProfileService *service.ProfileService
	Registry       *guess.Registry
	SettingsRepo   *repository.SettingsRepository
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.accountHandler = handler.NewAccountHandler(deps.LedgerService, deps.ProfileService)
	b.adminHandler = handler.NewAdminHandler(deps.LedgerService, deps.SettingsRepo)
	b.guessHandler = handler.NewGuessHandler(
		teleBot,
		deps.Registry,
		deps.LedgerService,
		deps.SettingsRepo,
		deps.Config.Catalog.ImageDir,
		deps.Config.Game.EntryCost,
		deps.Config.Game.GuessTimeout,
	)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command, callback and text handlers.
func (b *Bot) registerHandlers() {
	// Account handlers
	b.bot.Handle("/start", b.accountHandler.HandleStart)
	b.bot.Handle("/profile", b.accountHandler.HandleProfile)
	b.bot.Handle("/top", b.accountHandler.HandleTop)
	b.bot.Handle("/about", b.accountHandler.HandleAbout)

	// Admin handlers (with admin middleware)
	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/set_channel", b.adminHandler.HandleSetChannel)
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_sub", b.adminHandler.HandleAdminSub)

	// Guessing round interaction
	b.bot.Handle(tele.OnCallback, b.handleCallback)
	b.bot.Handle(tele.OnText, b.guessHandler.HandleText)
}

// handleCallback routes inline button callbacks.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, handler.CallbackGuessEnter) {
		return b.guessHandler.HandleEnterCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unhandled callback")
	return nil
}

// Announcer returns the round announcer for the scheduler.
func (b *Bot) Announcer() scheduler.Announcer {
	return b.guessHandler
}

// Start starts the bot polling. Blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
