// Package handler provides Telegram handlers for bot commands and callbacks.
package handler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"car-guess-bot/internal/catalog"
	"car-guess-bot/internal/game/guess"
	"car-guess-bot/internal/repository"
	"car-guess-bot/internal/service"
)

// CallbackGuessEnter is the unique id of the round entry button.
const CallbackGuessEnter = "guess_enter"

// pendingGuess tracks an entrant who owes a typed guess.
type pendingGuess struct {
	session  *guess.Session
	chatID   int64
	deadline time.Time
}

// GuessHandler presents guessing rounds: it announces them, takes entry
// button presses and matches typed replies against the open round. All
// timing (the reply window) lives here; the session only sees accepted
// guesses.
type GuessHandler struct {
	bot          *tele.Bot
	registry     *guess.Registry
	ledger       *service.LedgerService
	settingsRepo *repository.SettingsRepository
	imageDir     string
	entryCost    int64
	guessTimeout time.Duration

	mu       sync.Mutex
	awaiting map[int64]pendingGuess // userID -> open reply window
	announce *tele.Message          // current round's announcement message
}

// NewGuessHandler creates a new GuessHandler instance.
func NewGuessHandler(
	bot *tele.Bot,
	registry *guess.Registry,
	ledger *service.LedgerService,
	settingsRepo *repository.SettingsRepository,
	imageDir string,
	entryCost int64,
	guessTimeout time.Duration,
) *GuessHandler {
	return &GuessHandler{
		bot:          bot,
		registry:     registry,
		ledger:       ledger,
		settingsRepo: settingsRepo,
		imageDir:     imageDir,
		entryCost:    entryCost,
		guessTimeout: guessTimeout,
		awaiting:     make(map[int64]pendingGuess),
	}
}

// AnnounceRound posts the round's photo and entry button to the configured
// chat. Implements scheduler.Announcer.
func (h *GuessHandler) AnnounceRound(ctx context.Context, session *guess.Session, item catalog.Item) error {
	chatID, err := h.settingsRepo.GetInt64(ctx, repository.SettingGuessChannel)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return fmt.Errorf("guess channel not configured, use /set_channel")
		}
		return err
	}

	imagePath := filepath.Join(h.imageDir, item.Image)
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("car image missing: %s: %w", imagePath, err)
	}

	photo := &tele.Photo{
		File: tele.FromDisk(imagePath),
		Caption: fmt.Sprintf(
			"🚘 Guess the Car!\nPress the button below to guess. Entry costs %d coins.",
			h.entryCost,
		),
	}

	markup := &tele.ReplyMarkup{}
	btn := markup.Data(fmt.Sprintf("Guess (%d coins)", h.entryCost), CallbackGuessEnter, session.ID().String())
	markup.Inline(markup.Row(btn))

	msg, err := h.bot.Send(tele.ChatID(chatID), photo, markup)
	if err != nil {
		return fmt.Errorf("failed to announce round: %w", err)
	}

	h.mu.Lock()
	h.announce = msg
	// Reply windows from the previous round are void now.
	h.awaiting = make(map[int64]pendingGuess)
	h.mu.Unlock()

	return nil
}

// HandleEnterCallback processes the entry button press.
func (h *GuessHandler) HandleEnterCallback(c tele.Context) error {
	callback := c.Callback()
	sender := c.Sender()
	if callback == nil || sender == nil {
		return nil
	}

	ctx := context.Background()

	if _, _, err := h.ledger.EnsureUser(ctx, sender.ID, sender.Username); err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure user on entry")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong, try again."})
	}

	session, ok := h.registry.Current()
	if !ok || !h.matchesCallback(session, callback.Data) {
		// Button from a superseded round, or no round at all.
		return c.Respond(&tele.CallbackResponse{Text: "❌ This round is no longer active."})
	}

	result, err := session.Enter(ctx, sender.ID)
	switch {
	case errors.Is(err, guess.ErrSessionNotPending):
		return c.Respond(&tele.CallbackResponse{Text: "❌ This car has already been guessed!"})
	case errors.Is(err, guess.ErrInsufficientFunds):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Not enough coins."})
	case err != nil:
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Entry failed")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Something went wrong, try again."})
	}

	chat := c.Chat()
	var chatID int64
	if chat != nil {
		chatID = chat.ID
	}

	h.mu.Lock()
	h.awaiting[sender.ID] = pendingGuess{
		session:  session,
		chatID:   chatID,
		deadline: time.Now().Add(h.guessTimeout),
	}
	h.mu.Unlock()

	text := fmt.Sprintf("Type your guess in chat within %d seconds.", int(h.guessTimeout.Seconds()))
	if result.AlreadyEntered {
		text = "You already entered this round. " + text
	}
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// HandleText matches typed chat messages against open reply windows.
// Messages from users without a window are ignored.
func (h *GuessHandler) HandleText(c tele.Context) error {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	h.mu.Lock()
	pending, ok := h.awaiting[sender.ID]
	if ok && pending.chatID == chat.ID {
		delete(h.awaiting, sender.ID)
	}
	h.mu.Unlock()

	if !ok || pending.chatID != chat.ID {
		return nil
	}

	if time.Now().After(pending.deadline) {
		// The window closed before the reply arrived; the session never
		// sees this guess.
		return c.Reply("⏰ Time's up!")
	}

	result, err := pending.session.SubmitGuess(context.Background(), sender.ID, c.Text())
	switch {
	case errors.Is(err, guess.ErrSessionNotPending):
		return c.Reply("❌ This round is already over.")
	case errors.Is(err, guess.ErrNotEntered):
		return c.Reply("❌ Press the guess button first.")
	case err != nil:
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Guess failed")
		return c.Reply("❌ Something went wrong, try again.")
	}

	if !result.Won {
		// The round is still open; replies are public here, so the answer
		// stays hidden.
		return c.Reply("❌ Incorrect. Press the button to try again.")
	}

	h.disableEntryButton()

	if result.AlreadyOwned {
		return c.Reply(fmt.Sprintf(
			"🎉 %s guessed the car! They already own %s but still take the coins.",
			displayName(sender), result.Answer,
		))
	}
	return c.Reply(fmt.Sprintf(
		"🎉 %s guessed the car and takes %s into their collection!",
		displayName(sender), result.Answer,
	))
}

// matchesCallback reports whether the pressed button belongs to the live
// round. Callback data carries the session ID the button was created with.
func (h *GuessHandler) matchesCallback(session *guess.Session, data string) bool {
	data = strings.TrimPrefix(data, "\f")
	parts := strings.SplitN(data, "|", 2)
	if len(parts) != 2 {
		return false
	}
	return parts[1] == session.ID().String()
}

// disableEntryButton removes the button from the round announcement.
func (h *GuessHandler) disableEntryButton() {
	h.mu.Lock()
	msg := h.announce
	h.announce = nil
	h.mu.Unlock()

	if msg == nil {
		return
	}
	if _, err := h.bot.EditReplyMarkup(msg, nil); err != nil {
		log.Warn().Err(err).Msg("Failed to disable entry button")
	}
}

// displayName prefers the username, falling back to the first name.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}
