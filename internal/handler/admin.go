package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"car-guess-bot/internal/repository"
	"car-guess-bot/internal/service"
)

// AdminHandler handles admin-only commands.
type AdminHandler struct {
	ledger       *service.LedgerService
	settingsRepo *repository.SettingsRepository
}

// NewAdminHandler creates a new AdminHandler instance.
func NewAdminHandler(ledger *service.LedgerService, settingsRepo *repository.SettingsRepository) *AdminHandler {
	return &AdminHandler{ledger: ledger, settingsRepo: settingsRepo}
}

// HandleSetChannel makes the current chat the round announcement channel.
// Format: /set_channel
func (h *AdminHandler) HandleSetChannel(c tele.Context) error {
	chat := c.Chat()
	sender := c.Sender()
	if chat == nil || sender == nil {
		return nil
	}

	ctx := context.Background()
	if err := h.settingsRepo.SetInt64(ctx, repository.SettingGuessChannel, chat.ID); err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to set guess channel")
		return c.Reply("❌ Failed to save the channel, please try again.")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("chat_id", chat.ID).
		Msg("Guess channel configured")

	return c.Reply("✅ Car guesses will be posted in this chat.")
}

// HandleAdminAdd adds coins to a user's balance.
// Format: /admin_add <user_id> <amount>
func (h *AdminHandler) HandleAdminAdd(c tele.Context) error {
	return h.adjust(c, 1)
}

// HandleAdminSub subtracts coins from a user's balance.
// Format: /admin_sub <user_id> <amount>
func (h *AdminHandler) HandleAdminSub(c tele.Context) error {
	return h.adjust(c, -1)
}

func (h *AdminHandler) adjust(c tele.Context, sign int64) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, err := parseAdminArgs(c)
	if err != nil {
		return c.Reply(err.Error())
	}
	if amount <= 0 {
		return c.Reply("❌ Amount must be greater than 0.")
	}

	user, err := h.ledger.AdminAdjust(context.Background(), targetID, sign*amount)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Reply("❌ That user hasn't played yet.")
		}
		log.Error().Err(err).Int64("target_id", targetID).Msg("Admin adjustment failed")
		return c.Reply("❌ Operation failed, please try again.")
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("target_id", targetID).
		Int64("amount", sign*amount).
		Msg("Admin operation executed")

	name := user.Username
	if name == "" {
		name = strconv.FormatInt(targetID, 10)
	}
	return c.Reply(fmt.Sprintf(
		"✅ Done. %s now has %d coins.",
		name, user.Balance,
	))
}

// parseAdminArgs parses "<user_id> <amount>" command arguments.
func parseAdminArgs(c tele.Context) (int64, int64, error) {
	args := c.Args()
	if len(args) != 2 {
		return 0, 0, errors.New("❌ Usage: <command> <user_id> <amount>")
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("❌ Invalid user id: %s", args[0])
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("❌ Invalid amount: %s", args[1])
	}

	return targetID, amount, nil
}
