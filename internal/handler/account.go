package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"car-guess-bot/internal/service"
)

// AccountHandler handles profile and leaderboard commands.
type AccountHandler struct {
	ledger  *service.LedgerService
	profile *service.ProfileService
}

// NewAccountHandler creates a new AccountHandler instance.
func NewAccountHandler(ledger *service.LedgerService, profile *service.ProfileService) *AccountHandler {
	return &AccountHandler{ledger: ledger, profile: profile}
}

// HandleStart creates the user's account and explains the game.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	user, created, err := h.ledger.EnsureUser(ctx, sender.ID, sender.Username)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to create account")
		return c.Reply("❌ Failed to create your account, please try again.")
	}

	if created {
		return c.Reply(fmt.Sprintf(
			"🏁 Welcome to Apex Racing! You start with %d coins.\n"+
				"A car appears every so often — press the button, pay the entry fee and type your guess.\n"+
				"Use /profile to see your coins and collection.",
			user.Balance,
		))
	}
	return c.Reply(fmt.Sprintf("👋 Welcome back! Balance: %d coins.", user.Balance))
}

// HandleProfile shows the user's balance and car collection.
func (h *AccountHandler) HandleProfile(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ctx := context.Background()
	if _, _, err := h.ledger.EnsureUser(ctx, sender.ID, sender.Username); err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to ensure user")
		return c.Reply("❌ Failed to load your profile, please try again.")
	}

	profile, err := h.profile.GetProfile(ctx, sender.ID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load profile")
		return c.Reply("❌ Failed to load your profile, please try again.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 Profile: %s\n", displayName(sender))
	fmt.Fprintf(&b, "💰 Balance: %d coins\n", profile.User.Balance)

	if len(profile.Collection) == 0 {
		b.WriteString("🚗 Collection: you don't have any cars yet.")
	} else {
		fmt.Fprintf(&b, "🚗 Collection (%d):\n", len(profile.Collection))
		for _, car := range profile.Collection {
			if car.Weight > 0 {
				fmt.Fprintf(&b, "• %s (chance: %g%%)\n", car.Name, car.Weight)
			} else {
				fmt.Fprintf(&b, "• %s\n", car.Name)
			}
		}
	}

	return c.Reply(b.String())
}

// HandleTop shows the top 10 users by balance.
func (h *AccountHandler) HandleTop(c tele.Context) error {
	users, err := h.profile.GetLeaderboard(context.Background(), 10)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load leaderboard")
		return c.Reply("❌ Failed to load the leaderboard, please try again.")
	}

	if len(users) == 0 {
		return c.Reply("📊 No players yet.")
	}

	var b strings.Builder
	b.WriteString("🏆 Coin Leaderboard\n")
	for i, user := range users {
		name := user.Username
		if name == "" {
			name = fmt.Sprintf("User %d", user.TelegramID)
		}
		fmt.Fprintf(&b, "%d. %s — %d coins\n", i+1, name, user.Balance)
	}

	return c.Reply(b.String())
}

// HandleAbout explains the game rules.
func (h *AccountHandler) HandleAbout(c tele.Context) error {
	return c.Reply(
		"🤖 Apex Racing Bot\n\n" +
			"How it works:\n" +
			"• Every so often a mystery car appears.\n" +
			"• Press the button to pay the entry fee and try your luck.\n" +
			"• First correct guess wins coins and the car.\n" +
			"• Use /profile to view your progress and /top for the leaderboard.",
	)
}
