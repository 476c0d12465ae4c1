package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func sendMessage(bot BotAPI, logger zerolog.Logger, msg tgbotapi.Chattable) {
	if _, err := bot.Send(msg); err != nil {
		logger.Warn().Err(err).Msg("failed to send message")
	}
}

// displayName prefers @username, then first and last name.
func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.LastName
}
