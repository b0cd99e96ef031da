package telegram

import (
	"github.com/go-telegram/bot/models"
)

// isAdmin checks whether the user is listed in bot.admins.
func (caseBot *Bot) isAdmin(user *models.User) bool {
	if user == nil {
		return false
	}
	return caseBot.cfg.IsAdmin(user.Username)
}
