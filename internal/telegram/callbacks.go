package telegram

import (
	"context"
	"log/slog"
	"strings"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Callback data format:
//
//	timers:<caseID>
//	pending:<caseID>
//	decline:<caseID>
//	resched:<caseID>:<stage>
//	complete:<caseID>:<stage>
const (
	cbTimers     = "timers"
	cbPending    = "pending"
	cbDecline    = "decline"
	cbReschedule = "resched"
	cbComplete   = "complete"
)

// caseKeyboard offers the follow-up actions for a case.
func caseKeyboard(c *domain.Case) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		inlineRow(
			inlineBtn("⏱ Timers", cbTimers+":"+c.ID),
			inlineBtn("📝 Pending", cbPending+":"+c.ID),
		),
	}
	if c.Status == domain.CaseStatusQuoteDeclined || c.Status == domain.CaseStatusCompleted {
		return inlineKeyboard(rows...)
	}
	if completable(c) {
		s := c.CurrentStage.String()
		rows = append(rows, inlineRow(inlineBtn("✅ Complete "+s, cbComplete+":"+c.ID+":"+s)))
	}
	if c.CurrentStage == domain.StageQuote {
		rows = append(rows, inlineRow(inlineBtn("🚫 Decline offer", cbDecline+":"+c.ID)))
	}
	var resched []models.InlineKeyboardButton
	for _, s := range []domain.Stage{domain.StageScheduleInspection, domain.StageSchedulePickup} {
		if s < c.CurrentStage {
			resched = append(resched, inlineBtn("🔁 "+s.String(), cbReschedule+":"+c.ID+":"+s.String()))
		}
	}
	if len(resched) > 0 {
		rows = append(rows, resched)
	}
	return inlineKeyboard(rows...)
}

// completable reports whether the current stage can be completed without
// typed details.
func completable(c *domain.Case) bool {
	switch c.CurrentStage {
	case domain.StageIntake, domain.StageInspection, domain.StageCompletion:
		return true
	case domain.StageQuote:
		return c.Quote != nil && c.Quote.Amount > 0
	default:
		return false
	}
}

// handleCallbackQuery routes inline keyboard presses.
func (caseBot *Bot) handleCallbackQuery(ctx context.Context, callback *models.CallbackQuery) {
	op := "telegram.handleCallbackQuery"
	log := caseBot.log.With(slog.String("op", op), slog.String("data", callback.Data))

	if _, err := caseBot.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		log.Warn("answer callback failed", sl.Err(err))
	}

	chatID, threadID := callbackChat(callback)
	parts := strings.Split(callback.Data, ":")
	if len(parts) < 2 || parts[1] == "" {
		log.Warn("malformed callback data")
		return
	}
	caseID := parts[1]

	var err error
	switch parts[0] {
	case cbTimers:
		err = caseBot.showTimers(ctx, chatID, threadID, caseID)
	case cbPending:
		err = caseBot.showPending(ctx, chatID, threadID, caseID)
	case cbDecline:
		if !caseBot.isAdmin(&callback.From) {
			err = caseBot.sendReply(ctx, chatID, threadID, staffOnly)
			break
		}
		err = caseBot.askDeclineReason(ctx, chatID, threadID, caseID)
	case cbReschedule:
		if !caseBot.isAdmin(&callback.From) {
			err = caseBot.sendReply(ctx, chatID, threadID, staffOnly)
			break
		}
		if len(parts) != 3 {
			log.Warn("malformed reschedule callback")
			return
		}
		err = caseBot.rescheduleStage(ctx, chatID, threadID, caseID, parts[2])
	case cbComplete:
		if !caseBot.isAdmin(&callback.From) {
			err = caseBot.sendReply(ctx, chatID, threadID, staffOnly)
			break
		}
		if len(parts) != 3 {
			log.Warn("malformed complete callback")
			return
		}
		err = caseBot.completeStage(ctx, chatID, threadID, caseID, parts[2], nil)
	default:
		log.Warn("unknown callback action")
		return
	}
	if err != nil {
		log.Error("callback handler error", sl.Err(err))
	}
}

// callbackChat resolves where to answer a callback. Inaccessible messages
// fall back to the private chat with the user.
func callbackChat(callback *models.CallbackQuery) (int64, int) {
	if m := callback.Message.Message; m != nil {
		return m.Chat.ID, m.MessageThreadID
	}
	return callback.From.ID, 0
}
