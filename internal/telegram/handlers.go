package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

// commandHandler dispatches bot commands.
func (caseBot *Bot) commandHandler(ctx context.Context, msg *models.Message) error {
	chatID := msg.Chat.ID
	threadID := msg.MessageThreadID
	// Starting a new command cancels any pending session.
	caseBot.sessions.clear(chatID)

	args := strings.Fields(commandArguments(msg))

	switch cmd := commandText(msg); cmd {
	case "start":
		return caseBot.handleStart(ctx, chatID, threadID, msg)
	case "help":
		return caseBot.handleHelp(ctx, chatID, threadID, msg)
	case "case":
		return caseBot.handleCase(ctx, chatID, threadID, args)
	case "cases":
		return caseBot.handleCases(ctx, chatID, threadID, args)
	case "timers":
		return caseBot.handleTimers(ctx, chatID, threadID, args)
	case "pending":
		return caseBot.handlePending(ctx, chatID, threadID, args)
	case "decline":
		return caseBot.handleDecline(ctx, chatID, threadID, msg, args)
	case "reschedule":
		return caseBot.handleReschedule(ctx, chatID, threadID, msg, args)
	case "open":
		return caseBot.handleOpen(ctx, chatID, threadID, msg, args)
	case "quote":
		return caseBot.handleQuote(ctx, chatID, threadID, msg, args)
	case "complete":
		return caseBot.handleComplete(ctx, chatID, threadID, msg, args)
	case "answer":
		return caseBot.handleAnswer(ctx, chatID, threadID, msg, args)
	case "addadmin":
		return caseBot.handleAddAdmin(ctx, chatID, threadID, msg, args)
	case "removeadmin":
		return caseBot.handleRemoveAdmin(ctx, chatID, threadID, msg, args)
	default:
		return caseBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("❓ Unknown command: /%s\nUse /help to list commands.", cmd))
	}
}

func (caseBot *Bot) handleStart(ctx context.Context, chatID int64, threadID int, msg *models.Message) error {
	name := "there"
	if msg.From != nil && msg.From.FirstName != "" {
		name = msg.From.FirstName
	}
	text := fmt.Sprintf("👋 Hi, %s!\n\n"+
		"I show the progress of vehicle acquisition cases.\n"+
		"Use /help to list commands.", name)
	return caseBot.sendReply(ctx, chatID, threadID, text)
}

func (caseBot *Bot) handleHelp(ctx context.Context, chatID int64, threadID int, msg *models.Message) error {
	text := `📋 Commands

/case <id> - case status and stages
/cases <status> - latest cases in a status
/timers <id> - working time per stage
/pending <id> - unanswered required inspection questions`
	if caseBot.isAdmin(msg.From) {
		text += `

🔧 Staff only:
/open <vin> <conventional|electric> <customer name> - open a case
/answer <id> <question> <value> - record an inspection answer, - clears it
/quote <id> <amount> - offer an amount during the quote stage
/complete <id> <stage> [details] - complete the current stage
/decline <id> [reason] - record a declined offer and close the case
/reschedule <id> <stage> - reopen schedule-inspection, inspection or schedule-pickup
/addadmin <username> - grant staff rights
/removeadmin <username> - revoke staff rights`
	}
	return caseBot.sendReply(ctx, chatID, threadID, text)
}

func (caseBot *Bot) handleCase(ctx context.Context, chatID int64, threadID int, args []string) error {
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /case <id>")
	}
	return caseBot.showCase(ctx, chatID, threadID, args[0])
}

func (caseBot *Bot) handleCases(ctx context.Context, chatID int64, threadID int, args []string) error {
	usage := "⚠️ Usage: /cases <status>\nStatuses: " + joinStatuses(domain.CaseStatuses)
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, usage)
	}
	status := domain.CaseStatus(args[0])
	if !status.Valid() {
		return caseBot.sendReply(ctx, chatID, threadID, usage)
	}

	list, err := caseBot.cases.ListCases(ctx, status, listLimit)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendReply(ctx, chatID, threadID, formatCaseList(status, list))
}

func (caseBot *Bot) handleTimers(ctx context.Context, chatID int64, threadID int, args []string) error {
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /timers <id>")
	}
	return caseBot.showTimers(ctx, chatID, threadID, args[0])
}

func (caseBot *Bot) handlePending(ctx context.Context, chatID int64, threadID int, args []string) error {
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /pending <id>")
	}
	return caseBot.showPending(ctx, chatID, threadID, args[0])
}

// handleDecline closes a case with a declined offer. Without a reason in the
// arguments the bot asks for one.
func (caseBot *Bot) handleDecline(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) == 0 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /decline <id> [reason]")
	}
	caseID := args[0]
	if len(args) > 1 {
		return caseBot.declineOffer(ctx, chatID, threadID, caseID, strings.Join(args[1:], " "))
	}
	return caseBot.askDeclineReason(ctx, chatID, threadID, caseID)
}

func (caseBot *Bot) handleReschedule(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) != 2 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /reschedule <id> <stage>")
	}
	return caseBot.rescheduleStage(ctx, chatID, threadID, args[0], args[1])
}

func (caseBot *Bot) showCase(ctx context.Context, chatID int64, threadID int, caseID string) error {
	c, err := caseBot.cases.GetCase(ctx, caseID)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}

	var insp *domain.Inspection
	if c.InspectionID != "" {
		if insp, err = caseBot.cases.GetInspection(ctx, caseID); err != nil {
			return caseBot.replyError(ctx, chatID, threadID, err)
		}
	}

	return caseBot.sendWithKeyboard(ctx, chatID, threadID, formatCase(c, insp), caseKeyboard(c))
}

func (caseBot *Bot) showTimers(ctx context.Context, chatID int64, threadID int, caseID string) error {
	timers, err := caseBot.cases.Timers(ctx, caseID)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendReply(ctx, chatID, threadID, formatTimers(caseID, timers, caseBot.now()))
}

func (caseBot *Bot) showPending(ctx context.Context, chatID int64, threadID int, caseID string) error {
	missing, err := caseBot.cases.PendingQuestions(ctx, caseID)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	if len(missing) == 0 {
		return caseBot.sendReply(ctx, chatID, threadID, "✅ All required questions are answered.")
	}
	return caseBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("📝 %d required question(s) unanswered:\n• %s", len(missing), strings.Join(missing, "\n• ")))
}

func (caseBot *Bot) askDeclineReason(ctx context.Context, chatID int64, threadID int, caseID string) error {
	caseBot.sessions.set(chatID, &Session{
		Step:     StepDeclineReason,
		ThreadID: threadID,
		Data:     map[string]string{"caseID": caseID},
	})
	return caseBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("📝 Why did the customer decline the offer for case %s?", caseID))
}

func (caseBot *Bot) declineOffer(ctx context.Context, chatID int64, threadID int, caseID, reason string) error {
	c, err := caseBot.cases.DeclineOffer(ctx, caseID, reason)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("🚫 Offer declined. Case %s is closed as %s.", c.ID, c.Status))
}

func (caseBot *Bot) rescheduleStage(ctx context.Context, chatID int64, threadID int, caseID, stageName string) error {
	stage, ok := domain.ParseStage(stageName)
	if !ok {
		return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("❌ Unknown stage: %s", stageName))
	}
	c, err := caseBot.cases.RescheduleStage(ctx, caseID, stage)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("🔁 Case %s is back at %s.", c.ID, c.CurrentStage))
}

// handleSessionInput processes free text that answers a pending session step.
func (caseBot *Bot) handleSessionInput(ctx context.Context, msg *models.Message) {
	op := "telegram.handleSessionInput"
	chatID := msg.Chat.ID

	sess, ok := caseBot.sessions.get(chatID)
	if !ok {
		return
	}

	switch sess.Step {
	case StepDeclineReason:
		reason := strings.TrimSpace(msg.Text)
		if reason == "" {
			_ = caseBot.sendReply(ctx, chatID, sess.ThreadID, "⚠️ Please type the reason as text.")
			return
		}
		caseBot.sessions.clear(chatID)
		if err := caseBot.declineOffer(ctx, chatID, sess.ThreadID, sess.Data["caseID"], reason); err != nil {
			caseBot.log.Error("decline failed", slog.String("op", op), sl.Err(err))
		}
	default:
		caseBot.sessions.clear(chatID)
	}
}

// replyError turns an orchestrator error into a staff-facing message. Domain
// rejections are shown verbatim; anything else is logged and returned.
func (caseBot *Bot) replyError(ctx context.Context, chatID int64, threadID int, err error) error {
	var de *domain.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return caseBot.sendReply(ctx, chatID, threadID, "❌ Case not found.")
	case errors.As(err, &de):
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ "+describeError(de))
	default:
		if sendErr := caseBot.sendReply(ctx, chatID, threadID, "❌ Something went wrong, please try again."); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
}
