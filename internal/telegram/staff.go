package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"CaseLifecycle/internal/cases"
	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/go-telegram/bot/models"
)

const staffOnly = "⛔ Staff only."

// handleOpen opens a case: /open <vin> <conventional|electric> <customer name>.
func (caseBot *Bot) handleOpen(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) < 3 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /open <vin> <conventional|electric> <customer name>")
	}

	c, err := caseBot.cases.OpenCase(ctx, cases.IntakeInput{
		Customer: domain.Customer{Name: strings.Join(args[2:], " ")},
		Vehicle:  domain.Vehicle{VIN: strings.ToUpper(args[0]), Type: domain.VehicleType(strings.ToLower(args[1]))},
	})
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("🆕 Case %s opened.\n\n%s", c.ID, formatCase(c, nil)), caseKeyboard(c))
}

// handleQuote records the offered amount: /quote <id> <amount>.
func (caseBot *Bot) handleQuote(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) != 2 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /quote <id> <amount>")
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return caseBot.sendReply(ctx, chatID, threadID, "❌ "+err.Error())
	}

	c, err := caseBot.cases.OfferQuote(ctx, args[0], amount)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	return caseBot.sendWithKeyboard(ctx, chatID, threadID,
		fmt.Sprintf("💰 Offered %.2f for case %s.", amount, c.ID), caseKeyboard(c))
}

// handleComplete completes a stage: /complete <id> <stage> [details].
func (caseBot *Bot) handleComplete(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) < 2 {
		return caseBot.sendReply(ctx, chatID, threadID, completeUsage)
	}
	return caseBot.completeStage(ctx, chatID, threadID, args[0], args[1], args[2:])
}

const completeUsage = `⚠️ Usage: /complete <id> <stage> [details]
intake
schedule-inspection <inspector> <time>
inspection
quote [amount]
paperwork <method> <amount> [reference]
schedule-pickup <time> [address]
completion

Times are RFC3339 or 2006-01-02T15:04 in UTC.`

func (caseBot *Bot) completeStage(ctx context.Context, chatID int64, threadID int, caseID, stageName string, details []string) error {
	stage, ok := domain.ParseStage(stageName)
	if !ok {
		return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("❌ Unknown stage: %s", stageName))
	}
	out, err := stageOutputs(stage, details)
	if err != nil {
		return caseBot.sendReply(ctx, chatID, threadID, "❌ "+err.Error()+"\n\n"+completeUsage)
	}

	c, err := caseBot.cases.CompleteStage(ctx, caseID, stage, out)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	text := fmt.Sprintf("✅ Case %s: %s completed, next is %s.", c.ID, stage, c.CurrentStage)
	if c.Status == domain.CaseStatusCompleted {
		text = fmt.Sprintf("🏁 Case %s completed.", c.ID)
	}
	return caseBot.sendWithKeyboard(ctx, chatID, threadID, text, caseKeyboard(c))
}

// stageOutputs parses the details a stage needs from command arguments.
func stageOutputs(stage domain.Stage, details []string) (cases.StageOutputs, error) {
	var out cases.StageOutputs
	switch stage {
	case domain.StageScheduleInspection:
		if len(details) != 2 {
			return out, errors.New("schedule-inspection needs <inspector> <time>")
		}
		at, err := parseTime(details[1])
		if err != nil {
			return out, err
		}
		out.Inspection = &cases.InspectionSchedule{InspectorID: details[0], ScheduledAt: at}
	case domain.StageQuote:
		if len(details) > 1 {
			return out, errors.New("quote takes at most one amount")
		}
		if len(details) == 1 {
			amount, err := parseAmount(details[0])
			if err != nil {
				return out, err
			}
			out.AcceptedAmount = &amount
		}
	case domain.StagePaperwork:
		if len(details) < 2 || len(details) > 3 {
			return out, errors.New("paperwork needs <method> <amount> [reference]")
		}
		amount, err := parseAmount(details[1])
		if err != nil {
			return out, err
		}
		out.Payment = &domain.Payment{Method: details[0], Amount: amount}
		if len(details) == 3 {
			out.Payment.Reference = details[2]
		}
	case domain.StageSchedulePickup:
		if len(details) == 0 {
			return out, errors.New("schedule-pickup needs <time> [address]")
		}
		at, err := parseTime(details[0])
		if err != nil {
			return out, err
		}
		out.Pickup = &domain.Pickup{ScheduledAt: at, Address: strings.Join(details[1:], " ")}
	default:
		if len(details) > 0 {
			return out, fmt.Errorf("%s takes no details", stage)
		}
	}
	return out, nil
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

// handleAnswer records one inspection answer: /answer <id> <question> <value>.
// A single "-" clears the answer.
func (caseBot *Bot) handleAnswer(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) < 3 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /answer <id> <question> <value>\nUse - to clear an answer.")
	}
	caseID, questionID := args[0], args[1]

	q, err := caseBot.cases.Question(ctx, caseID, questionID)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	a, err := parseAnswer(q, args[2:])
	if err != nil {
		return caseBot.sendReply(ctx, chatID, threadID, "❌ "+err.Error())
	}
	if _, err := caseBot.cases.SaveAnswers(ctx, caseID, map[string]domain.Answer{questionID: a}); err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}

	missing, err := caseBot.cases.PendingQuestions(ctx, caseID)
	if err != nil {
		return caseBot.replyError(ctx, chatID, threadID, err)
	}
	if len(missing) == 0 {
		return caseBot.sendReply(ctx, chatID, threadID,
			fmt.Sprintf("💾 Saved %s. All required questions are answered.", questionID))
	}
	return caseBot.sendReply(ctx, chatID, threadID,
		fmt.Sprintf("💾 Saved %s. %d required question(s) still unanswered.", questionID, len(missing)))
}

// parseAnswer builds an answer of the question's type from command arguments.
func parseAnswer(q *domain.Question, values []string) (domain.Answer, error) {
	if len(values) == 1 && values[0] == "-" {
		return domain.Answer{}, nil
	}

	switch q.Type {
	case domain.QuestionRadio, domain.QuestionYesNo:
		if len(values) != 1 {
			return domain.Answer{}, fmt.Errorf("%s takes one value", q.ID)
		}
		return domain.Answer{Values: values}, nil
	case domain.QuestionCheckbox:
		picked := strings.FieldsFunc(strings.Join(values, " "), func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})
		return domain.Answer{Values: picked}, nil
	case domain.QuestionRating, domain.QuestionNumber:
		if len(values) != 1 {
			return domain.Answer{}, fmt.Errorf("%s takes one number", q.ID)
		}
		n, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("%s takes a number, got %q", q.ID, values[0])
		}
		return domain.Answer{Number: &n}, nil
	case domain.QuestionText:
		return domain.Answer{Text: strings.Join(values, " ")}, nil
	case domain.QuestionPhoto:
		return domain.Answer{Photos: values}, nil
	default:
		return domain.Answer{}, fmt.Errorf("%s groups other questions, answer those instead", q.ID)
	}
}

// handleAddAdmin grants staff rights and persists them to the config file.
func (caseBot *Bot) handleAddAdmin(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	op := "telegram.handleAddAdmin"
	log := caseBot.log.With(slog.String("op", op), slog.Int64("chatID", chatID))

	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /addadmin <username>")
	}
	username := strings.TrimPrefix(args[0], "@")

	added, err := caseBot.cfg.AddAdmin(username)
	if err != nil {
		log.Error("failed to add admin", slog.String("username", username), sl.Err(err))
		return caseBot.sendReply(ctx, chatID, threadID, "❌ Could not save the staff list, please try again.")
	}
	if !added {
		return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("ℹ️ @%s is already staff.", username))
	}
	log.Info("admin added", slog.String("username", username))
	return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("✅ @%s is now staff.", username))
}

// handleRemoveAdmin revokes staff rights and persists the change.
func (caseBot *Bot) handleRemoveAdmin(ctx context.Context, chatID int64, threadID int, msg *models.Message, args []string) error {
	op := "telegram.handleRemoveAdmin"
	log := caseBot.log.With(slog.String("op", op), slog.Int64("chatID", chatID))

	if !caseBot.isAdmin(msg.From) {
		return caseBot.sendReply(ctx, chatID, threadID, staffOnly)
	}
	if len(args) != 1 {
		return caseBot.sendReply(ctx, chatID, threadID, "⚠️ Usage: /removeadmin <username>")
	}
	username := strings.TrimPrefix(args[0], "@")

	removed, err := caseBot.cfg.RemoveAdmin(username)
	if err != nil {
		log.Error("failed to remove admin", slog.String("username", username), sl.Err(err))
		return caseBot.sendReply(ctx, chatID, threadID, "❌ Could not save the staff list, please try again.")
	}
	if !removed {
		return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("❌ @%s is not staff.", username))
	}
	log.Info("admin removed", slog.String("username", username))
	return caseBot.sendReply(ctx, chatID, threadID, fmt.Sprintf("✅ @%s is no longer staff.", username))
}
