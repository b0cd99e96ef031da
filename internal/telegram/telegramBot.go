package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"CaseLifecycle/internal/cases"
	"CaseLifecycle/internal/config"
	"CaseLifecycle/internal/models/domain"
	"CaseLifecycle/internal/utils/logger/sl"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// CaseService is the part of the case orchestrator the staff console drives.
type CaseService interface {
	OpenCase(ctx context.Context, in cases.IntakeInput) (*domain.Case, error)
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	ListCases(ctx context.Context, status domain.CaseStatus, limit int) ([]domain.Case, error)
	GetInspection(ctx context.Context, caseID string) (*domain.Inspection, error)
	PendingQuestions(ctx context.Context, caseID string) ([]string, error)
	Question(ctx context.Context, caseID, questionID string) (*domain.Question, error)
	Timers(ctx context.Context, caseID string) ([]domain.StageTimer, error)
	SaveAnswers(ctx context.Context, caseID string, answers map[string]domain.Answer) (*domain.Inspection, error)
	OfferQuote(ctx context.Context, caseID string, amount float64) (*domain.Case, error)
	CompleteStage(ctx context.Context, caseID string, stage domain.Stage, out cases.StageOutputs) (*domain.Case, error)
	DeclineOffer(ctx context.Context, caseID, reason string) (*domain.Case, error)
	RescheduleStage(ctx context.Context, caseID string, stage domain.Stage) (*domain.Case, error)
}

// api is the subset of *bot.Bot used for replies.
type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Bot is the Telegram staff console for acquisition cases.
type Bot struct {
	b        *bot.Bot
	api      api
	cfg      *config.Config
	cases    CaseService
	sessions *sessionStore
	ctx      context.Context
	cancel   context.CancelFunc
	log      *slog.Logger
	now      func() time.Time
}

// New creates the bot. Updates are only polled once Start is called.
func New(logger *slog.Logger, cfg *config.Config, cases CaseService) (*Bot, error) {
	op := "telegram.New"
	log := logger.With(slog.String("op", op))

	caseBot := newBot(logger, cfg, cases, nil)

	b, err := bot.New(cfg.BotConfig.TgbotApiToken,
		bot.WithDefaultHandler(caseBot.defaultHandler),
	)
	if err != nil {
		log.Error("error auth telegram bot", sl.Err(err))
		caseBot.cancel()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	caseBot.b = b
	caseBot.api = b

	log.Info("telegram bot created")
	return caseBot, nil
}

func newBot(logger *slog.Logger, cfg *config.Config, cases CaseService, client api) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		api:      client,
		cfg:      cfg,
		cases:    cases,
		sessions: newSessionStore(),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.With(slog.String("component", "telegram")),
		now:      time.Now,
	}
}

// defaultHandler is the single entry point for all updates.
func (caseBot *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	op := "telegram.defaultHandler"
	log := caseBot.log.With(slog.String("op", op))

	if update.Message != nil && update.Message.From != nil {
		log.Info("input message",
			slog.String("user_id", strconv.FormatInt(update.Message.From.ID, 10)),
			slog.String("user_name", update.Message.From.Username),
			slog.String("text", update.Message.Text),
		)
	}
	if update.CallbackQuery != nil {
		log.Info("input callback",
			slog.String("user_id", strconv.FormatInt(update.CallbackQuery.From.ID, 10)),
			slog.String("user_name", update.CallbackQuery.From.Username),
			slog.String("data", update.CallbackQuery.Data),
		)
	}

	switch {
	case update.Message != nil && isCommand(update.Message):
		if err := caseBot.commandHandler(ctx, update.Message); err != nil {
			log.Error("command handler error", sl.Err(err))
		}
	case update.CallbackQuery != nil:
		caseBot.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		caseBot.handleSessionInput(ctx, update.Message)
	}
}

// isCommand reports whether msg starts with a bot command.
func isCommand(msg *models.Message) bool {
	_, ok := commandEntity(msg)
	return ok
}

func commandEntity(msg *models.Message) (models.MessageEntity, bool) {
	if msg == nil {
		return models.MessageEntity{}, false
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			return e, true
		}
	}
	return models.MessageEntity{}, false
}

// commandText extracts the command name without the slash and @botname suffix.
func commandText(msg *models.Message) string {
	e, ok := commandEntity(msg)
	if !ok {
		return ""
	}
	runes := []rune(msg.Text)
	end := min(e.Offset+e.Length, len(runes))
	cmd := string(runes[e.Offset:end])
	if len(cmd) > 0 && cmd[0] == '/' {
		cmd = cmd[1:]
	}
	for i, c := range cmd {
		if c == '@' {
			cmd = cmd[:i]
			break
		}
	}
	return cmd
}

// commandArguments returns the text that follows the command.
func commandArguments(msg *models.Message) string {
	e, ok := commandEntity(msg)
	if !ok {
		return ""
	}
	runes := []rune(msg.Text)
	end := e.Offset + e.Length
	if end >= len(runes) {
		return ""
	}
	rest := string(runes[end:])
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return rest
}

// Start polls for updates until Shutdown is called.
func (caseBot *Bot) Start() {
	caseBot.log.Info("starting telegram bot polling")
	caseBot.b.Start(caseBot.ctx)
	caseBot.log.Info("telegram bot polling stopped")
}

// sendReply sends a plain-text reply, split into Telegram sized chunks.
func (caseBot *Bot) sendReply(ctx context.Context, chatID int64, threadID int, text string) error {
	for _, chunk := range splitTextIntoChunks(text, 4096) {
		p := &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}
		if threadID != 0 {
			p.MessageThreadID = threadID
		}
		if _, err := caseBot.api.SendMessage(ctx, p); err != nil {
			return fmt.Errorf("sendReply: %w", err)
		}
	}
	return nil
}

// sendWithKeyboard sends a plain-text reply with an inline keyboard.
func (caseBot *Bot) sendWithKeyboard(
	ctx context.Context,
	chatID int64,
	threadID int,
	text string,
	kb *models.InlineKeyboardMarkup,
) error {
	p := &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: kb,
	}
	if threadID != 0 {
		p.MessageThreadID = threadID
	}
	_, err := caseBot.api.SendMessage(ctx, p)
	return err
}

func inlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func inlineRow(btns ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return btns
}

func inlineBtn(text, data string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{Text: text, CallbackData: data}
}

func splitTextIntoChunks(text string, chunkSize int) []string {
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// Shutdown stops polling.
func (caseBot *Bot) Shutdown(_ context.Context) error {
	caseBot.cancel()
	return nil
}
