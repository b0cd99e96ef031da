package main

import (
	"context"
	"log/slog"
	"os"

	"CaseLifecycle/internal/cases"
	"CaseLifecycle/internal/config"
	"CaseLifecycle/internal/events"
	"CaseLifecycle/internal/graceful"
	"CaseLifecycle/internal/notify"
	"CaseLifecycle/internal/repositories"
	"CaseLifecycle/internal/rubric"
	"CaseLifecycle/internal/scoring"
	"CaseLifecycle/internal/telegram"
	"CaseLifecycle/internal/timer"
	"CaseLifecycle/internal/utils/logger/handlers/slogpretty"
	"CaseLifecycle/internal/utils/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info(
		"starting case lifecycle engine",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
	)

	repository, err := repositories.New(log, cfg)
	if err != nil {
		log.Error("error initialising repository", sl.Err(err))
		os.Exit(1)
	}

	rubrics, err := rubric.Load(log, cfg.RubricConfig.ConventionalPath, cfg.RubricConfig.ElectricPath)
	if err != nil {
		log.Error("error loading rubrics", sl.Err(err))
		os.Exit(1)
	}

	shutdownOps := map[string]graceful.Operation{
		"Repository": repository.Shutdown,
	}
	var notifiers notify.Multi

	if cfg.NatsConfig.URL != "" {
		publisher, err := events.Connect(log, cfg.NatsConfig.URL, cfg.NatsConfig.SubjectPrefix)
		if err != nil {
			log.Error("error connecting to nats", sl.Err(err))
			os.Exit(1)
		}
		notifiers = append(notifiers, publisher)
		shutdownOps["NATS publisher"] = publisher.Shutdown
	} else {
		log.Warn("nats url is empty, lifecycle events are not published")
	}

	scoringEngine := scoring.New(log, rubrics)
	timers := timer.New(log, repository)
	caseService := cases.New(log, repository, scoringEngine, timers, notifiers)

	var tgBot *telegram.Bot
	if cfg.BotConfig.TgbotApiToken != "" {
		tgBot, err = telegram.New(log, cfg, caseService)
		if err != nil {
			log.Error("error creating telegram bot", sl.Err(err))
			os.Exit(1)
		}
		caseService.WithNotifier(append(notifiers, tgBot.Notifier()))
		shutdownOps["Telegram bot"] = tgBot.Shutdown
	} else {
		log.Warn("telegram token is empty, staff console is disabled")
	}

	waitShutdown := graceful.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, shutdownOps, log)

	if tgBot != nil {
		go tgBot.Start()
	}

	<-waitShutdown
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = setupPrettySlog(slog.LevelInfo)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}
	handler := opts.NewPrettyHandler(os.Stdout)
	return slog.New(handler)
}
