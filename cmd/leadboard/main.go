package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"leadboard/internal/ai"
	"leadboard/internal/auth"
	"leadboard/internal/config"
	"leadboard/internal/editor"
	"leadboard/internal/logging"
	"leadboard/internal/mail"
	"leadboard/internal/metrics"
	"leadboard/internal/speech"
	"leadboard/internal/storage"
	"leadboard/internal/ui"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Println("program terminated:", err)
		os.Exit(1)
	}
}

// run wires the application and blocks until the UI exits. Deferred
// cleanup runs before main decides the exit code.
func run(ctx context.Context) error {
	env, err := config.LoadEnv(".env")
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}

	logger, logFile, err := logging.Open(env.DataDir, env.LogLevel)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()

	prefs, err := config.Load(env.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := storage.Open(ctx, env.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	recorder := metrics.New()
	db.SetObserver(recorder)
	db.SetLogger(logging.Component(logger, "storage"))

	aiClient := ai.NewClient(ai.Config{
		APIKey:  env.GeminiAPIKey,
		Model:   env.GeminiModel,
		BaseURL: env.GeminiBaseURL,
		Timeout: env.AITimeout,
	}, logging.Component(logger, "ai"))
	aiClient.SetObserver(recorder)

	deps := ui.Deps{
		Store:     db,
		Prefs:     prefs,
		Editor:    editor.NewService(db, aiClient, prefs.Location(), logging.Component(logger, "editor")),
		Mail:      mail.NewSender(env.SMTPHost, env.SMTPPort, env.SMTPUser, env.SMTPPassword, env.SMTPFrom),
		AIEnabled: env.AIEnabled(),
		Logger:    logging.Component(logger, "ui"),
	}
	provider, err := auth.New(db, []byte(env.AuthSecret), filepath.Join(env.DataDir, "session.jwt"), logging.Component(logger, "auth"))
	if err != nil {
		logger.Error().Err(err).Msg("identity provider unavailable")
		deps.AuthErr = err
	} else {
		deps.Auth = provider
	}
	if env.SpeechCommand != "" {
		deps.Speech = speech.NewCommandRecognizer(env.SpeechCommand, env.SpeechLocale, aiClient, logging.Component(logger, "speech"))
	}
	logger.Info().Str("data_dir", env.DataDir).Bool("ai", deps.AIEnabled).Bool("mail", deps.Mail.Enabled()).Msg("starting")

	runErr := ui.NewProgram(deps).Start()

	if env.MetricsFile != "" {
		if err := recorder.WriteTextfile(env.MetricsFile); err != nil {
			logger.Error().Err(err).Str("path", env.MetricsFile).Msg("write metrics failed")
		}
	}
	if runErr != nil {
		logger.Error().Err(runErr).Msg("program terminated")
		return runErr
	}
	return nil
}
