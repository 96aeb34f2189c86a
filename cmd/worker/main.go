package main

import (
	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/wata-gateway/internal/config"
	"github.com/noah-isme/wata-gateway/internal/notify"
	"github.com/noah-isme/wata-gateway/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "worker").Logger()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{Concurrency: cfg.WorkerConcurrency},
	)

	var sender notify.EmailSender = notify.LogSender{Logger: logger}
	if cfg.NotifyEmailEnabled {
		// SMTP delivery is not wired yet; the log sender keeps the queue
		// draining until it is.
		logger.Warn().Msg("NOTIFY_EMAIL_ENABLED is set but no mail transport is configured")
	}

	worker := &notify.Worker{Sender: sender, Logger: logger}
	mux := asynq.NewServeMux()
	worker.Register(mux)

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}
