// main.go
//
// Entry point for the riddle server.
// Startup order: config (.env + environment) → log level → database open +
// migrations → repository and live room store → metrics → HTTP server.

package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/config"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/db"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/httpserver"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/metrics"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/store"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/universe"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if os.Getenv("LOG_PRETTY") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	database, err := db.Open(cfg.DBDriver, cfg.DataSource())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	metrics.Init()
	srv := httpserver.New(store.NewMemoryStore(), universe.NewStore(database), httpserver.Options{
		ClientOrigin:     cfg.ClientOrigin,
		TransitionDelay:  cfg.TransitionDelay,
		AnswerRatePerMin: cfg.AnswerRatePerMin,
	})

	log.Info().Str("port", cfg.Port).Str("db", database.Dialect.Name()).Msg("starting riddle server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
