// main.go
//
// Entry point of the Mille Bornes duel server.
// Startup order: config → logging → results database → bot policy →
// session router → HTTP server. SIGINT/SIGTERM trigger a graceful shutdown.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/assets"
	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/bot"
	"github.com/robalobadob/millebornes/internal/config"
	"github.com/robalobadob/millebornes/internal/httpserver"
	"github.com/robalobadob/millebornes/internal/results"
	"github.com/robalobadob/millebornes/internal/session"
	"github.com/robalobadob/millebornes/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if cfg.UsingDevSecret() {
		log.Warn().Msg("JWT_SECRET not set, using the development secret")
	}

	db, err := results.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open results database")
	}
	defer db.Close()
	if err := results.Migrate(context.Background(), db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate results database")
	}
	rs := results.NewStore(db)

	if err := bot.InitNames(cfg.BotNames); err != nil {
		log.Fatal().Err(err).Msg("load bot names")
	}
	policy, err := bot.Load(cfg.BotScript)
	if err != nil {
		log.Fatal().Err(err).Str("script", cfg.BotScript).Msg("load bot policy")
	}
	defer policy.Close()

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	router := session.New(session.Options{
		Store:       store.NewMemoryStore(),
		Tokens:      tokens,
		Results:     rs,
		Bot:         policy,
		ChatHistory: cfg.ChatHistory,
		FinishedTTL: cfg.FinishedTTL,
		EmptyTTL:    cfg.EmptyTTL,
	})
	defer router.Close()

	srv := httpserver.New(httpserver.Deps{
		Router:  router,
		Results: rs,
		Tokens:  tokens,
		Origins: cfg.Origins,
	})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Strs("origins", cfg.Origins).Msg("starting millebornes server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
