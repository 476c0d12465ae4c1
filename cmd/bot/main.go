package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rt2013G/hexa-bot/internal/config"
	"github.com/rt2013G/hexa-bot/internal/telegram"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	bot.Start()
}
