package telegram

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rt2013G/hexa-bot/internal/cache"
	"github.com/rt2013G/hexa-bot/internal/cards"
	"github.com/rt2013G/hexa-bot/internal/config"
	"github.com/rt2013G/hexa-bot/internal/game"
	"github.com/rt2013G/hexa-bot/internal/service"
	"github.com/rt2013G/hexa-bot/internal/storage"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	log     zerolog.Logger
}

// NewBot wires the whole stack: Telegram API, Postgres ledger, redis
// rankings cache, target lookup and the game controller.
func NewBot(cfg config.Config) (*Bot, error) {
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is not set")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	if err := store.InitSchema(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("connected to postgres")

	rankingsCache, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to redis")

	svc := service.New(store, rankingsCache, log.Logger)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	cardClient := cards.NewClient(httpClient, log.Logger)
	names, err := cards.LoadNameIndex(ctx, filepath.Join(cfg.DataDir, "card_names.json"), httpClient)
	if err != nil {
		return nil, err
	}
	emojiDB, err := cards.LoadEmojiDB(filepath.Join(cfg.DataDir, "emoji_database.json"))
	if err != nil {
		return nil, err
	}
	log.Info().Int("cards", names.Len()).Int("archetypes", emojiDB.Len()).Msg("target databases loaded")

	controller := game.NewController(NewChannel(api), svc, log.Logger)
	handler := NewHandler(
		api,
		controller,
		svc,
		game.NewCardVariant(cardClient, names),
		game.NewEmojiVariant(emojiDB, cardClient),
		api.Self.ID,
		log.Logger,
	)

	return &Bot{api: api, handler: handler, log: log.Logger}, nil
}

// Start runs the long-polling update loop.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for update := range updates {
		if update.Message == nil {
			continue
		}
		msg := update.Message
		switch msg.Command() {
		case "guessthecard":
			b.handler.HandleGuessTheCard(msg)
		case "guessemoji":
			b.handler.HandleGuessEmoji(msg)
		case "stopgame":
			b.handler.HandleStopGame(msg)
		case "guessrankings":
			b.handler.HandleRankings(msg)
		case "start", "help":
			b.handler.HandleHelp(msg)
		case "":
			b.handler.HandleGameMessage(msg)
		}
	}
}
