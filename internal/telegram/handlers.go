package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/rt2013G/hexa-bot/internal/game"
	"github.com/rt2013G/hexa-bot/internal/storage"
)

const rankingsLength = 10

// BotAPI is the slice of the Telegram API the handlers need.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// GameController is the engine surface driven by chat commands.
type GameController interface {
	Start(ctx context.Context, chatID int64, v game.Variant) bool
	Stop(chatID int64) bool
	Active(chatID int64) bool
	HandleGuess(chatID int64, g game.Guess)
}

// LedgerService serves the rankings view and keeps player identities fresh.
type LedgerService interface {
	Rankings(ctx context.Context, limit int) ([]storage.RankedUser, error)
	RegisterPlayer(ctx context.Context, id int64, username, firstName string) error
}

type Handler struct {
	Bot     BotAPI
	Games   GameController
	Service LedgerService

	cardVariant  game.Variant
	emojiVariant game.Variant
	selfID       int64
	log          zerolog.Logger
}

func NewHandler(bot BotAPI, games GameController, svc LedgerService, cardVariant, emojiVariant game.Variant, selfID int64, logger zerolog.Logger) *Handler {
	return &Handler{
		Bot:          bot,
		Games:        games,
		Service:      svc,
		cardVariant:  cardVariant,
		emojiVariant: emojiVariant,
		selfID:       selfID,
		log:          logger,
	}
}

// HandleGuessTheCard - /guessthecard
func (h *Handler) HandleGuessTheCard(msg *tgbotapi.Message) {
	h.startGame(msg, h.cardVariant)
}

// HandleGuessEmoji - /guessemoji
func (h *Handler) HandleGuessEmoji(msg *tgbotapi.Message) {
	h.startGame(msg, h.emojiVariant)
}

func (h *Handler) startGame(msg *tgbotapi.Message, v game.Variant) {
	if !isGroupChat(msg.Chat) || !h.isModerator(msg.Chat.ID, msg.From) {
		return
	}
	if !h.Games.Start(context.Background(), msg.Chat.ID, v) {
		h.log.Debug().Int64("chat_id", msg.Chat.ID).Msg("round already running")
	}
}

// HandleStopGame - /stopgame, moderators only
func (h *Handler) HandleStopGame(msg *tgbotapi.Message) {
	if !isGroupChat(msg.Chat) || !h.isModerator(msg.Chat.ID, msg.From) {
		return
	}
	if !h.Games.Stop(msg.Chat.ID) {
		h.log.Debug().Int64("chat_id", msg.Chat.ID).Msg("no round to stop")
	}
}

// HandleGameMessage routes plain text to the active round, if any. Only
// replies to the bot's own messages are eligible guesses.
func (h *Handler) HandleGameMessage(msg *tgbotapi.Message) {
	if msg.From == nil || msg.Text == "" || !h.Games.Active(msg.Chat.ID) {
		return
	}

	replyToBot := msg.ReplyToMessage != nil &&
		msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == h.selfID
	if replyToBot {
		if err := h.Service.RegisterPlayer(context.Background(), msg.From.ID, msg.From.UserName, msg.From.FirstName); err != nil {
			h.log.Debug().Err(err).Int64("user_id", msg.From.ID).Msg("failed to register player")
		}
	}

	h.Games.HandleGuess(msg.Chat.ID, game.Guess{
		UserID:      msg.From.ID,
		DisplayName: displayName(msg.From),
		Text:        msg.Text,
		Message:     game.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID},
		ReplyToBot:  replyToBot,
	})
}

// HandleRankings - /guessrankings
func (h *Handler) HandleRankings(msg *tgbotapi.Message) {
	ranked, err := h.Service.Rankings(context.Background(), rankingsLength)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load rankings")
		sendMessage(h.Bot, h.log, tgbotapi.NewMessage(msg.Chat.ID, "Impossibile recuperare la classifica, riprova più tardi."))
		return
	}
	if len(ranked) == 0 {
		sendMessage(h.Bot, h.log, tgbotapi.NewMessage(msg.Chat.ID, "Nessuna partita giocata finora!"))
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	text := "🏆 Classifica Guess The Card:\n"
	for i, r := range ranked {
		medal := ""
		if i < len(medals) {
			medal = medals[i] + " "
		}
		text += fmt.Sprintf("%s%s, punteggio: %d\n", medal, r.DisplayName(), r.Score)
	}
	sendMessage(h.Bot, h.log, tgbotapi.NewMessage(msg.Chat.ID, text))
}

// HandleHelp - /help
func (h *Handler) HandleHelp(msg *tgbotapi.Message) {
	text := "Ecco cosa so fare:\n\n" +
		"/guessthecard - inizia una partita di Guess The Card\n" +
		"/guessemoji - inizia una partita di Guess The Archetype\n" +
		"/stopgame - interrompe la partita in corso\n" +
		"/guessrankings - mostra la classifica generale\n" +
		"/help - mostra questo messaggio"
	sendMessage(h.Bot, h.log, tgbotapi.NewMessage(msg.Chat.ID, text))
}

// isModerator checks chat administrator status through the API.
func (h *Handler) isModerator(chatID int64, user *tgbotapi.User) bool {
	if user == nil {
		return false
	}
	member, err := h.Bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: user.ID,
		},
	})
	if err != nil {
		h.log.Debug().Err(err).Int64("user_id", user.ID).Msg("failed to check chat member")
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}

func isGroupChat(chat *tgbotapi.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
