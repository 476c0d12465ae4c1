package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rt2013G/hexa-bot/internal/game"
)

// channelAPI is the slice of the bot API the channel adapter needs.
type channelAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Channel adapts the Telegram API to the game engine's transport interface.
type Channel struct {
	api channelAPI
}

func NewChannel(api channelAPI) *Channel {
	return &Channel{api: api}
}

func (ch *Channel) Post(_ context.Context, chatID int64, content game.Content) (game.MessageRef, error) {
	var payload tgbotapi.Chattable
	if content.Photo != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "card.jpg", Bytes: content.Photo})
		photo.Caption = content.Caption
		photo.ReplyToMessageID = content.ReplyTo
		payload = photo
	} else {
		msg := tgbotapi.NewMessage(chatID, content.Text)
		msg.ReplyToMessageID = content.ReplyTo
		payload = msg
	}

	sent, err := ch.api.Send(payload)
	if err != nil {
		return game.MessageRef{}, fmt.Errorf("failed to post message: %w", err)
	}
	return game.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (ch *Channel) Delete(_ context.Context, ref game.MessageRef) error {
	_, err := ch.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
	if err == nil {
		return nil
	}
	return classifyDeliveryError(err)
}

func (ch *Channel) React(_ context.Context, ref game.MessageRef, reaction game.Reaction) error {
	payload, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": string(reaction)}})
	if err != nil {
		return err
	}
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(ref.ChatID, 10),
		"message_id": strconv.Itoa(ref.MessageID),
		"reaction":   string(payload),
	}
	_, err = ch.api.MakeRequest("setMessageReaction", params)
	return err
}

// classifyDeliveryError maps transport errors onto the engine's retry
// taxonomy: API rejections (forbidden, bad request) are permanent except
// rate limiting; network trouble, timeouts included, is worth retrying.
func classifyDeliveryError(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code != 429 {
		return fmt.Errorf("%w: %v", game.ErrPermanentDelivery, err)
	}
	return fmt.Errorf("%w: %v", game.ErrTransientDelivery, err)
}
