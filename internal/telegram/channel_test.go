package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rt2013G/hexa-bot/internal/game"
)

type MockChannelAPI struct {
	mock.Mock
}

func (m *MockChannelAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	if msg, ok := args.Get(0).(tgbotapi.Message); ok {
		return msg, args.Error(1)
	}
	return tgbotapi.Message{}, args.Error(1)
}

func (m *MockChannelAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return nil, args.Error(1)
}

func (m *MockChannelAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	args := m.Called(endpoint, params)
	return nil, args.Error(1)
}

func TestPostTextMessage(t *testing.T) {
	api := new(MockChannelAPI)
	ch := NewChannel(api)

	api.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		cfg, ok := c.(tgbotapi.MessageConfig)
		return ok && cfg.Text == "ciao" && cfg.ChatID == int64(5)
	})).Return(tgbotapi.Message{MessageID: 77}, nil).Once()

	ref, err := ch.Post(context.Background(), 5, game.Content{Text: "ciao"})
	require.NoError(t, err)
	require.Equal(t, game.MessageRef{ChatID: 5, MessageID: 77}, ref)
	api.AssertExpectations(t)
}

func TestPostPhotoMessage(t *testing.T) {
	api := new(MockChannelAPI)
	ch := NewChannel(api)

	api.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		cfg, ok := c.(tgbotapi.PhotoConfig)
		return ok && cfg.Caption == "Guess the card!"
	})).Return(tgbotapi.Message{MessageID: 78}, nil).Once()

	ref, err := ch.Post(context.Background(), 5, game.Content{Photo: []byte{1, 2, 3}, Caption: "Guess the card!"})
	require.NoError(t, err)
	require.Equal(t, 78, ref.MessageID)
	api.AssertExpectations(t)
}

func TestDeleteClassifiesFailures(t *testing.T) {
	api := new(MockChannelAPI)
	ch := NewChannel(api)

	api.On("Request", mock.Anything).Return(nil, &tgbotapi.Error{Code: 400, Message: "message to delete not found"}).Once()
	err := ch.Delete(context.Background(), game.MessageRef{ChatID: 5, MessageID: 1})
	require.ErrorIs(t, err, game.ErrPermanentDelivery)

	api.On("Request", mock.Anything).Return(nil, &tgbotapi.Error{Code: 429, Message: "too many requests"}).Once()
	err = ch.Delete(context.Background(), game.MessageRef{ChatID: 5, MessageID: 2})
	require.ErrorIs(t, err, game.ErrTransientDelivery)

	api.On("Request", mock.Anything).Return(nil, errors.New("dial tcp: i/o timeout")).Once()
	err = ch.Delete(context.Background(), game.MessageRef{ChatID: 5, MessageID: 3})
	require.ErrorIs(t, err, game.ErrTransientDelivery)

	api.On("Request", mock.Anything).Return(nil, nil).Once()
	require.NoError(t, ch.Delete(context.Background(), game.MessageRef{ChatID: 5, MessageID: 4}))
	api.AssertExpectations(t)
}

func TestReactSendsRawRequest(t *testing.T) {
	api := new(MockChannelAPI)
	ch := NewChannel(api)

	api.On("MakeRequest", "setMessageReaction", mock.MatchedBy(func(p tgbotapi.Params) bool {
		return p["chat_id"] == "5" && p["message_id"] == "9" && p["reaction"] != ""
	})).Return(nil, nil).Once()

	require.NoError(t, ch.React(context.Background(), game.MessageRef{ChatID: 5, MessageID: 9}, game.ReactionCorrect))
	api.AssertExpectations(t)
}
