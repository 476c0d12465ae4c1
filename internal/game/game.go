// Package game implements the timed-reveal guessing rounds: a per-chat
// session advanced by a repeating timer that posts progressively larger
// reveals of a hidden target, scores free-text guesses and cleans up its
// own message trail when the round ends.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/rt2013G/hexa-bot/internal/cards"
)

// Delivery failure classes reported by Channel.Delete. Transient failures
// are retried on the next cleanup pass, permanent ones are dropped.
var (
	ErrTransientDelivery = errors.New("transient delivery failure")
	ErrPermanentDelivery = errors.New("permanent delivery failure")
)

// MessageRef identifies a single posted chat message.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Content is one outgoing chat message. Photo takes precedence over Text
// when set; ReplyTo is the message id to reply to, zero for none.
type Content struct {
	Text    string
	Photo   []byte
	Caption string
	ReplyTo int
}

type Reaction string

const (
	ReactionCorrect Reaction = "🔥"
	ReactionWrong   Reaction = "👎"
)

// Channel is the chat transport the engine posts through.
type Channel interface {
	Post(ctx context.Context, chatID int64, content Content) (MessageRef, error)
	Delete(ctx context.Context, ref MessageRef) error
	React(ctx context.Context, ref MessageRef, reaction Reaction) error
}

// Ledger persists the outcome of a finished round. Only strictly positive
// scores may be written.
type Ledger interface {
	Commit(ctx context.Context, startedAt time.Time, scores map[int64]int) error
}

// Variant binds one game flavour: where targets come from, how they are
// revealed step by step and how guesses are matched and scored.
//
// The reveal index starts at InitialReveal and moves one Advance step per
// tick until Exhausted reports that the target has been fully shown.
type Variant interface {
	Name() string

	RandomName() (string, error)
	Resolve(ctx context.Context, name string) (*cards.Card, error)

	// Prepare is called once when a target is installed on a session.
	Prepare(c *cards.Card)

	Banner(ctx context.Context) (Content, error)
	Reveal(c *cards.Card, reveal int) (Content, error)
	Missed(c *cards.Card) Content

	InitialReveal() int
	Advance(reveal int) int
	Exhausted(reveal int) bool

	Score(reveal int) int
	Match(guess string, c *cards.Card) bool
}

// Guess is one incoming chat message routed to an active round.
type Guess struct {
	UserID      int64
	DisplayName string
	Text        string
	Message     MessageRef
	ReplyToBot  bool
}
