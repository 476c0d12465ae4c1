package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/rt2013G/hexa-bot/internal/cards"
)

const (
	cardBannerName  = "Question"
	emojiBannerName = "Reasoning"

	cardInitialCrop  = 4
	emojiFirstReveal = 1
	emojiMaxReveals  = 6
)

// CardVariant reveals a card image through progressively smaller crop
// levels; guesses are fuzzy-matched against the card name.
type CardVariant struct {
	api   *cards.Client
	names *cards.NameIndex
}

func NewCardVariant(api *cards.Client, names *cards.NameIndex) *CardVariant {
	return &CardVariant{api: api, names: names}
}

func (v *CardVariant) Name() string { return "card" }

func (v *CardVariant) RandomName() (string, error) { return v.names.RandomName() }

func (v *CardVariant) Resolve(ctx context.Context, name string) (*cards.Card, error) {
	return v.api.Resolve(ctx, name)
}

func (v *CardVariant) Prepare(_ *cards.Card) {}

func (v *CardVariant) Banner(ctx context.Context) (Content, error) {
	caption := "Venghino signori e signore!\nSta per iniziare il Guess The Card, non mancate mi raccomando!"
	card, err := v.api.Resolve(ctx, cardBannerName)
	if err != nil || card == nil {
		return Content{Text: caption}, err
	}
	photo, err := cards.EncodeJPEG(card.Image)
	if err != nil {
		return Content{Text: caption}, err
	}
	return Content{Photo: photo, Caption: caption}, nil
}

func (v *CardVariant) Reveal(c *cards.Card, reveal int) (Content, error) {
	level := reveal
	if level < 0 {
		level = 0
	}
	photo, err := cards.CroppedJPEG(c.Image, level)
	if err != nil {
		return Content{}, err
	}
	return Content{Photo: photo, Caption: "Guess the card!"}, nil
}

func (v *CardVariant) Missed(c *cards.Card) Content {
	caption := fmt.Sprintf("La carta era %s, nessuno ha indovinato!", c.Name)
	photo, err := cards.EncodeJPEG(c.Image)
	if err != nil {
		return Content{Text: caption}
	}
	return Content{Photo: photo, Caption: caption}
}

// The crop level counts down to -1: the tick after the full image has been
// shown declares the miss.
func (v *CardVariant) InitialReveal() int        { return cardInitialCrop }
func (v *CardVariant) Advance(reveal int) int    { return reveal - 1 }
func (v *CardVariant) Exhausted(reveal int) bool { return reveal < 0 }

func (v *CardVariant) Score(reveal int) int { return reveal + 2 }

func (v *CardVariant) Match(guess string, c *cards.Card) bool {
	return MatchFuzzy(guess, c.Name)
}

// EmojiVariant reveals one more emoji of a shuffled archetype hint per tick;
// guesses must match the archetype name exactly after normalization.
type EmojiVariant struct {
	db  *cards.EmojiDB
	api *cards.Client
}

func NewEmojiVariant(db *cards.EmojiDB, api *cards.Client) *EmojiVariant {
	return &EmojiVariant{db: db, api: api}
}

func (v *EmojiVariant) Name() string { return "emoji" }

func (v *EmojiVariant) RandomName() (string, error) { return v.db.RandomName() }

func (v *EmojiVariant) Resolve(_ context.Context, name string) (*cards.Card, error) {
	return v.db.Resolve(name)
}

func (v *EmojiVariant) Prepare(c *cards.Card) {
	rand.Shuffle(len(c.Emoji), func(i, j int) {
		c.Emoji[i], c.Emoji[j] = c.Emoji[j], c.Emoji[i]
	})
}

func (v *EmojiVariant) Banner(ctx context.Context) (Content, error) {
	caption := "👍👍👍👍👍👍👍\n🔜🔜🔜🔜🔜, 🤙🤙🤙🤙🤙🤙"
	card, err := v.api.Resolve(ctx, emojiBannerName)
	if err != nil || card == nil {
		return Content{Text: caption}, err
	}
	photo, err := cards.EncodeJPEG(card.Image)
	if err != nil {
		return Content{Text: caption}, err
	}
	return Content{Photo: photo, Caption: caption}, nil
}

func (v *EmojiVariant) Reveal(c *cards.Card, reveal int) (Content, error) {
	n := reveal
	if n > len(c.Emoji) {
		n = len(c.Emoji)
	}
	text := strings.Join(c.Emoji[:n], " ")
	return Content{Text: "Guess the archetype!\n\n" + text}, nil
}

func (v *EmojiVariant) Missed(c *cards.Card) Content {
	return Content{Text: fmt.Sprintf("L'archetipo era %s, nessuno ha indovinato!", c.Name)}
}

func (v *EmojiVariant) InitialReveal() int        { return emojiFirstReveal }
func (v *EmojiVariant) Advance(reveal int) int    { return reveal + 1 }
func (v *EmojiVariant) Exhausted(reveal int) bool { return reveal > emojiMaxReveals }

func (v *EmojiVariant) Score(reveal int) int { return 8 - reveal }

func (v *EmojiVariant) Match(guess string, c *cards.Card) bool {
	return MatchExact(guess, c.Name)
}
