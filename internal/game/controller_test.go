package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rt2013G/hexa-bot/internal/cards"
)

type fakeChannel struct {
	mu         sync.Mutex
	posts      []Content
	reacts     []Reaction
	deleted    []int
	deleteErrs map[int]error
	nextID     int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deleteErrs: make(map[int]error)}
}

func (f *fakeChannel) Post(_ context.Context, chatID int64, c Content) (MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.posts = append(f.posts, c)
	return MessageRef{ChatID: chatID, MessageID: f.nextID}, nil
}

func (f *fakeChannel) Delete(_ context.Context, ref MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.deleteErrs[ref.MessageID]; ok {
		// Fail once, then succeed on the retry.
		delete(f.deleteErrs, ref.MessageID)
		return err
	}
	f.deleted = append(f.deleted, ref.MessageID)
	return nil
}

func (f *fakeChannel) React(_ context.Context, _ MessageRef, r Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacts = append(f.reacts, r)
	return nil
}

func (f *fakeChannel) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

func (f *fakeChannel) lastPost() Content {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[len(f.posts)-1]
}

type fakeLedger struct {
	mu      sync.Mutex
	commits []map[int64]int
}

func (f *fakeLedger) Commit(_ context.Context, _ time.Time, scores map[int64]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[int64]int, len(scores))
	for k, v := range scores {
		copied[k] = v
	}
	f.commits = append(f.commits, copied)
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commits)
}

// fakeVariant mimics the emoji mechanics with a tiny reveal range.
type fakeVariant struct {
	mu      sync.Mutex
	names   []string
	nameIdx int
	targets map[string]*cards.Card
}

func newFakeVariant(names ...string) *fakeVariant {
	targets := make(map[string]*cards.Card, len(names))
	for _, n := range names {
		targets[n] = &cards.Card{Name: n, Desc: n}
	}
	return &fakeVariant{names: names, targets: targets}
}

func (v *fakeVariant) Name() string { return "fake" }

func (v *fakeVariant) RandomName() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	name := v.names[v.nameIdx%len(v.names)]
	v.nameIdx++
	return name, nil
}

func (v *fakeVariant) Resolve(_ context.Context, name string) (*cards.Card, error) {
	return v.targets[name], nil
}

func (v *fakeVariant) Prepare(_ *cards.Card) {}

func (v *fakeVariant) Banner(_ context.Context) (Content, error) {
	return Content{Text: "banner"}, nil
}

func (v *fakeVariant) Reveal(c *cards.Card, reveal int) (Content, error) {
	return Content{Text: fmt.Sprintf("reveal %d of %s", reveal, c.Name)}, nil
}

func (v *fakeVariant) Missed(c *cards.Card) Content {
	return Content{Text: "missed " + c.Name}
}

func (v *fakeVariant) InitialReveal() int        { return 1 }
func (v *fakeVariant) Advance(reveal int) int    { return reveal + 1 }
func (v *fakeVariant) Exhausted(reveal int) bool { return reveal > 3 }
func (v *fakeVariant) Score(reveal int) int      { return 10 - reveal }

func (v *fakeVariant) Match(guess string, c *cards.Card) bool {
	return MatchExact(guess, c.Name)
}

func newTestController(opts ...Option) (*Controller, *fakeChannel, *fakeLedger) {
	ch := newFakeChannel()
	ledger := &fakeLedger{}
	base := []Option{WithIntervals(time.Hour, time.Hour, time.Hour, time.Hour)}
	c := NewController(ch, ledger, zerolog.Nop(), append(base, opts...)...)
	return c, ch, ledger
}

func TestTickInstallsTargetAndPostsReveal(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)

	c.handleTick(context.Background(), s, s.timerGen)

	require.NotNil(t, s.current)
	require.Equal(t, "Alpha", s.current.Name)
	require.Equal(t, 2, s.reveal)
	require.Equal(t, "reveal 1 of Alpha", ch.lastPost().Text)
	require.Len(t, s.cleanup, 1)
}

func TestTickSkipsTargetsSeenThisRound(t *testing.T) {
	c, _, _ := newTestController()
	v := newFakeVariant("Alpha", "Beta")
	s := newSession(1, v)
	s.solved = append(s.solved, "Alpha")

	c.handleTick(context.Background(), s, s.timerGen)

	require.Equal(t, "Beta", s.current.Name)
}

func TestTickGivesUpWhenNothingResolves(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	v.targets = map[string]*cards.Card{} // lookup always comes back empty
	s := newSession(1, v)

	c.handleTick(context.Background(), s, s.timerGen)

	require.Nil(t, s.current)
	require.Equal(t, 0, ch.postCount())
}

func TestStaleTickFromReplacedTimerIsDropped(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	s.timerGen = 1 // the timer that produced gen 0 has been replaced

	c.handleTick(context.Background(), s, 0)

	require.Nil(t, s.current)
	require.Equal(t, 0, ch.postCount())

	// The live generation still advances the round.
	c.handleTick(context.Background(), s, 1)
	require.NotNil(t, s.current)
	require.Equal(t, 1, ch.postCount())
}

func TestMissedTargetDoesNotConsumeGameSlot(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	s.current = &cards.Card{Name: "Alpha"}
	s.reveal = 4 // past the last reveal, nobody guessed

	c.handleTick(context.Background(), s, s.timerGen)

	require.Equal(t, "missed Alpha", ch.lastPost().Text)
	require.Equal(t, []string{"Alpha"}, s.missed)
	require.Empty(t, s.solved)
	require.Nil(t, s.current)
	require.Equal(t, 1, s.reveal)
	require.NotNil(t, s.timer)
	s.timer.cancel()
}

func TestCorrectGuessScoresOnce(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	s.current = v.targets["Alpha"]
	s.reveal = 2

	guess := Guess{
		UserID:      7,
		DisplayName: "@player",
		Text:        "Alpha",
		Message:     MessageRef{ChatID: 1, MessageID: 100},
		ReplyToBot:  true,
	}
	c.handleGuess(context.Background(), s, guess)

	require.Equal(t, []string{"Alpha"}, s.solved)
	require.Equal(t, 8, s.scores[7])
	require.Equal(t, []Reaction{ReactionCorrect}, ch.reacts)
	require.Contains(t, ch.lastPost().Text, "è corretto")
	require.Nil(t, s.current)
	s.timer.cancel()

	// A second guess for the now-superseded target must not score again.
	c.handleGuess(context.Background(), s, guess)
	require.Equal(t, []string{"Alpha"}, s.solved)
	require.Equal(t, 8, s.scores[7])
	require.Equal(t, ReactionWrong, ch.reacts[len(ch.reacts)-1])
	s.timer.cancel()
}

func TestGuessEligibilityRules(t *testing.T) {
	c, ch, _ := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	s.current = v.targets["Alpha"]

	// Not a reply to the bot: ignored entirely.
	c.handleGuess(context.Background(), s, Guess{UserID: 7, Text: "Alpha", ReplyToBot: false})
	require.Empty(t, s.solved)
	require.Empty(t, s.cleanup)

	// Over the length cap: ignored entirely.
	c.handleGuess(context.Background(), s, Guess{UserID: 7, Text: strings.Repeat("a", MaxGuessLength+1), ReplyToBot: true})
	require.Empty(t, s.solved)
	require.Empty(t, s.cleanup)
	require.Equal(t, 0, ch.postCount())
}

func TestRoundEndsAfterGameLength(t *testing.T) {
	c, ch, ledger := newTestController(WithGameLength(2))
	v := newFakeVariant("Alpha", "Beta")
	s := newSession(1, v)
	c.sessions[1] = s
	s.solved = append(s.solved, "Beta")
	s.scores[9] = 5
	s.current = v.targets["Alpha"]
	s.reveal = 2

	c.handleGuess(context.Background(), s, Guess{
		UserID:      7,
		DisplayName: "@winner",
		Text:        "Alpha",
		Message:     MessageRef{ChatID: 1, MessageID: 100},
		ReplyToBot:  true,
	})

	require.Equal(t, 1, ledger.count())
	require.Equal(t, map[int64]int{7: 8, 9: 5}, ledger.commits[0])
	require.Contains(t, ch.lastPost().Text, "Classifica finale")
	require.False(t, c.Active(1))
	select {
	case <-s.done:
	default:
		t.Fatal("session should be closed after the round ends")
	}
}

func TestFinalGuessEndsRoundExactlyOnce(t *testing.T) {
	c, ch, ledger := newTestController(WithGameLength(1))
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	c.sessions[1] = s
	s.current = v.targets["Alpha"]
	s.reveal = 2

	guess := Guess{
		UserID:      7,
		DisplayName: "@player",
		Text:        "Alpha",
		Message:     MessageRef{ChatID: 1, MessageID: 100},
		ReplyToBot:  true,
	}
	c.handleGuess(context.Background(), s, guess)
	// A second correct guess was queued behind the round-ending one. It must
	// be dropped whole: no second scoring, no second commit, no second close.
	require.NotPanics(t, func() {
		c.handleGuess(context.Background(), s, guess)
	})

	require.Equal(t, 1, ledger.count())
	require.Equal(t, []string{"Alpha"}, s.solved)
	require.Equal(t, 10-2, s.scores[7])
	require.Equal(t, []Reaction{ReactionCorrect}, ch.reacts)
	require.False(t, c.Active(1))
}

func TestBufferedGuessBehindRoundEndIsDropped(t *testing.T) {
	c, _, ledger := newTestController(WithGameLength(1))
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	c.sessions[1] = s
	s.current = v.targets["Alpha"]
	s.reveal = 2

	guess := Guess{
		UserID:     7,
		Text:       "Alpha",
		Message:    MessageRef{ChatID: 1, MessageID: 100},
		ReplyToBot: true,
	}
	// Two correct guesses already sit in the mailbox when the actor wakes up.
	s.events <- guessEvent{guess: guess}
	s.events <- guessEvent{guess: guess}

	// The actor loop must terminate after the first guess ends the round,
	// whether or not it dequeues the second one on the way out.
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(context.Background(), s)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("actor loop did not terminate after the round ended")
	}

	require.Equal(t, 1, ledger.count())
	require.Equal(t, []string{"Alpha"}, s.solved)
	require.False(t, c.Active(1))
}

func TestStopPersistsNothing(t *testing.T) {
	c, ch, ledger := newTestController()
	v := newFakeVariant("Alpha")
	s := newSession(1, v)
	c.sessions[1] = s
	s.scores[7] = 12

	c.handleStop(context.Background(), s)

	require.Equal(t, 0, ledger.count())
	require.Equal(t, "Gioco terminato!", ch.lastPost().Text)
	require.False(t, c.Active(1))

	// A stop buffered behind the first one is a no-op.
	c.handleStop(context.Background(), s)
	require.Equal(t, "Gioco terminato!", ch.lastPost().Text)
}

func TestSweepRetriesTransientAndDropsPermanent(t *testing.T) {
	c, ch, _ := newTestController()
	queue := []MessageRef{
		{ChatID: 1, MessageID: 10},
		{ChatID: 1, MessageID: 11},
		{ChatID: 1, MessageID: 12},
	}
	ch.deleteErrs[10] = fmt.Errorf("%w: timeout", ErrTransientDelivery)
	ch.deleteErrs[11] = fmt.Errorf("%w: forbidden", ErrPermanentDelivery)

	// First pass stops at the transient failure, keeping order.
	queue = c.sweep(context.Background(), queue)
	require.Len(t, queue, 3)
	require.Equal(t, 10, queue[0].MessageID)

	// Second pass deletes 10, drops 11 without retrying, deletes 12.
	queue = c.sweep(context.Background(), queue)
	require.Empty(t, queue)
	require.Equal(t, []int{10, 12}, ch.deleted)
}

func TestFormatScores(t *testing.T) {
	scores := map[int64]int{1: 5, 2: 9, 3: 5}
	names := map[int64]string{1: "@uno", 2: "@due"}

	got := formatScores(scores, names)

	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	require.Equal(t, "🥇 @due, punteggio: 9", lines[0])
	require.Equal(t, "🥈 @uno, punteggio: 5", lines[1])
	require.Equal(t, "🥉 utente 3, punteggio: 5", lines[2])
}

func TestRoundLifecycle(t *testing.T) {
	ch := newFakeChannel()
	ledger := &fakeLedger{}
	c := NewController(ch, ledger, zerolog.Nop(),
		WithIntervals(20*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond, 5*time.Millisecond),
		WithGameLength(1),
	)
	v := newFakeVariant("Alpha")
	ctx := context.Background()

	require.True(t, c.Start(ctx, 1, v))
	require.False(t, c.Start(ctx, 1, v), "at most one live session per chat")

	// Banner plus at least one reveal.
	require.Eventually(t, func() bool { return ch.postCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	c.HandleGuess(1, Guess{
		UserID:      7,
		DisplayName: "@player",
		Text:        "Alpha",
		Message:     MessageRef{ChatID: 1, MessageID: 999},
		ReplyToBot:  true,
	})

	require.Eventually(t, func() bool { return !c.Active(1) }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, ledger.count())

	// The janitor eventually clears the round's message trail.
	require.Eventually(t, func() bool {
		ch.mu.Lock()
		defer ch.mu.Unlock()
		return len(ch.deleted) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopLifecycle(t *testing.T) {
	ch := newFakeChannel()
	ledger := &fakeLedger{}
	c := NewController(ch, ledger, zerolog.Nop(),
		WithIntervals(20*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond, 5*time.Millisecond),
	)
	v := newFakeVariant("Alpha")
	ctx := context.Background()

	require.True(t, c.Start(ctx, 5, v))
	require.Eventually(t, func() bool { return ch.postCount() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.True(t, c.Stop(5))
	require.Eventually(t, func() bool { return !c.Active(5) }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 0, ledger.count())
	require.False(t, c.Stop(5), "stopping a stopped round is a no-op")
}
