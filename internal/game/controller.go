package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultGameLength = 10

	defaultTickInterval    = 15 * time.Second
	defaultRestartDelay    = 10 * time.Second
	defaultCleanupInterval = 5 * time.Second
	defaultCleanupDelay    = time.Second

	// Bounded replacement for the original retry-until-success target draw:
	// a tick gives up after this many attempts and the next tick tries again.
	maxResolveAttempts = 10
)

// Controller owns the chat -> session registry and is the only component
// allowed to mutate round state. Each session runs its own actor goroutine,
// so scheduler ticks and guesses for one chat never interleave.
type Controller struct {
	channel Channel
	ledger  Ledger
	log     zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session

	gameLength      int
	tickInterval    time.Duration
	restartDelay    time.Duration
	cleanupInterval time.Duration
	cleanupDelay    time.Duration
}

type Option func(*Controller)

// WithGameLength overrides how many scored targets end a round.
func WithGameLength(n int) Option {
	return func(c *Controller) { c.gameLength = n }
}

// WithIntervals overrides the timer cadence.
func WithIntervals(tick, restart, cleanup, cleanupFirst time.Duration) Option {
	return func(c *Controller) {
		c.tickInterval = tick
		c.restartDelay = restart
		c.cleanupInterval = cleanup
		c.cleanupDelay = cleanupFirst
	}
}

func NewController(channel Channel, ledger Ledger, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		channel:         channel,
		ledger:          ledger,
		log:             logger,
		sessions:        make(map[int64]*session),
		gameLength:      defaultGameLength,
		tickInterval:    defaultTickInterval,
		restartDelay:    defaultRestartDelay,
		cleanupInterval: defaultCleanupInterval,
		cleanupDelay:    defaultCleanupDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a round in the chat. It is a silent no-op when a session
// already exists, so at most one round runs per chat. The context outlives
// the call: it covers every outgoing request the round makes.
func (c *Controller) Start(ctx context.Context, chatID int64, v Variant) bool {
	c.mu.Lock()
	if _, exists := c.sessions[chatID]; exists {
		c.mu.Unlock()
		return false
	}
	s := newSession(chatID, v)
	c.sessions[chatID] = s
	c.mu.Unlock()

	c.log.Info().
		Int64("chat_id", chatID).
		Str("round_id", s.roundID.String()).
		Str("variant", v.Name()).
		Msg("round started")
	go c.run(ctx, s)
	return true
}

// Active reports whether a round is currently running in the chat.
func (c *Controller) Active(chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[chatID]
	return ok
}

// HandleGuess routes an incoming message to the chat's session, if any.
func (c *Controller) HandleGuess(chatID int64, g Guess) {
	if s := c.lookup(chatID); s != nil {
		s.send(guessEvent{guess: g})
	}
}

// Stop aborts the chat's round without committing any scores. Returns false
// when no round was running.
func (c *Controller) Stop(chatID int64) bool {
	s := c.lookup(chatID)
	if s == nil {
		return false
	}
	s.send(stopEvent{})
	return true
}

func (c *Controller) lookup(chatID int64) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[chatID]
}

// run is the session actor. It posts the banner, starts the reveal timer
// and then serializes every mutation of the session state. Events buffered
// behind the one that ended the round are dropped by the handlers.
func (c *Controller) run(ctx context.Context, s *session) {
	c.postBanner(ctx, s)
	s.timer = c.startTimer(s)

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case tickEvent:
				c.handleTick(ctx, s, ev.gen)
			case guessEvent:
				c.handleGuess(ctx, s, ev.guess)
			case stopEvent:
				c.handleStop(ctx, s)
			}
		}
	}
}

func (c *Controller) postBanner(ctx context.Context, s *session) {
	banner, err := s.variant.Banner(ctx)
	if err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to build round banner")
	}
	if _, err := c.channel.Post(ctx, s.chatID, banner); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to post round banner")
	}
}

// handleTick advances the round: installs a fresh target when none is set,
// declares a miss once the target has been fully revealed, or posts the
// next incremental reveal. Ticks from a superseded timer are dropped.
func (c *Controller) handleTick(ctx context.Context, s *session, gen int) {
	if s.finished || gen != s.timerGen {
		return
	}
	if s.current == nil {
		if !c.installTarget(ctx, s) {
			return
		}
	}

	if s.variant.Exhausted(s.reveal) {
		c.missTarget(ctx, s)
		return
	}

	content, err := s.variant.Reveal(s.current, s.reveal)
	if err != nil {
		c.log.Error().Err(err).
			Int64("chat_id", s.chatID).
			Str("round_id", s.roundID.String()).
			Msg("failed to build reveal")
		return
	}
	ref, err := c.channel.Post(ctx, s.chatID, content)
	if err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to post reveal")
		return
	}
	s.track(ref)
	s.reveal = s.variant.Advance(s.reveal)
}

// installTarget draws random names until one resolves and has not been seen
// this round. Attempts are bounded; on exhaustion the next tick retries.
func (c *Controller) installTarget(ctx context.Context, s *session) bool {
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		name, err := s.variant.RandomName()
		if err != nil {
			c.log.Error().Err(err).Int64("chat_id", s.chatID).Msg("failed to draw a target name")
			return false
		}
		if s.alreadySolved(name) {
			continue
		}
		card, err := s.variant.Resolve(ctx, name)
		if err != nil {
			c.log.Warn().Err(err).Str("target", name).Msg("target lookup failed")
			continue
		}
		if card == nil || s.alreadySolved(card.Name) {
			continue
		}
		s.variant.Prepare(card)
		s.current = card
		s.reveal = s.variant.InitialReveal()
		return true
	}
	c.log.Warn().
		Int64("chat_id", s.chatID).
		Str("round_id", s.roundID.String()).
		Msg("no target resolved this tick")
	return false
}

// missTarget announces an unguessed target. Misses do not consume a slot of
// the game length; the round just rotates to a new target.
func (c *Controller) missTarget(ctx context.Context, s *session) {
	ref, err := c.channel.Post(ctx, s.chatID, s.variant.Missed(s.current))
	if err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to post missed target")
	} else {
		s.track(ref)
	}
	c.log.Info().
		Int64("chat_id", s.chatID).
		Str("round_id", s.roundID.String()).
		Str("target", s.current.Name).
		Msg("target missed")

	s.missed = append(s.missed, s.current.Name)
	s.current = nil
	s.reveal = s.variant.InitialReveal()
	c.restartTimer(s)
}

func (c *Controller) handleGuess(ctx context.Context, s *session, g Guess) {
	if s.finished {
		return
	}
	if !g.ReplyToBot {
		return
	}
	if len(g.Text) > MaxGuessLength {
		return
	}
	s.track(g.Message)
	if g.DisplayName != "" {
		s.names[g.UserID] = g.DisplayName
	}

	if s.current == nil || !s.variant.Match(g.Text, s.current) {
		if err := c.channel.React(ctx, g.Message, ReactionWrong); err != nil {
			c.log.Debug().Err(err).Int64("chat_id", s.chatID).Msg("failed to react to wrong guess")
		}
		return
	}

	points := s.variant.Score(s.reveal)
	target := s.current.Name
	s.solved = append(s.solved, target)
	s.scores[g.UserID] += points
	s.current = nil
	s.reveal = s.variant.InitialReveal()

	if err := c.channel.React(ctx, g.Message, ReactionCorrect); err != nil {
		c.log.Debug().Err(err).Int64("chat_id", s.chatID).Msg("failed to react to correct guess")
	}
	word := "punti"
	if points == 1 {
		word = "punto"
	}
	announcement := Content{
		Text:    fmt.Sprintf("\"%s\" è corretto! Ti sei aggiudicato %d %s!", target, points, word),
		ReplyTo: g.Message.MessageID,
	}
	if _, err := c.channel.Post(ctx, s.chatID, announcement); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to announce score")
	}
	c.log.Info().
		Int64("chat_id", s.chatID).
		Str("round_id", s.roundID.String()).
		Int64("user_id", g.UserID).
		Str("target", target).
		Int("points", points).
		Msg("target guessed")

	if len(s.solved) >= c.gameLength {
		c.endRound(ctx, s)
		return
	}

	c.restartTimer(s)
}

// endRound commits the scores, announces the final rankings and hands the
// message trail to the janitor.
func (c *Controller) endRound(ctx context.Context, s *session) {
	if err := c.ledger.Commit(ctx, s.startedAt, s.scores); err != nil {
		c.log.Error().Err(err).
			Int64("chat_id", s.chatID).
			Str("round_id", s.roundID.String()).
			Msg("failed to commit round scores")
	}
	text := "Il gioco è terminato! Classifica finale:\n" + formatScores(s.scores, s.names)
	if _, err := c.channel.Post(ctx, s.chatID, Content{Text: text}); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to announce final rankings")
	}
	c.startJanitor(ctx, s.chatID, s.roundID, s.cleanup)
	c.finish(s)
	c.log.Info().
		Int64("chat_id", s.chatID).
		Str("round_id", s.roundID.String()).
		Int("solved", len(s.solved)).
		Int("missed", len(s.missed)).
		Msg("round finished")
}

// handleStop aborts the round. No scores are persisted for an aborted round.
func (c *Controller) handleStop(ctx context.Context, s *session) {
	if s.finished {
		return
	}
	if _, err := c.channel.Post(ctx, s.chatID, Content{Text: "Gioco terminato!"}); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", s.chatID).Msg("failed to announce stop")
	}
	c.startJanitor(ctx, s.chatID, s.roundID, s.cleanup)
	c.finish(s)
	c.log.Info().
		Int64("chat_id", s.chatID).
		Str("round_id", s.roundID.String()).
		Msg("round stopped")
}

// finish terminates the session exactly once. The finished flag makes any
// event still buffered behind the terminating one a no-op.
func (c *Controller) finish(s *session) {
	if s.finished {
		return
	}
	s.finished = true
	s.current = nil
	if s.timer != nil {
		s.timer.cancel()
	}
	close(s.done)
	c.mu.Lock()
	delete(c.sessions, s.chatID)
	c.mu.Unlock()
}

func (c *Controller) startTimer(s *session) *scheduler {
	gen := s.timerGen
	return newScheduler(c.restartDelay, c.tickInterval, func() {
		s.send(tickEvent{gen: gen})
	})
}

// restartTimer replaces the reveal timer. Bumping the generation invalidates
// any tick the old timer managed to enqueue before its cancellation landed.
func (c *Controller) restartTimer(s *session) {
	if s.timer != nil {
		s.timer.cancel()
	}
	s.timerGen++
	s.timer = c.startTimer(s)
}

// formatScores renders scores in descending order, ties broken by user id,
// with medals for the top three.
func formatScores(scores map[int64]int, names map[int64]string) string {
	type entry struct {
		userID int64
		score  int
	}
	entries := make([]entry, 0, len(scores))
	for userID, score := range scores {
		entries = append(entries, entry{userID: userID, score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].userID < entries[j].userID
	})

	medals := []string{"🥇", "🥈", "🥉"}
	var b strings.Builder
	for i, e := range entries {
		name := names[e.userID]
		if name == "" {
			name = fmt.Sprintf("utente %d", e.userID)
		}
		medal := ""
		if i < len(medals) {
			medal = medals[i] + " "
		}
		fmt.Fprintf(&b, "%s%s, punteggio: %d\n", medal, name, e.score)
	}
	return b.String()
}
