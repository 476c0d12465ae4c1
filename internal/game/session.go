package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/rt2013G/hexa-bot/internal/cards"
)

type event interface{}

// tickEvent carries the timer generation that produced it, so ticks from a
// cancelled timer can be told apart from the live one.
type tickEvent struct {
	gen int
}

type guessEvent struct {
	guess Guess
}

type stopEvent struct{}

// session is the live state of one chat's round. All fields are owned by
// the session's actor goroutine; nothing outside the controller's event
// handlers may touch them.
type session struct {
	chatID    int64
	roundID   uuid.UUID
	startedAt time.Time
	variant   Variant

	scores map[int64]int
	// Display names captured from scoring messages, for the final summary.
	names   map[int64]string
	solved  []string
	missed  []string
	current *cards.Card
	reveal  int
	cleanup []MessageRef

	events chan event
	done   chan struct{}
	timer  *scheduler
	// timerGen is bumped on every timer restart; ticks carrying an older
	// generation are stale and dropped.
	timerGen int
	// finished marks the session terminated. Events already buffered behind
	// the terminating one are dropped instead of mutating a dead round.
	finished bool
}

func newSession(chatID int64, v Variant) *session {
	return &session{
		chatID:    chatID,
		roundID:   uuid.New(),
		startedAt: time.Now(),
		variant:   v,
		scores:    make(map[int64]int),
		names:     make(map[int64]string),
		reveal:    v.InitialReveal(),
		events:    make(chan event, 16),
		done:      make(chan struct{}),
	}
}

// send enqueues an event unless the session has already ended.
func (s *session) send(ev event) {
	select {
	case <-s.done:
	case s.events <- ev:
	}
}

// alreadySolved guards against a target reappearing within the same round.
func (s *session) alreadySolved(name string) bool {
	for _, solved := range s.solved {
		if solved == name {
			return true
		}
	}
	for _, missed := range s.missed {
		if missed == name {
			return true
		}
	}
	return false
}

func (s *session) track(ref MessageRef) {
	s.cleanup = append(s.cleanup, ref)
}
