package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// startJanitor launches the fire-and-forget cleanup job for a finished
// round. It deletes the queued messages front to back on a short cadence
// and cancels itself once the queue is empty.
func (c *Controller) startJanitor(ctx context.Context, chatID int64, roundID uuid.UUID, queue []MessageRef) {
	if len(queue) == 0 {
		return
	}
	logger := c.log.With().
		Int64("chat_id", chatID).
		Str("round_id", roundID.String()).
		Logger()

	go func() {
		timer := time.NewTimer(c.cleanupDelay)
		defer timer.Stop()
		for {
			<-timer.C
			queue = c.sweep(ctx, queue)
			if len(queue) == 0 {
				logger.Debug().Msg("cleanup finished")
				return
			}
			timer.Reset(c.cleanupInterval)
		}
	}()
}

// sweep deletes messages from the head of the queue. A transient failure
// ends the pass early so the same message is retried next time; a permanent
// failure drops the message for good.
func (c *Controller) sweep(ctx context.Context, queue []MessageRef) []MessageRef {
	for len(queue) > 0 {
		err := c.channel.Delete(ctx, queue[0])
		if errors.Is(err, ErrTransientDelivery) {
			return queue
		}
		if err != nil {
			c.log.Debug().Err(err).
				Int64("chat_id", queue[0].ChatID).
				Int("message_id", queue[0].MessageID).
				Msg("dropping undeletable message")
		}
		queue = queue[1:]
	}
	return queue
}
