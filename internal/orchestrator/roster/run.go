package roster

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tutorhub/internal/config"
	"tutorhub/internal/pgmq"
	"tutorhub/internal/service"

	"github.com/rs/zerolog"
)

// Queue is the pgmq surface the worker needs.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgID int64) error
	Send(ctx context.Context, queue string, payload []byte) error
}

// Worker drains the roster queue into cohort member rows.
type Worker struct {
	queue      Queue
	roster     service.RosterService
	logger     zerolog.Logger
	name       string
	dlq        string
	pollSec    int
	maxMsg     int
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewWorker(cfg *config.Config, queue Queue, roster service.RosterService, logger zerolog.Logger) *Worker {
	// Every message gets at least one attempt.
	maxRetries := cfg.RosterMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Worker{
		queue:      queue,
		roster:     roster,
		logger:     logger.With().Str("orchestrator", "roster").Logger(),
		name:       cfg.RosterQueueName,
		dlq:        cfg.RosterDeadLetterQueueName,
		pollSec:    cfg.RosterPollTimeoutSec,
		maxMsg:     cfg.RosterPollMaxMsg,
		maxRetries: maxRetries,
		backoff:    time.Duration(cfg.RosterBackoffInitialSec) * time.Second,
		maxBackoff: time.Duration(cfg.RosterBackoffMaxSec) * time.Second,
		sleep:      sleepContext,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", w.name).Str("dlq", w.dlq).Msg("Starting roster orchestrator")
	for {
		if ctx.Err() != nil {
			w.logger.Info().Msg("Shutting down roster orchestrator")
			return nil
		}
		// Keep messages invisible long enough to cover every retry.
		visibility := int(w.maxBackoff.Seconds())*w.maxRetries + w.pollSec
		msgs, err := w.queue.ReadWithPoll(ctx, w.name, visibility, w.maxMsg, w.pollSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error().Err(err).Msg("Error reading roster queue")
			_ = w.sleep(ctx, time.Second)
			continue
		}
		for _, msg := range msgs {
			w.Process(ctx, msg)
		}
	}
}

// Process registers one message, retrying transient failures with
// exponential backoff. The message is always removed from the queue; failures
// go to the dead-letter queue.
func (w *Worker) Process(ctx context.Context, msg *pgmq.Message) {
	log := w.logger.With().Int64("msg_id", msg.ID).Logger()

	var entry service.RosterEntry
	if err := json.Unmarshal(msg.Data, &entry); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal roster payload; moving to DLQ")
		w.deadLetter(ctx, msg)
		return
	}

	backoff := w.backoff
	var lastErr error
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		created, err := w.roster.Register(ctx, entry)
		if err == nil {
			log.Info().Str("cohort_id", entry.CohortID).Bool("created", created).Msg("Roster entry processed")
			w.ack(ctx, msg)
			return
		}
		lastErr = err
		if isPermanent(err) || attempt == w.maxRetries {
			break
		}
		log.Error().Err(err).Int("attempt", attempt).Msg("Roster registration failed, retrying")
		if err := w.sleep(ctx, backoff); err != nil {
			// Shutting down: leave the message for the next reader.
			return
		}
		backoff *= 2
		if backoff > w.maxBackoff {
			backoff = w.maxBackoff
		}
	}

	log.Warn().Err(lastErr).Str("cohort_id", entry.CohortID).Msg("Giving up on roster entry; moving to DLQ")
	w.deadLetter(ctx, msg)
}

func isPermanent(err error) bool {
	return errors.Is(err, service.ErrInvalidRoster) || errors.Is(err, service.ErrCohortNotFound)
}

func (w *Worker) deadLetter(ctx context.Context, msg *pgmq.Message) {
	if err := w.queue.Send(ctx, w.dlq, msg.Data); err != nil {
		// Keep the original so it is redelivered after the visibility timeout.
		w.logger.Error().Err(err).Str("dlq", w.dlq).Msg("Failed to send message to dead-letter queue")
		return
	}
	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg *pgmq.Message) {
	if err := w.queue.Delete(ctx, w.name, msg.ID); err != nil {
		w.logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting roster message")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
