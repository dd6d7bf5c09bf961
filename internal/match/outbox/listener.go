package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ListenerConfig tunes the LISTEN/NOTIFY relay.
type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int
}

// DefaultListenerConfig returns sensible relay defaults.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "match_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// Listener drains the match outbox: NOTIFY wakes it for fresh rows, a
// fallback ticker sweeps anything a lost notification left behind.
type Listener struct {
	repo      *Repository
	listener  *pq.Listener
	publisher Publisher
	cfg       ListenerConfig
}

// NewListener opens the LISTEN connection and binds the channel.
func NewListener(db *sql.DB, publisher Publisher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for outbox notifications")

	return &Listener{
		repo:      NewRepository(db),
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Start runs the relay loop until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("outbox listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was lost; pq reconnects
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnpublished(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unpublished events")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the LISTEN connection.
func (l *Listener) Stop() error {
	return l.listener.Close()
}

// handleNotification publishes the outbox row named in the notification
// payload.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid outbox ID in notification: %w", err)
	}

	event, err := l.repo.FetchByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}

	if err := l.publishWithRetry(ctx, *event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := l.repo.MarkPublished(ctx, id); err != nil {
		return err
	}

	log.Debug().Str("outbox_id", id.String()).Msg("published and marked outbox row")
	return nil
}

// processUnpublished sweeps rows whose notifications were lost.
func (l *Listener) processUnpublished(ctx context.Context) error {
	pending, err := l.repo.FetchUnpublished(ctx, l.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch unpublished outbox rows: %w", err)
	}

	for _, event := range pending {
		if err := l.publishWithRetry(ctx, event); err != nil {
			log.Error().Err(err).Str("outbox_id", event.ID.String()).Msg("failed to publish event")
			continue
		}
		if err := l.repo.MarkPublished(ctx, event.ID); err != nil {
			log.Error().Err(err).Str("outbox_id", event.ID.String()).Msg("failed to mark outbox row published")
		}
	}
	return nil
}

// publishWithRetry attempts a publish with linear retry delays.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	var lastErr error
	for attempt := 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := l.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := l.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("outbox_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}
		return nil
	}
	return lastErr
}
