package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onmission/matchd/internal/store"
)

// Applier decodes change feed messages and applies them to the local store.
// Decode failures are counted and skipped; store failures are returned so
// the client disconnects and replays after reconnecting.
type Applier struct {
	store   store.Store
	metrics *Metrics
	logger  *slog.Logger
}

// NewApplier creates an Applier writing to the given store.
func NewApplier(s store.Store, metrics *Metrics, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{store: s, metrics: metrics, logger: logger}
}

// Handle is the MessageHandler entry point wired into the Client.
func (a *Applier) Handle(messageType int, payload []byte) error {
	start := time.Now()

	event, err := DecodeEvent(payload)
	if err != nil {
		// A malformed event is not worth a disconnect; log and move on.
		a.logger.Warn("skipping undecodable event",
			slog.String("error", err.Error()),
			slog.Int("message_type", messageType))
		if a.metrics != nil {
			a.metrics.IncEventErrors()
		}
		return nil
	}

	if err := a.Apply(context.Background(), event); err != nil {
		if a.metrics != nil {
			a.metrics.IncEventErrors()
		}
		return err
	}

	if a.metrics != nil {
		a.metrics.IncEventsProcessed(event.Kind, event.Op)
		a.metrics.ObserveApplyLatency(time.Since(start).Seconds())
	}
	return nil
}

// Apply writes a single validated event to the store.
func (a *Applier) Apply(ctx context.Context, event *ChangeEvent) error {
	switch event.Kind {
	case KindProfile:
		if event.Op == OpDelete {
			err := a.store.DeleteProfile(ctx, event.EntityID())
			if err != nil && !errors.Is(err, store.ErrProfileNotFound) {
				return fmt.Errorf("delete profile %s: %w", event.EntityID(), err)
			}
			return nil
		}
		if err := a.store.UpsertProfile(ctx, event.Profile); err != nil {
			return fmt.Errorf("upsert profile %s: %w", event.Profile.ID, err)
		}
		return nil

	case KindAssignment:
		if event.Op == OpDelete {
			err := a.store.DeleteAssignment(ctx, event.EntityID())
			if err != nil && !errors.Is(err, store.ErrAssignmentNotFound) {
				return fmt.Errorf("delete assignment %s: %w", event.EntityID(), err)
			}
			return nil
		}
		if err := a.store.UpsertAssignment(ctx, event.Assignment); err != nil {
			return fmt.Errorf("upsert assignment %s: %w", event.Assignment.ID, err)
		}
		return nil
	}

	// DecodeEvent rejects unknown kinds; this is unreachable for decoded events.
	return fmt.Errorf("%w: %q", ErrUnknownKind, event.Kind)
}
