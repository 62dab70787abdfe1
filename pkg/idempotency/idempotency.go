// Package idempotency de-duplicates externally delivered events such as
// Stripe webhooks.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/easyshop-backend/pkg/redis"
)

type Outcome int

const (
	// Claimed means the caller owns the event and must Complete or Release it.
	Claimed Outcome = iota
	// AlreadyDone means an earlier delivery finished successfully.
	AlreadyDone
	// InProgress means another worker holds the lease right now.
	InProgress
)

const (
	markerProcessing = "processing"
	markerDone       = "done"
)

// Guard leases an event id while it is handled and remembers it once done.
// Keys look like es:idempotency:evt:<consumer>:<event_id>.
type Guard struct {
	store     redis.IdempotencyStore
	lease     time.Duration
	retention time.Duration
}

// NewGuard builds a guard. lease bounds how long a crashed handler blocks
// redelivery; retention is how long finished ids are remembered.
func NewGuard(store redis.IdempotencyStore, lease, retention time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if lease <= 0 || retention < lease {
		return nil, errors.New("lease must be positive and no longer than retention")
	}
	return &Guard{store: store, lease: lease, retention: retention}, nil
}

func (g *Guard) Claim(ctx context.Context, consumer, eventID string) (Outcome, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return 0, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := g.store.SetNX(ctx, key, markerProcessing, g.lease)
		if err != nil {
			return 0, err
		}
		if ok {
			return Claimed, nil
		}
		marker, err := g.store.Get(ctx, key)
		if errors.Is(err, goredis.Nil) {
			// Lease expired between SETNX and GET.
			continue
		}
		if err != nil {
			return 0, err
		}
		if marker == markerDone {
			return AlreadyDone, nil
		}
		return InProgress, nil
	}
	return InProgress, nil
}

// Complete records the event as handled for the retention window.
func (g *Guard) Complete(ctx context.Context, consumer, eventID string) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, key, markerDone, g.retention)
}

// Release drops a claim so the next delivery is handled again.
func (g *Guard) Release(ctx context.Context, consumer, eventID string) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer, eventID string) (string, error) {
	consumer, eventID = strings.TrimSpace(consumer), strings.TrimSpace(eventID)
	if consumer == "" || eventID == "" {
		return "", errors.New("consumer and event id are required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
