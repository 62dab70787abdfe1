package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

type fakeExpirer struct {
	due      []orders.DueOrder
	failing  map[uuid.UUID]bool
	paid     map[uuid.UUID]bool
	expired  []uuid.UUID
	queryErr error
}

// addDue appends n orders due one second apart and returns their ids.
func (f *fakeExpirer) addDue(n int) []uuid.UUID {
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		order := orders.DueOrder{ID: uuid.New(), PaymentDueAt: base.Add(time.Duration(len(f.due)) * time.Second)}
		f.due = append(f.due, order)
		ids = append(ids, order.ID)
	}
	return ids
}

func (f *fakeExpirer) DueUnpaidOrders(_ context.Context, after *orders.DueCursor, limit int) ([]orders.DueOrder, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []orders.DueOrder
	for _, order := range f.due {
		if after != nil && !order.PaymentDueAt.After(after.DueAt) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeExpirer) ExpireIfUnpaid(_ context.Context, id uuid.UUID) (bool, error) {
	if f.failing[id] {
		return false, errors.New("db down")
	}
	f.removeDue(id)
	if f.paid[id] {
		return false, nil
	}
	f.expired = append(f.expired, id)
	return true, nil
}

func (f *fakeExpirer) removeDue(id uuid.UUID) {
	for i, candidate := range f.due {
		if candidate.ID == id {
			f.due = append(f.due[:i], f.due[i+1:]...)
			return
		}
	}
}

func newExpiryJob(t *testing.T, expirer orderExpirer, batch int) Job {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Orders:    expirer,
		BatchSize: batch,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	return job
}

func TestOrderExpiryJobDrainsInBatches(t *testing.T) {
	fake := &fakeExpirer{}
	paid := fake.addDue(5)[2]
	fake.paid = map[uuid.UUID]bool{paid: true}

	if err := newExpiryJob(t, fake, 2).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.expired) != 4 {
		t.Fatalf("expected 4 expired orders, got %d", len(fake.expired))
	}
	for _, id := range fake.expired {
		if id == paid {
			t.Fatal("paid order must not be reported as expired")
		}
	}
	if len(fake.due) != 0 {
		t.Fatalf("expected due list drained, %d left", len(fake.due))
	}
}

func TestOrderExpiryJobCombinesErrorsAndStops(t *testing.T) {
	fake := &fakeExpirer{}
	ids := fake.addDue(3)
	a, b, c := ids[0], ids[1], ids[2]
	fake.failing = map[uuid.UUID]bool{a: true, c: true}

	err := newExpiryJob(t, fake, 3).Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", got, err)
	}
	if len(fake.expired) != 1 || fake.expired[0] != b {
		t.Fatalf("expected only %s expired, got %v", b, fake.expired)
	}
}

func TestOrderExpiryJobFailingHeadDoesNotStallSweep(t *testing.T) {
	fake := &fakeExpirer{}
	ids := fake.addDue(5)
	fake.failing = map[uuid.UUID]bool{ids[0]: true, ids[1]: true}

	err := newExpiryJob(t, fake, 2).Run(context.Background())
	if got := len(multierr.Errors(err)); got != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", got, err)
	}
	if len(fake.expired) != 3 {
		t.Fatalf("expected the 3 orders behind the failing head to expire, got %v", fake.expired)
	}
	if len(fake.due) != 2 {
		t.Fatalf("expected only the failing orders left due, got %d", len(fake.due))
	}
}

func TestOrderExpiryJobQueryFailure(t *testing.T) {
	fake := &fakeExpirer{queryErr: errors.New("timeout")}
	if err := newExpiryJob(t, fake, 0).Run(context.Background()); err == nil {
		t.Fatal("expected query error")
	}
}
