package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

const (
	defaultExpiryBatchSize = 100
	maxExpiryBatches       = 20
)

// OrderExpiryJobParams configure the unpaid order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    orderExpirer
	BatchSize int
}

type orderExpirer interface {
	DueUnpaidOrders(ctx context.Context, after *orders.DueCursor, limit int) ([]orders.DueOrder, error)
	ExpireIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// NewOrderExpiryJob builds the job that cancels orders whose payment window
// has elapsed. Each order is expired through the same compare-and-set used
// by the API, so a payment racing the sweep wins or loses cleanly.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &orderExpiryJob{logg: params.Logger, orders: params.Orders, batchSize: batch}, nil
}

type orderExpiryJob struct {
	logg      *logger.Logger
	orders    orderExpirer
	batchSize int
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	var (
		errs    error
		expired int
		checked int
		cursor  *orders.DueCursor
	)

	for batch := 0; batch < maxExpiryBatches; batch++ {
		due, err := j.orders.DueUnpaidOrders(ctx, cursor, j.batchSize)
		if err != nil {
			return multierr.Append(errs, fmt.Errorf("query due orders: %w", err))
		}

		for _, order := range due {
			checked++
			ok, err := j.orders.ExpireIfUnpaid(ctx, order.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
				continue
			}
			if ok {
				expired++
			}
		}
		if len(due) < j.batchSize {
			break
		}
		cursor = due[len(due)-1].Next()
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_expired": expired,
		"orders_checked": checked,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return errs
}
