// Package payments creates Stripe payment intents for customer orders and
// turns Stripe webhook events into order confirmations.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/pkg/checkout"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	pkgstripe "github.com/angelmondragon/easyshop-backend/pkg/stripe"
)

// IntentClient creates payment intents.
type IntentClient interface {
	CreatePaymentIntent(ctx context.Context, input pkgstripe.PaymentIntentInput) (*pkgstripe.PaymentIntent, error)
}

type orderService interface {
	GetCustomerOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.CustomerOrder, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*orders.ConfirmPaymentResult, error)
	RecordLatePayment(ctx context.Context, input orders.LatePayment) error
}

// Service exposes payment intent creation and webhook handling.
type Service interface {
	CreatePaymentIntent(ctx context.Context, customerID, orderID uuid.UUID) (string, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type Options struct {
	Currency string
	Logger   *logger.Logger
}

type service struct {
	orders  orderService
	intents IntentClient
	opts    Options
}

func NewService(orderSvc orderService, intents IntentClient, opts Options) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if intents == nil {
		return nil, fmt.Errorf("payment intent client required")
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &service{orders: orderSvc, intents: intents, opts: opts}, nil
}

// CreatePaymentIntent charges the full order price and returns the client
// secret the storefront hands to Stripe.js.
func (s *service) CreatePaymentIntent(ctx context.Context, customerID, orderID uuid.UUID) (string, error) {
	order, err := s.orders.GetCustomerOrder(ctx, customerID, orderID)
	if err != nil {
		return "", err
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.DeliveryStatus == enums.DeliveryStatusCancelled {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled")
	}

	amount := checkout.ToMinorUnits(order.Price)
	if amount <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	intent, err := s.intents.CreatePaymentIntent(ctx, pkgstripe.PaymentIntentInput{
		AmountCents: amount,
		Currency:    s.opts.Currency,
		OrderID:     order.ID.String(),
	})
	if err != nil {
		if s.opts.Logger != nil {
			s.opts.Logger.Error(s.opts.Logger.WithOrderID(ctx, order.ID.String()), "create payment intent failed", err)
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return intent.ClientSecret, nil
}

// HandleEvent confirms the order behind a succeeded payment intent. A payment
// for an order that already expired is recorded and acknowledged. Other event
// types are acknowledged and ignored.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		if s.opts.Logger != nil {
			s.opts.Logger.Debug(s.opts.Logger.WithField(ctx, "event_type", string(event.Type)), "stripe event ignored")
		}
		return nil
	}
	if event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event has no data")
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	rawOrderID := strings.TrimSpace(intent.Metadata[pkgstripe.MetadataOrderID])
	orderID, err := uuid.Parse(rawOrderID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent missing order id").WithDetails(map[string]any{
			"paymentIntentId": intent.ID,
		})
	}

	result, err := s.orders.ConfirmPayment(ctx, orderID)
	if errors.Is(err, orders.ErrCancelledBeforePayment) {
		// retrying cannot succeed; record the capture and ack
		return s.orders.RecordLatePayment(ctx, orders.LatePayment{
			OrderID:         orderID,
			PaymentIntentID: intent.ID,
			AmountCents:     intent.Amount,
			Currency:        string(intent.Currency),
		})
	}
	if err != nil {
		return err
	}
	if s.opts.Logger != nil {
		logCtx := s.opts.Logger.WithOrderID(ctx, orderID.String())
		logCtx = s.opts.Logger.WithFields(logCtx, map[string]any{
			"payment_intent_id": intent.ID,
			"already_paid":      result.AlreadyPaid,
		})
		s.opts.Logger.Info(logCtx, "payment confirmed from webhook")
	}
	return nil
}
