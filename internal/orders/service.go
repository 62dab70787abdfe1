package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/internal/settlement"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/easyshop-backend/pkg/pagination"
)

const (
	defaultPaymentExpiry  = 15 * time.Second
	defaultWarehouseLabel = "Easy Main Warehouse"
	dashboardRecentOrders = 5
)

// ErrCancelledBeforePayment marks a confirmation that lost the race with
// expiry. The payment provider has already captured the money.
var ErrCancelledBeforePayment = errors.New("payment window elapsed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service covers order placement, the payment and delivery state machine, and
// the order read models.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	ExpireIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*ConfirmPaymentResult, error)
	RecordLatePayment(ctx context.Context, input LatePayment) error
	UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus) error
	UpdateSellerOrderStatus(ctx context.Context, sellerID, sellerOrderID uuid.UUID, status enums.DeliveryStatus) error
	DueUnpaidOrders(ctx context.Context, after *DueCursor, limit int) ([]DueOrder, error)

	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*CustomerOrderList, error)
	CustomerDashboard(ctx context.Context, customerID uuid.UUID) (*Dashboard, error)
	GetCustomerOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.CustomerOrder, error)
	ListAdminOrders(ctx context.Context, params pagination.Params) (*CustomerOrderList, error)
	GetAdminOrder(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SellerOrderList, error)
	GetSellerOrder(ctx context.Context, sellerID, sellerOrderID uuid.UUID) (*models.SellerOrder, error)
}

// Options tune placement and expiry.
type Options struct {
	PaymentExpiry  time.Duration
	WarehouseLabel string
	Logger         *logger.Logger
	Now            func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	settler   settlement.Settler
	expiry    time.Duration
	warehouse string
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, settler settlement.Settler, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if settler == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if opts.PaymentExpiry < 0 {
		return nil, fmt.Errorf("payment expiry must not be negative")
	}
	if opts.PaymentExpiry == 0 {
		opts.PaymentExpiry = defaultPaymentExpiry
	}
	if opts.WarehouseLabel == "" {
		opts.WarehouseLabel = defaultWarehouseLabel
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		settler:   settler,
		expiry:    opts.PaymentExpiry,
		warehouse: opts.WarehouseLabel,
		logg:      opts.Logger,
		now:       opts.Now,
	}, nil
}

// PlaceOrder writes the order, its sub-orders and line items, and drains the
// consumed cart lines in a single transaction.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	commission, err := validatePlaceOrder(input)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	dueAt := now.Add(s.expiry)
	order := &models.CustomerOrder{
		ID:             uuid.New(),
		CustomerID:     input.CustomerID,
		ShippingInfo:   input.ShippingInfo,
		Price:          input.TotalPrice.Add(input.ShippingFee),
		ShippingFee:    input.ShippingFee,
		Commission:     commission,
		PaymentStatus:  enums.PaymentStatusUnpaid,
		DeliveryStatus: enums.DeliveryStatusPending,
		PaymentDueAt:   &dueAt,
		CreatedAt:      now,
	}

	subOrders := make([]models.SellerOrder, 0, len(input.Groups))
	var lineItems []models.OrderLineItem
	var cartItemIDs []uuid.UUID
	for _, group := range input.Groups {
		sub := models.SellerOrder{
			ID:             uuid.New(),
			OrderID:        order.ID,
			SellerID:       group.SellerID,
			Price:          group.Price,
			PaymentStatus:  enums.PaymentStatusUnpaid,
			DeliveryStatus: enums.DeliveryStatusPending,
			ShippingInfo:   s.warehouse,
			CreatedAt:      now,
		}
		subOrders = append(subOrders, sub)
		for _, product := range group.Products {
			snapshot := product.Product
			snapshot.SellerID = group.SellerID
			lineItems = append(lineItems, models.OrderLineItem{
				OrderID:       order.ID,
				SellerOrderID: sub.ID,
				ProductID:     snapshot.ProductID,
				SellerID:      group.SellerID,
				Quantity:      product.Quantity,
				Snapshot:      snapshot,
				CreatedAt:     now,
			})
			cartItemIDs = append(cartItemIDs, product.CartItemID)
		}
	}
	cartItemIDs = uniqueIDs(cartItemIDs)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := repo.CreateSellerOrders(ctx, subOrders); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create seller orders")
		}
		if err := repo.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order line items")
		}
		deleted, err := repo.DeleteCartItems(ctx, input.CustomerID, cartItemIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drain cart")
		}
		if deleted != int64(len(cartItemIDs)) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		sellerOrderIDs := make([]uuid.UUID, 0, len(subOrders))
		for _, sub := range subOrders {
			sellerOrderIDs = append(sellerOrderIDs, sub.ID)
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateCustomerOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ID: input.CustomerID, Role: enums.ActorRoleCustomer.String()},
			Data: payloads.OrderPlacedEvent{
				OrderID:        order.ID,
				CustomerID:     input.CustomerID,
				SellerOrderIDs: sellerOrderIDs,
				Price:          order.Price,
				ShippingFee:    order.ShippingFee,
				PaymentDueAt:   dueAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "seller_orders", len(subOrders)), "order placed")
	}
	return &PlaceOrderResult{OrderID: order.ID, PaymentDueAt: dueAt}, nil
}

// ExpireIfUnpaid cancels an order that is still unpaid once its payment window
// has passed. It returns false when nothing changed.
func (s *service) ExpireIfUnpaid(ctx context.Context, orderID uuid.UUID) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	now := s.now().UTC()
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return mapLookupError(err, "order not found", "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}

		rows, err := repo.CancelUnpaid(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel unpaid order")
		}
		if rows == 0 {
			return nil
		}
		if err := repo.CancelSellerOrders(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel seller orders")
		}
		expired = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateCustomerOrder,
			AggregateID:   orderID,
			Data: payloads.OrderExpiredEvent{
				OrderID:    orderID,
				CustomerID: order.CustomerID,
				ExpiredAt:  now,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// ConfirmPayment moves the order from unpaid to paid exactly once and settles
// the wallets in the same transaction. Repeated calls are no-ops.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*ConfirmPaymentResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	result := &ConfirmPaymentResult{OrderID: orderID}
	now := s.now().UTC()
	var settled *settlement.Settlement
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return mapLookupError(err, "order not found", "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			result.AlreadyPaid = true
			return nil
		}
		if order.DeliveryStatus == enums.DeliveryStatusCancelled {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrCancelledBeforePayment, "order was cancelled before payment")
		}

		subOrders, err := repo.ListSellerOrdersByOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller orders")
		}
		if err := checkReconciliation(order, subOrders); err != nil {
			return err
		}

		rows, err := repo.MarkPaid(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		if rows == 0 {
			result.AlreadyPaid = true
			return nil
		}
		if err := repo.MarkSellerOrdersPaid(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark seller orders paid")
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
		for i := range subOrders {
			subOrders[i].PaymentStatus = enums.PaymentStatusPaid
			subOrders[i].DeliveryStatus = enums.DeliveryStatusPending
		}
		settled, err = s.settler.Settle(ctx, tx, settlement.SettleInput{Order: order, SubOrders: subOrders, At: now})
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateCustomerOrder,
			AggregateID:   orderID,
			Data: payloads.OrderPaidEvent{
				OrderID:    orderID,
				CustomerID: order.CustomerID,
				Price:      order.Price,
				PaidAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyPaid {
		return result, nil
	}
	s.settler.Observe(ctx, settled)
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "order payment confirmed")
	}
	return result, nil
}

// RecordLatePayment stores a payment that arrived after the order expired so
// it can be refunded or reinstated by hand. The order itself is not touched.
func (s *service) RecordLatePayment(ctx context.Context, input LatePayment) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	now := s.now().UTC()
	recorded := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLookupError(err, "order not found", "load order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return nil
		}
		if order.DeliveryStatus != enums.DeliveryStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is still awaiting payment")
		}
		recorded = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLatePaymentReceived,
			AggregateType: enums.AggregateCustomerOrder,
			AggregateID:   input.OrderID,
			Data: payloads.LatePaymentReceivedEvent{
				OrderID:         input.OrderID,
				CustomerID:      order.CustomerID,
				PaymentIntentID: input.PaymentIntentID,
				AmountCents:     input.AmountCents,
				Currency:        input.Currency,
				ReceivedAt:      now,
			},
		})
	})
	if err != nil {
		return err
	}

	if recorded && s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, input.OrderID.String()), map[string]any{
			"payment_intent_id": input.PaymentIntentID,
			"amount_cents":      input.AmountCents,
		})
		s.logg.Warn(logCtx, "payment received for cancelled order")
	}
	return nil
}

// UpdateDeliveryStatus is the admin override. Any known status may follow any
// other.
func (s *service) UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery status %q", status))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return mapLookupError(err, "order not found", "load order")
		}
		if order.DeliveryStatus == status {
			return nil
		}
		if err := repo.UpdateDeliveryStatus(ctx, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update delivery status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateCustomerOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{Role: enums.ActorRoleAdmin.String()},
			Data: payloads.OrderStatusChangedEvent{
				OrderID: orderID,
				From:    order.DeliveryStatus,
				To:      status,
			},
		})
	})
}

// UpdateSellerOrderStatus lets a seller move its own sub-order.
func (s *service) UpdateSellerOrderStatus(ctx context.Context, sellerID, sellerOrderID uuid.UUID, status enums.DeliveryStatus) error {
	if sellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if sellerOrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "seller order id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery status %q", status))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		sub, err := repo.FindSellerOrder(ctx, sellerOrderID)
		if err != nil {
			return mapLookupError(err, "seller order not found", "load seller order")
		}
		if sub.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
		}
		if sub.DeliveryStatus == status {
			return nil
		}
		if err := repo.UpdateSellerOrderDeliveryStatus(ctx, sellerOrderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update seller order status")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerOrderStatusChange,
			AggregateType: enums.AggregateSellerOrder,
			AggregateID:   sellerOrderID,
			Actor:         &outbox.ActorRef{ID: sellerID, Role: enums.ActorRoleSeller.String()},
			Data: payloads.SellerOrderStatusChangedEvent{
				SellerOrderID: sellerOrderID,
				OrderID:       sub.OrderID,
				SellerID:      sellerID,
				From:          sub.DeliveryStatus,
				To:            status,
			},
		})
	})
}

// DueUnpaidOrders lists unpaid pending orders whose payment window closed,
// starting after the cursor when one is given.
func (s *service) DueUnpaidOrders(ctx context.Context, after *DueCursor, limit int) ([]DueOrder, error) {
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}
	due, err := s.repo.FindDueUnpaid(ctx, s.now().UTC(), after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find due unpaid orders")
	}
	return due, nil
}

func validatePlaceOrder(input PlaceOrderInput) (decimal.Decimal, error) {
	if input.CustomerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if len(input.Groups) == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if input.TotalPrice.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total price must not be negative")
	}
	if input.ShippingFee.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}

	groupTotal := decimal.Zero
	sellers := make(map[uuid.UUID]struct{}, len(input.Groups))
	for _, group := range input.Groups {
		if group.SellerID == uuid.Nil {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller id required for every group")
		}
		if _, dup := sellers[group.SellerID]; dup {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller appears in more than one group")
		}
		sellers[group.SellerID] = struct{}{}
		if len(group.Products) == 0 {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller group has no products")
		}
		if group.Price.IsNegative() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller group price must not be negative")
		}
		for _, product := range group.Products {
			if product.CartItemID == uuid.Nil {
				return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cart item id required")
			}
			if product.Product.ProductID == uuid.Nil {
				return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
			}
			if product.Quantity < 1 {
				return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
			}
		}
		groupTotal = groupTotal.Add(group.Price)
	}
	if groupTotal.GreaterThan(input.TotalPrice) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller subtotals exceed the order total")
	}
	return input.TotalPrice.Sub(groupTotal), nil
}

// checkReconciliation asserts sum(sub.price) + commission + shipping == price.
func checkReconciliation(order *models.CustomerOrder, subOrders []models.SellerOrder) error {
	if len(subOrders) == 0 {
		return pkgerrors.New(pkgerrors.CodeConsistency, "order has no seller orders")
	}
	if order.Commission.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeConsistency, "order commission is negative")
	}
	sum := decimal.Zero
	for _, sub := range subOrders {
		sum = sum.Add(sub.Price)
	}
	expected := sum.Add(order.Commission).Add(order.ShippingFee)
	if !expected.Equal(order.Price) {
		return pkgerrors.New(pkgerrors.CodeConsistency, "seller orders do not reconcile with the order total").WithDetails(map[string]any{
			"order_price":      order.Price.String(),
			"seller_total":     sum.String(),
			"commission":       order.Commission.String(),
			"shipping_fee":     order.ShippingFee.String(),
			"seller_order_cnt": len(subOrders),
		})
	}
	return nil
}

func mapLookupError(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
