package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/pagination"
)

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*CustomerOrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if filters.DeliveryStatus != nil && !filters.DeliveryStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status filter")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListCustomerOrders(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer orders")
	}
	return list, nil
}

func (s *service) CustomerDashboard(ctx context.Context, customerID uuid.UUID) (*Dashboard, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	recent, err := s.repo.RecentCustomerOrders(ctx, customerID, dashboardRecentOrders)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recent orders")
	}
	total, err := s.repo.CountCustomerOrders(ctx, customerID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	pendingStatus := enums.DeliveryStatusPending
	pending, err := s.repo.CountCustomerOrders(ctx, customerID, &pendingStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count pending orders")
	}
	cancelledStatus := enums.DeliveryStatusCancelled
	cancelled, err := s.repo.CountCustomerOrders(ctx, customerID, &cancelledStatus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count cancelled orders")
	}
	return &Dashboard{
		RecentOrders:    recent,
		TotalOrders:     total,
		PendingOrders:   pending,
		CancelledOrders: cancelled,
	}, nil
}

// GetCustomerOrder hides orders of other customers behind NotFound.
func (s *service) GetCustomerOrder(ctx context.Context, customerID, orderID uuid.UUID) (*models.CustomerOrder, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	order, err := s.GetAdminOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListAdminOrders(ctx context.Context, params pagination.Params) (*CustomerOrderList, error) {
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListOrders(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

func (s *service) GetAdminOrder(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderDetail(ctx, orderID)
	if err != nil {
		return nil, mapLookupError(err, "order not found", "load order")
	}
	return order, nil
}

func (s *service) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SellerOrderList, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	list, err := s.repo.ListSellerOrders(ctx, sellerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller orders")
	}
	return list, nil
}

func (s *service) GetSellerOrder(ctx context.Context, sellerID, sellerOrderID uuid.UUID) (*models.SellerOrder, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if sellerOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller order id required")
	}
	sub, err := s.repo.FindSellerOrder(ctx, sellerOrderID)
	if err != nil {
		return nil, mapLookupError(err, "seller order not found", "load seller order")
	}
	if sub.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller order not found")
	}
	return sub, nil
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
