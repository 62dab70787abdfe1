package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/pagination"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.CustomerOrder) error
	CreateSellerOrders(ctx context.Context, orders []models.SellerOrder) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	DeleteCartItems(ctx context.Context, customerID uuid.UUID, itemIDs []uuid.UUID) (int64, error)

	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error)
	FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error)
	FindSellerOrder(ctx context.Context, sellerOrderID uuid.UUID) (*models.SellerOrder, error)
	ListSellerOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SellerOrder, error)

	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (int64, error)
	MarkSellerOrdersPaid(ctx context.Context, orderID uuid.UUID) error
	CancelUnpaid(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error)
	CancelSellerOrders(ctx context.Context, orderID uuid.UUID) error
	UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus) error
	UpdateSellerOrderDeliveryStatus(ctx context.Context, sellerOrderID uuid.UUID, status enums.DeliveryStatus) error

	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*CustomerOrderList, error)
	RecentCustomerOrders(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CustomerOrder, error)
	CountCustomerOrders(ctx context.Context, customerID uuid.UUID, status *enums.DeliveryStatus) (int64, error)
	ListOrders(ctx context.Context, params pagination.Params) (*CustomerOrderList, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SellerOrderList, error)
	FindDueUnpaid(ctx context.Context, now time.Time, after *DueCursor, limit int) ([]DueOrder, error)
}
