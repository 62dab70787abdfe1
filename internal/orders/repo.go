package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.CustomerOrder) error {
	return r.db.WithContext(ctx).Omit("LineItems", "SellerOrders").Create(order).Error
}

func (r *repository) CreateSellerOrders(ctx context.Context, orders []models.SellerOrder) error {
	if len(orders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("LineItems").Create(&orders).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) DeleteCartItems(ctx context.Context, customerID uuid.UUID, itemIDs []uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("customer_id = ? AND id IN ?", customerID, itemIDs).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error) {
	var order models.CustomerOrder
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error) {
	var order models.CustomerOrder
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderDetail(ctx context.Context, orderID uuid.UUID) (*models.CustomerOrder, error) {
	var order models.CustomerOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("SellerOrders", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") }).
		Preload("SellerOrders.LineItems").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindSellerOrder(ctx context.Context, sellerOrderID uuid.UUID) (*models.SellerOrder, error) {
	var order models.SellerOrder
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", sellerOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListSellerOrdersByOrder(ctx context.Context, orderID uuid.UUID) ([]models.SellerOrder, error) {
	var orders []models.SellerOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// MarkPaid is the unpaid -> paid compare-and-set. Zero rows means another
// caller already confirmed the order or it was cancelled.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CustomerOrder{}).
		Where("id = ? AND payment_status = ? AND delivery_status <> ?", orderID, enums.PaymentStatusUnpaid, enums.DeliveryStatusCancelled).
		Updates(map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"paid_at":        paidAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkSellerOrdersPaid(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"payment_status":  enums.PaymentStatusPaid,
			"delivery_status": enums.DeliveryStatusPending,
		}).Error
}

func (r *repository) CancelUnpaid(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CustomerOrder{}).
		Where("id = ? AND payment_status = ? AND delivery_status = ?", orderID, enums.PaymentStatusUnpaid, enums.DeliveryStatusPending).
		Where("payment_due_at IS NULL OR payment_due_at <= ?", now).
		Update("delivery_status", enums.DeliveryStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *repository) CancelSellerOrders(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerOrder{}).
		Where("order_id = ?", orderID).
		Update("delivery_status", enums.DeliveryStatusCancelled).Error
}

func (r *repository) UpdateDeliveryStatus(ctx context.Context, orderID uuid.UUID, status enums.DeliveryStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CustomerOrder{}).
		Where("id = ?", orderID).
		Update("delivery_status", status).Error
}

func (r *repository) UpdateSellerOrderDeliveryStatus(ctx context.Context, sellerOrderID uuid.UUID, status enums.DeliveryStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SellerOrder{}).
		Where("id = ?", sellerOrderID).
		Update("delivery_status", status).Error
}

func (r *repository) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters CustomerOrderFilters) (*CustomerOrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CustomerOrder{}).
		Preload("LineItems").
		Where("customer_id = ?", customerID)
	if filters.DeliveryStatus != nil {
		query = query.Where("delivery_status = ?", *filters.DeliveryStatus)
	}
	orders, next, err := page(query, params, customerOrderCursor)
	if err != nil {
		return nil, err
	}
	return &CustomerOrderList{Orders: orders, NextCursor: next}, nil
}

func (r *repository) RecentCustomerOrders(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CustomerOrder, error) {
	var orders []models.CustomerOrder
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) CountCustomerOrders(ctx context.Context, customerID uuid.UUID, status *enums.DeliveryStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CustomerOrder{}).Where("customer_id = ?", customerID)
	if status != nil {
		query = query.Where("delivery_status = ?", *status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListOrders(ctx context.Context, params pagination.Params) (*CustomerOrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CustomerOrder{}).
		Preload("SellerOrders", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC, id ASC") })
	orders, next, err := page(query, params, customerOrderCursor)
	if err != nil {
		return nil, err
	}
	return &CustomerOrderList{Orders: orders, NextCursor: next}, nil
}

func (r *repository) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, params pagination.Params) (*SellerOrderList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SellerOrder{}).
		Preload("LineItems").
		Where("seller_id = ?", sellerID)
	orders, next, err := page(query, params, func(o models.SellerOrder) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	if err != nil {
		return nil, err
	}
	return &SellerOrderList{Orders: orders, NextCursor: next}, nil
}

// FindDueUnpaid walks due orders in (payment_due_at, id) order.
func (r *repository) FindDueUnpaid(ctx context.Context, now time.Time, after *DueCursor, limit int) ([]DueOrder, error) {
	query := r.db.WithContext(ctx).
		Select("id", "payment_due_at").
		Where("payment_status = ? AND delivery_status = ?", enums.PaymentStatusUnpaid, enums.DeliveryStatusPending).
		Where("payment_due_at IS NOT NULL AND payment_due_at <= ?", now)
	if after != nil {
		query = query.Where("(payment_due_at > ? OR (payment_due_at = ? AND id > ?))", after.DueAt, after.DueAt, after.ID)
	}

	var rows []models.CustomerOrder
	if err := query.Order("payment_due_at ASC").Order("id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DueOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, DueOrder{ID: row.ID, PaymentDueAt: *row.PaymentDueAt})
	}
	return out, nil
}

func customerOrderCursor(o models.CustomerOrder) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

// page applies the (created_at, id) keyset and returns the cursor of the
// last row when another page exists.
func page[T any](query *gorm.DB, params pagination.Params, key func(T) pagination.Cursor) ([]T, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []T
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, more := pagination.Trim(rows, params.Limit)
	if !more {
		return rows, "", nil
	}
	return rows, pagination.EncodeCursor(key(rows[len(rows)-1])), nil
}
