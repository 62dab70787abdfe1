package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WishlistItem stores a customer's liked product with a display snapshot.
type WishlistItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index;uniqueIndex:wishlist_items_customer_product_key" json:"customerId"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:wishlist_items_customer_product_key" json:"productId"`
	Name       string          `gorm:"column:name;not null" json:"name"`
	Slug       string          `gorm:"column:slug;not null;default:''" json:"slug"`
	Image      string          `gorm:"column:image;not null;default:''" json:"image"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Discount   int             `gorm:"column:discount;not null;default:0" json:"discount"`
	Rating     float64         `gorm:"column:rating;not null;default:0" json:"rating"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (w *WishlistItem) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
