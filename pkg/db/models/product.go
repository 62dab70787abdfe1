package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the live catalog record cart pricing reads from. Catalog CRUD
// lives outside this service.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID  uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Slug      string          `gorm:"column:slug;not null" json:"slug"`
	Brand     string          `gorm:"column:brand;not null;default:''" json:"brand"`
	Category  string          `gorm:"column:category;not null;default:''" json:"category"`
	ShopName  string          `gorm:"column:shop_name;not null;default:''" json:"shopName"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Discount  int             `gorm:"column:discount;not null;default:0" json:"discount"`
	Stock     int             `gorm:"column:stock;not null;default:0" json:"stock"`
	Rating    float64         `gorm:"column:rating;not null;default:0" json:"rating"`
	Images    pq.StringArray  `gorm:"column:images;type:text[]" json:"images"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PrimaryImage returns the first image url, if any.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
