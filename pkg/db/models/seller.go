package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// Seller is the subset of the seller profile the order and payout flows need.
type Seller struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string                    `gorm:"column:name;not null" json:"name"`
	Email         string                    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	ShopName      string                    `gorm:"column:shop_name;not null;default:''" json:"shopName"`
	Status        string                    `gorm:"column:status;not null;default:'pending'" json:"status"`
	PaymentStatus enums.SellerPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'inactive'" json:"paymentStatus"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
