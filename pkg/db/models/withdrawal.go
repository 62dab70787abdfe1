package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// Withdrawal is a seller payout request. It only moves pending -> success.
type Withdrawal struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID   uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	Amount     decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Status     enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	TransferID *string                `gorm:"column:transfer_id" json:"transferId"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (w *Withdrawal) BeforeCreate(*gorm.DB) error {
	ensureID(&w.ID)
	return nil
}
