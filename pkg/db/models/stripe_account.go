package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StripeAccount links a seller to a Stripe connected account. Code is the
// one-time value embedded in the onboarding return URL.
type StripeAccount struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID `gorm:"column:seller_id;type:uuid;not null;uniqueIndex"`
	StripeAccountID string    `gorm:"column:stripe_account_id;not null"`
	Code            string    `gorm:"column:code;not null;uniqueIndex"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *StripeAccount) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
