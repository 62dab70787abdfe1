package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// Repository stores Stripe connected-account links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	FindAccountBySeller(ctx context.Context, sellerID uuid.UUID) (*models.StripeAccount, error)
	FindAccountByCode(ctx context.Context, code string) (*models.StripeAccount, error)
	ReplaceAccount(ctx context.Context, acct *models.StripeAccount) error
	ActivateSeller(ctx context.Context, sellerID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("id = ?", sellerID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) FindAccountBySeller(ctx context.Context, sellerID uuid.UUID) (*models.StripeAccount, error) {
	var acct models.StripeAccount
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *repository) FindAccountByCode(ctx context.Context, code string) (*models.StripeAccount, error) {
	var acct models.StripeAccount
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}

// ReplaceAccount drops any previous link of the seller before inserting.
func (r *repository) ReplaceAccount(ctx context.Context, acct *models.StripeAccount) error {
	if err := r.db.WithContext(ctx).Where("seller_id = ?", acct.SellerID).Delete(&models.StripeAccount{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(acct).Error
}

func (r *repository) ActivateSeller(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Seller{}).
		Where("id = ?", sellerID).
		Update("payment_status", enums.SellerPaymentActive)
	return result.RowsAffected, result.Error
}
