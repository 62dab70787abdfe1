package withdrawals

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
)

// Repository persists withdrawal requests and reads the payout account.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error)
	SumByStatus(ctx context.Context, sellerID uuid.UUID, status enums.WithdrawalStatus) (decimal.Decimal, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Withdrawal, error)
	ListPending(ctx context.Context) ([]models.Withdrawal, error)
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	Find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	MarkSuccess(ctx context.Context, id uuid.UUID, transferID string) (int64, error)
	FindStripeAccount(ctx context.Context, sellerID uuid.UUID) (*models.StripeAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a withdrawals repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockSeller serializes concurrent withdrawal requests of one seller.
func (r *repository) LockSeller(ctx context.Context, sellerID uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", sellerID).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

func (r *repository) SumByStatus(ctx context.Context, sellerID uuid.UUID, status enums.WithdrawalStatus) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Select("SUM(amount)").
		Where("seller_id = ? AND status = ?", sellerID, status).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListPending(ctx context.Context) ([]models.Withdrawal, error) {
	var rows []models.Withdrawal
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.WithdrawalStatusPending).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	return r.db.WithContext(ctx).Create(withdrawal).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var row models.Withdrawal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkSuccess is the pending -> success compare-and-set.
func (r *repository) MarkSuccess(ctx context.Context, id uuid.UUID, transferID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Withdrawal{}).
		Where("id = ? AND status = ?", id, enums.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":      enums.WithdrawalStatusSuccess,
			"transfer_id": transferID,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) FindStripeAccount(ctx context.Context, sellerID uuid.UUID) (*models.StripeAccount, error) {
	var acct models.StripeAccount
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&acct).Error; err != nil {
		return nil, err
	}
	return &acct, nil
}
