package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
)

// Repository persists wallet entries. Entries are append-only: there is no
// update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSellerEntry(ctx context.Context, entry *models.SellerWalletEntry) error
	CreateShopEntry(ctx context.Context, entry *models.ShopWalletEntry) error
	SumSeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
	SumShop(ctx context.Context) (decimal.Decimal, error)
	ListSellerEntries(ctx context.Context, sellerID uuid.UUID) ([]models.SellerWalletEntry, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.SellerWalletEntry, *models.ShopWalletEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSellerEntry(ctx context.Context, entry *models.SellerWalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) CreateShopEntry(ctx context.Context, entry *models.ShopWalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) SumSeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.SellerWalletEntry{}).
		Where("seller_id = ?", sellerID).
		Select("SUM(amount)").
		Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return nullToZero(total), nil
}

func (r *repository) SumShop(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.ShopWalletEntry{}).
		Select("SUM(amount)").
		Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return nullToZero(total), nil
}

func (r *repository) ListSellerEntries(ctx context.Context, sellerID uuid.UUID) ([]models.SellerWalletEntry, error) {
	var entries []models.SellerWalletEntry
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.SellerWalletEntry, *models.ShopWalletEntry, error) {
	var sellerEntries []models.SellerWalletEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&sellerEntries).Error; err != nil {
		return nil, nil, err
	}

	var shop []models.ShopWalletEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Limit(1).
		Find(&shop).Error; err != nil {
		return nil, nil, err
	}
	if len(shop) == 0 {
		return sellerEntries, nil, nil
	}
	return sellerEntries, &shop[0], nil
}

func nullToZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
