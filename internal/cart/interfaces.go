package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
)

// CartRepository exposes cart line persistence.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListWithProducts(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	FindByProduct(ctx context.Context, customerID, productID uuid.UUID) (*models.CartItem, error)
	FindByID(ctx context.Context, customerID, itemID uuid.UUID) (*models.CartItem, error)
	FindProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, item *models.CartItem) error
	Increment(ctx context.Context, customerID, itemID uuid.UUID) (int64, error)
	Decrement(ctx context.Context, customerID, itemID uuid.UUID) (int64, error)
	Delete(ctx context.Context, customerID, itemID uuid.UUID) (int64, error)
	DeleteMany(ctx context.Context, customerID uuid.UUID, itemIDs []uuid.UUID) (int64, error)
}
