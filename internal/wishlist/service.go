package wishlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

const uniqueCustomerProduct = "wishlist_items_customer_product_key"

// List is the wishlist view returned to the storefront.
type List struct {
	Count int                   `json:"wishlistCount"`
	Items []models.WishlistItem `json:"wishlists"`
}

// Service exposes business rules for wishlist management.
type Service interface {
	Add(ctx context.Context, customerID, productID uuid.UUID) (*models.WishlistItem, error)
	List(ctx context.Context, customerID uuid.UUID) (*List, error)
	Remove(ctx context.Context, customerID, itemID uuid.UUID) error
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a wishlist service with the required dependencies.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wishlist repo is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Add snapshots the product into the customer's wishlist. A product can be
// liked once.
func (s *service) Add(ctx context.Context, customerID, productID uuid.UUID) (*models.WishlistItem, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	exists, err := s.repo.Exists(ctx, customerID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is already in wishlist")
	}

	item := &models.WishlistItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  product.ID,
		Name:       product.Name,
		Slug:       product.Slug,
		Image:      product.PrimaryImage(),
		Price:      product.Price,
		Discount:   product.Discount,
		Rating:     product.Rating,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, uniqueCustomerProduct) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is already in wishlist")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add wishlist item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) (*List, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	items, err := s.repo.List(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}
	if items == nil {
		items = []models.WishlistItem{}
	}
	return &List{Count: len(items), Items: items}, nil
}

func (s *service) Remove(ctx context.Context, customerID, itemID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	removed, err := s.repo.Remove(ctx, customerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wishlist item not found")
	}
	return nil
}
