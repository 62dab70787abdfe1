package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

const cartProductConstraint = "cart_items_customer_product_key"

// Service exposes cart pricing and line operations.
type Service interface {
	Summary(ctx context.Context, customerID uuid.UUID) (*Summary, error)
	AddToCart(ctx context.Context, customerID uuid.UUID, input AddToCartInput) (*models.CartItem, error)
	RemoveFromCart(ctx context.Context, customerID, itemID uuid.UUID) error
	IncrementQuantity(ctx context.Context, customerID, itemID uuid.UUID) error
	DecrementQuantity(ctx context.Context, customerID, itemID uuid.UUID) error
}

// AddToCartInput is the payload for a new cart line.
type AddToCartInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type service struct {
	repo  CartRepository
	rules Rules
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo CartRepository, rules Rules) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if rules.CommissionPercent < 0 || rules.CommissionPercent > 100 {
		return nil, fmt.Errorf("commission percent must be within 0..100")
	}
	if rules.ShippingFeePerSeller.IsNegative() {
		return nil, fmt.Errorf("shipping fee must not be negative")
	}
	return &service{repo: repo, rules: rules}, nil
}

// Summary recomputes the priced cart from live product rows on every call.
func (s *service) Summary(ctx context.Context, customerID uuid.UUID) (*Summary, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	items, err := s.repo.ListWithProducts(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, LineFromModel(item))
	}
	summary := Price(lines, s.rules)
	return &summary, nil
}

func (s *service) AddToCart(ctx context.Context, customerID uuid.UUID, input AddToCartInput) (*models.CartItem, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	if _, err := s.repo.FindProduct(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}

	if _, err := s.repo.FindByProduct(ctx, customerID, input.ProductID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already added to cart")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cart line")
	}

	item := &models.CartItem{
		CustomerID: customerID,
		ProductID:  input.ProductID,
		Quantity:   input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, cartProductConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already added to cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add to cart")
	}
	return item, nil
}

func (s *service) RemoveFromCart(ctx context.Context, customerID, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	rows, err := s.repo.Delete(ctx, customerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart line")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) IncrementQuantity(ctx context.Context, customerID, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	rows, err := s.repo.Increment(ctx, customerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "increment quantity")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

// DecrementQuantity refuses to drop a line below 1; removal is explicit.
func (s *service) DecrementQuantity(ctx context.Context, customerID, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	rows, err := s.repo.Decrement(ctx, customerID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement quantity")
	}
	if rows > 0 {
		return nil
	}

	if _, err := s.repo.FindByID(ctx, customerID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot go below 1")
}
