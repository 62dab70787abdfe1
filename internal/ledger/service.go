package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

// Service records wallet credits and reports balances.
type Service interface {
	WithRepository(repo Repository) Service
	RecordSellerCredit(ctx context.Context, input SellerCreditInput) (*models.SellerWalletEntry, error)
	RecordShopCredit(ctx context.Context, input ShopCreditInput) (*models.ShopWalletEntry, error)
	SellerBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error)
	ShopBalance(ctx context.Context) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// SellerCreditInput is the immutable data of a seller wallet entry.
type SellerCreditInput struct {
	SellerID uuid.UUID       `json:"seller_id"`
	OrderID  uuid.UUID       `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Month    int             `json:"month"`
	Year     int             `json:"year"`
}

// ShopCreditInput is the immutable data of a shop wallet entry.
type ShopCreditInput struct {
	OrderID uuid.UUID       `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Month   int             `json:"month"`
	Year    int             `json:"year"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// WithRepository returns a copy bound to repo, typically a tx-scoped one.
func (s *service) WithRepository(repo Repository) Service {
	if repo == nil {
		return s
	}
	return &service{repo: repo}
}

func (s *service) RecordSellerCredit(ctx context.Context, input SellerCreditInput) (*models.SellerWalletEntry, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if err := validateEntry(input.OrderID, input.Amount, input.Month, input.Year); err != nil {
		return nil, err
	}

	entry := &models.SellerWalletEntry{
		SellerID: input.SellerID,
		OrderID:  input.OrderID,
		Amount:   input.Amount,
		Month:    input.Month,
		Year:     input.Year,
	}
	if err := s.repo.CreateSellerEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecordShopCredit(ctx context.Context, input ShopCreditInput) (*models.ShopWalletEntry, error) {
	if err := validateEntry(input.OrderID, input.Amount, input.Month, input.Year); err != nil {
		return nil, err
	}

	entry := &models.ShopWalletEntry{
		OrderID: input.OrderID,
		Amount:  input.Amount,
		Month:   input.Month,
		Year:    input.Year,
	}
	if err := s.repo.CreateShopEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) SellerBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	if sellerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	total, err := s.repo.SumSeller(ctx, sellerID)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum seller wallet")
	}
	return total, nil
}

func (s *service) ShopBalance(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.SumShop(ctx)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum shop wallet")
	}
	return total, nil
}

func validateEntry(orderID uuid.UUID, amount decimal.Decimal, month, year int) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if month < 1 || month > 12 {
		return pkgerrors.New(pkgerrors.CodeValidation, "month must be between 1 and 12")
	}
	if year <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "year must be positive")
	}
	return nil
}
