package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

type fakeRepository struct {
	sellerEntries []*models.SellerWalletEntry
	shopEntries   []*models.ShopWalletEntry
	sumErr        error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) CreateSellerEntry(ctx context.Context, entry *models.SellerWalletEntry) error {
	f.sellerEntries = append(f.sellerEntries, entry)
	return nil
}

func (f *fakeRepository) CreateShopEntry(ctx context.Context, entry *models.ShopWalletEntry) error {
	f.shopEntries = append(f.shopEntries, entry)
	return nil
}

func (f *fakeRepository) SumSeller(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	if f.sumErr != nil {
		return decimal.Zero, f.sumErr
	}
	total := decimal.Zero
	for _, e := range f.sellerEntries {
		if e.SellerID == sellerID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepository) SumShop(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range f.shopEntries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (f *fakeRepository) ListSellerEntries(ctx context.Context, sellerID uuid.UUID) ([]models.SellerWalletEntry, error) {
	return nil, nil
}

func (f *fakeRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.SellerWalletEntry, *models.ShopWalletEntry, error) {
	return nil, nil, nil
}

func TestService_RecordSellerCredit(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	input := SellerCreditInput{
		SellerID: uuid.New(),
		OrderID:  uuid.New(),
		Amount:   decimal.NewFromInt(85),
		Month:    3,
		Year:     2026,
	}
	got, err := svc.RecordSellerCredit(context.Background(), input)
	if err != nil {
		t.Fatalf("RecordSellerCredit error: %v", err)
	}
	if len(repo.sellerEntries) != 1 || repo.sellerEntries[0] != got {
		t.Fatalf("expected entry to be persisted and returned")
	}
	if got.SellerID != input.SellerID || got.OrderID != input.OrderID || !got.Amount.Equal(input.Amount) {
		t.Fatalf("unexpected entry data: %+v", got)
	}
	if got.Month != 3 || got.Year != 2026 {
		t.Fatalf("unexpected period %d/%d", got.Month, got.Year)
	}

	balance, err := svc.SellerBalance(context.Background(), input.SellerID)
	if err != nil {
		t.Fatalf("SellerBalance error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(85)) {
		t.Fatalf("expected balance 85, got %s", balance)
	}
}

func TestService_RecordShopCredit(t *testing.T) {
	repo := &fakeRepository{}
	svc, _ := NewService(repo)

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordShopCredit(context.Background(), ShopCreditInput{
			OrderID: uuid.New(),
			Amount:  decimal.NewFromInt(120),
			Month:   12,
			Year:    2025,
		}); err != nil {
			t.Fatalf("RecordShopCredit error: %v", err)
		}
	}

	balance, err := svc.ShopBalance(context.Background())
	if err != nil {
		t.Fatalf("ShopBalance error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("expected shop balance 240, got %s", balance)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})

	tests := []struct {
		name  string
		input SellerCreditInput
	}{
		{
			name:  "missing seller",
			input: SellerCreditInput{OrderID: uuid.New(), Amount: decimal.NewFromInt(1), Month: 1, Year: 2026},
		},
		{
			name:  "missing order",
			input: SellerCreditInput{SellerID: uuid.New(), Amount: decimal.NewFromInt(1), Month: 1, Year: 2026},
		},
		{
			name:  "zero amount",
			input: SellerCreditInput{SellerID: uuid.New(), OrderID: uuid.New(), Month: 1, Year: 2026},
		},
		{
			name:  "negative amount",
			input: SellerCreditInput{SellerID: uuid.New(), OrderID: uuid.New(), Amount: decimal.NewFromInt(-5), Month: 1, Year: 2026},
		},
		{
			name:  "month out of range",
			input: SellerCreditInput{SellerID: uuid.New(), OrderID: uuid.New(), Amount: decimal.NewFromInt(1), Month: 13, Year: 2026},
		},
		{
			name:  "missing year",
			input: SellerCreditInput{SellerID: uuid.New(), OrderID: uuid.New(), Amount: decimal.NewFromInt(1), Month: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordSellerCredit(context.Background(), tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_SellerBalanceWrapsRepositoryErrors(t *testing.T) {
	svc, _ := NewService(&fakeRepository{sumErr: errors.New("db down")})

	_, err := svc.SellerBalance(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
