package withdrawals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/internal/ledger"
	"github.com/angelmondragon/easyshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
	pkgstripe "github.com/angelmondragon/easyshop-backend/pkg/stripe"
)

type fakeTransfers struct {
	calls []pkgstripe.TransferInput
	err   error
}

func (f *fakeTransfers) Transfer(ctx context.Context, input pkgstripe.TransferInput) (string, error) {
	f.calls = append(f.calls, input)
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("transfer called without a deadline")
	}
	if f.err != nil {
		return "", f.err
	}
	return "tr_" + input.IdempotencyKey, nil
}

type fixture struct {
	svc       Service
	db        *gorm.DB
	transfers *fakeTransfers
	sellerID  uuid.UUID
}

func newFixture(t *testing.T, credits ...int64) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	seller := &models.Seller{Name: "Shop Owner", Email: uuid.NewString() + "@example.com", ShopName: "Corner"}
	require.NoError(t, conn.Create(seller).Error)

	for _, amount := range credits {
		require.NoError(t, conn.Create(&models.SellerWalletEntry{
			SellerID: seller.ID,
			OrderID:  uuid.New(),
			Amount:   decimal.NewFromInt(amount),
			Month:    3,
			Year:     2026,
		}).Error)
	}

	transfers := &fakeTransfers{}
	svc, err := NewService(
		NewRepository(conn),
		ledger.NewRepository(conn),
		client,
		outbox.NewService(outbox.NewRepository(conn), nil),
		transfers,
		Options{TransferTimeout: time.Second},
	)
	require.NoError(t, err)
	return &fixture{svc: svc, db: conn, transfers: transfers, sellerID: seller.ID}
}

func (f *fixture) linkAccount(t *testing.T) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.StripeAccount{
		SellerID:        f.sellerID,
		StripeAccountID: "acct_123",
		Code:            uuid.NewString(),
	}).Error)
}

func TestAvailableBalance(t *testing.T) {
	f := newFixture(t, 100, 50)
	ctx := context.Background()

	_, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(30))
	require.NoError(t, err)
	second, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.Withdrawal{}).Where("id = ?", second.ID).Update("status", enums.WithdrawalStatusSuccess).Error)

	balance, err := f.svc.AvailableBalance(ctx, f.sellerID)
	require.NoError(t, err)
	assert.True(t, balance.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.True(t, balance.PendingAmount.Equal(decimal.NewFromInt(30)))
	assert.True(t, balance.WithdrawAmount.Equal(decimal.NewFromInt(20)))
	assert.True(t, balance.AvailableAmount.Equal(decimal.NewFromInt(100)))
	assert.Len(t, balance.PendingWithdrawals, 1)
	assert.Len(t, balance.SuccessWithdrawals, 1)
}

func TestAvailableBalanceNeverNegative(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, f.db.Create(&models.Withdrawal{
		SellerID: f.sellerID,
		Amount:   decimal.NewFromInt(40),
		Status:   enums.WithdrawalStatusSuccess,
	}).Error)

	balance, err := f.svc.AvailableBalance(context.Background(), f.sellerID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableAmount.IsZero())
}

func TestRequestWithdrawalRejections(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	cases := []struct {
		name   string
		seller uuid.UUID
		amount decimal.Decimal
		code   pkgerrors.Code
	}{
		{"negative amount", f.sellerID, decimal.NewFromInt(-5), pkgerrors.CodeValidation},
		{"zero amount", f.sellerID, decimal.Zero, pkgerrors.CodeValidation},
		{"above available", f.sellerID, decimal.NewFromInt(101), pkgerrors.CodeValidation},
		{"sub-cent amount", f.sellerID, decimal.RequireFromString("10.005"), pkgerrors.CodeValidation},
		{"unknown seller", uuid.New(), decimal.NewFromInt(1), pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.RequestWithdrawal(ctx, tc.seller, tc.amount)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Withdrawal{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRequestWithdrawalAcceptsTrailingZeros(t *testing.T) {
	f := newFixture(t, 100)
	w, err := f.svc.RequestWithdrawal(context.Background(), f.sellerID, decimal.RequireFromString("10.500"))
	require.NoError(t, err)
	assert.True(t, w.Amount.Equal(decimal.RequireFromString("10.5")))
}

func TestRequestWithdrawalCountsPendingRequests(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(60))
	require.NoError(t, err)

	_, err = f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(60))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventWithdrawalRequested).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestConfirmWithdrawal(t *testing.T) {
	f := newFixture(t, 100)
	f.linkAccount(t)
	ctx := context.Background()

	req, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(25))
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusSuccess, confirmed.Status)
	require.NotNil(t, confirmed.TransferID)

	require.Len(t, f.transfers.calls, 1)
	call := f.transfers.calls[0]
	assert.Equal(t, int64(2500), call.AmountCents)
	assert.Equal(t, "usd", call.Currency)
	assert.Equal(t, "acct_123", call.Destination)
	assert.Equal(t, "withdrawal-"+req.ID.String(), call.IdempotencyKey)

	_, err = f.svc.ConfirmWithdrawal(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, f.transfers.calls, 1, "confirmed withdrawal must not transfer twice")

	balance, err := f.svc.AvailableBalance(ctx, f.sellerID)
	require.NoError(t, err)
	assert.True(t, balance.WithdrawAmount.Equal(decimal.NewFromInt(25)))
	assert.True(t, balance.AvailableAmount.Equal(decimal.NewFromInt(75)))
}

func TestConfirmWithdrawalTransferFailureStaysPending(t *testing.T) {
	f := newFixture(t, 100)
	f.linkAccount(t)
	f.transfers.err = errors.New("stripe unavailable")
	ctx := context.Background()

	req, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(25))
	require.NoError(t, err)

	_, err = f.svc.ConfirmWithdrawal(ctx, req.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var row models.Withdrawal
	require.NoError(t, f.db.Where("id = ?", req.ID).First(&row).Error)
	assert.Equal(t, enums.WithdrawalStatusPending, row.Status)
	assert.Nil(t, row.TransferID)
}

func TestConfirmWithdrawalNotFound(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	_, err := f.svc.ConfirmWithdrawal(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	req, err := f.svc.RequestWithdrawal(ctx, f.sellerID, decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = f.svc.ConfirmWithdrawal(ctx, req.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "missing payout account")
	assert.Empty(t, f.transfers.calls)
}
