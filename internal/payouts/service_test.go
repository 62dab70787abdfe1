package payouts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/easyshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
	"github.com/angelmondragon/easyshop-backend/pkg/outbox"
)

type linkCall struct {
	accountID  string
	refreshURL string
	returnURL  string
}

type fakeAccounts struct {
	created    []string
	links      []linkCall
	accountErr error
	next       int
}

func (f *fakeAccounts) CreateExpressAccount(_ context.Context, email, country string) (string, error) {
	if f.accountErr != nil {
		return "", f.accountErr
	}
	f.next++
	f.created = append(f.created, email+"|"+country)
	return "acct_" + string(rune('0'+f.next)), nil
}

func (f *fakeAccounts) CreateAccountLink(_ context.Context, accountID, refreshURL, returnURL string) (string, error) {
	f.links = append(f.links, linkCall{accountID, refreshURL, returnURL})
	return "https://connect.stripe.test/setup/" + accountID, nil
}

type fixture struct {
	svc      *service
	db       *gorm.DB
	accounts *fakeAccounts
	seller   *models.Seller
	codes    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()

	seller := &models.Seller{Name: "Shop Owner", Email: "owner@example.com", ShopName: "Corner"}
	require.NoError(t, conn.Create(seller).Error)

	accounts := &fakeAccounts{}
	svc, err := NewService(NewRepository(conn), client, outbox.NewService(outbox.NewRepository(conn), nil), accounts, Options{
		FrontendURL: "http://localhost:3001/",
	})
	require.NoError(t, err)

	f := &fixture{svc: svc.(*service), db: conn, accounts: accounts, seller: seller}
	f.svc.newCode = func() string {
		code := uuid.NewString()
		f.codes = append(f.codes, code)
		return code
	}
	return f
}

func TestCreateOnboardingLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	url, err := f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://connect.stripe.test/setup/acct_1", url)
	assert.Equal(t, []string{"owner@example.com|US"}, f.accounts.created)

	require.Len(t, f.accounts.links, 1)
	link := f.accounts.links[0]
	assert.Equal(t, "acct_1", link.accountID)
	assert.Equal(t, "http://localhost:3001/payment/stripe/refresh", link.refreshURL)
	assert.Equal(t, "http://localhost:3001/payment/stripe/"+f.codes[0], link.returnURL)

	var stored models.StripeAccount
	require.NoError(t, f.db.Where("seller_id = ?", f.seller.ID).First(&stored).Error)
	assert.Equal(t, "acct_1", stored.StripeAccountID)
	assert.Equal(t, f.codes[0], stored.Code)
}

func TestCreateOnboardingLinkReplacesPreviousAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	require.NoError(t, err)

	var rows []models.StripeAccount
	require.NoError(t, f.db.Where("seller_id = ?", f.seller.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "acct_2", rows[0].StripeAccountID)
	assert.Equal(t, f.codes[1], rows[0].Code)
}

func TestCreateOnboardingLinkFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOnboardingLink(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)

	f.accounts.accountErr = errors.New("stripe down")
	_, err = f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)

	var count int64
	require.NoError(t, f.db.Model(&models.StripeAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestActivateAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.ActivateAccount(ctx, f.seller.ID, f.codes[0]))

	var seller models.Seller
	require.NoError(t, f.db.First(&seller, "id = ?", f.seller.ID).Error)
	assert.Equal(t, enums.SellerPaymentActive, seller.PaymentStatus)

	var events int64
	require.NoError(t, f.db.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventPayoutAccountActivated).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestActivateAccountRejectsUnknownCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOnboardingLink(ctx, f.seller.ID)
	require.NoError(t, err)

	other := &models.Seller{Name: "Other", Email: "other@example.com"}
	require.NoError(t, f.db.Create(other).Error)

	cases := []struct {
		name   string
		seller uuid.UUID
		code   string
		want   pkgerrors.Code
	}{
		{"unknown code", f.seller.ID, "nope", pkgerrors.CodeNotFound},
		{"code of another seller", other.ID, f.codes[0], pkgerrors.CodeNotFound},
		{"empty code", f.seller.ID, " ", pkgerrors.CodeValidation},
		{"anonymous", uuid.Nil, f.codes[0], pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.ActivateAccount(ctx, tc.seller, tc.code)
			assert.True(t, pkgerrors.IsCode(err, tc.want), "got %v", err)
		})
	}

	var seller models.Seller
	require.NoError(t, f.db.First(&seller, "id = ?", f.seller.ID).Error)
	assert.Equal(t, enums.SellerPaymentInactive, seller.PaymentStatus)
}
