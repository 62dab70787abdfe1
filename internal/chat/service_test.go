package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/easyshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/easyshop-backend/pkg/errors"
)

type routed struct {
	kind string
	to   string
}

type fakeRelay struct {
	online map[string]bool
	routes []routed
}

func (f *fakeRelay) deliver(kind, to string) bool {
	f.routes = append(f.routes, routed{kind, to})
	return f.online[to]
}

func (f *fakeRelay) SendSellerMessage(_ context.Context, customerID string, _ any) bool {
	return f.deliver("sellerMessage", customerID)
}

func (f *fakeRelay) SendCustomerMessage(_ context.Context, sellerID string, _ any) bool {
	return f.deliver("customerMessage", sellerID)
}

func (f *fakeRelay) SendMessageAdminToSeller(_ context.Context, sellerID string, _ any) bool {
	return f.deliver("receiverAdminMessage", sellerID)
}

func (f *fakeRelay) SendMessageSellerToAdmin(_ context.Context, _ any) bool {
	return f.deliver("receiverSellerMessage", "")
}

type fixture struct {
	svc    *service
	relay  *fakeRelay
	seller models.Seller
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t).DB()
	seller := models.Seller{Name: "Shop Owner", Email: "owner@example.com", ShopName: "Corner"}
	require.NoError(t, conn.Create(&seller).Error)

	relay := &fakeRelay{online: map[string]bool{}}
	svc, err := NewService(NewRepository(conn), relay)
	require.NoError(t, err)

	f := &fixture{svc: svc.(*service), relay: relay, seller: seller, clock: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	return f
}

func TestSendCustomerToSellerPersistsThenRoutes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := Sender{ID: uuid.New(), Name: "Ana"}
	f.relay.online[f.seller.ID.String()] = true

	res, err := f.svc.SendCustomerToSeller(ctx, customer, f.seller.ID, "  is this in stock?  ")
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.Equal(t, "is this in stock?", res.Message.Message)
	assert.Equal(t, enums.ChatChannelSellerCustomer, res.Message.Channel)
	assert.Equal(t, []routed{{"customerMessage", f.seller.ID.String()}}, f.relay.routes)

	history, err := f.svc.Conversation(ctx, enums.ChatChannelSellerCustomer, customer.ID.String(), f.seller.ID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestSendToOfflineRecipientIsStillStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sellerSender := Sender{ID: f.seller.ID, Name: "Corner"}
	customerID := uuid.New()

	res, err := f.svc.SendSellerToCustomer(ctx, sellerSender, customerID, "yes")
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	history, err := f.svc.Conversation(ctx, enums.ChatChannelSellerCustomer, f.seller.ID.String(), customerID.String(), 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAdminSellerConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := Sender{ID: uuid.New(), Name: "Support"}
	seller := Sender{ID: f.seller.ID, Name: "Corner"}

	_, err := f.svc.SendAdminToSeller(ctx, admin, f.seller.ID, "welcome")
	require.NoError(t, err)
	_, err = f.svc.SendSellerToAdmin(ctx, seller, "thanks")
	require.NoError(t, err)
	_, err = f.svc.SendSellerToAdmin(ctx, seller, "one more thing")
	require.NoError(t, err)

	history, err := f.svc.Conversation(ctx, enums.ChatChannelAdminSeller, "", f.seller.ID.String(), 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "thanks", history[0].Message)
	assert.Equal(t, "one more thing", history[1].Message)
	assert.Equal(t, "", history[1].ReceiverID)

	assert.Equal(t, []routed{
		{"receiverAdminMessage", f.seller.ID.String()},
		{"receiverSellerMessage", ""},
		{"receiverSellerMessage", ""},
	}, f.relay.routes)
}

func TestSendRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := Sender{ID: uuid.New(), Name: "Ana"}

	cases := []struct {
		name string
		run  func() error
		want pkgerrors.Code
	}{
		{"unknown seller", func() error {
			_, err := f.svc.SendCustomerToSeller(ctx, customer, uuid.New(), "hi")
			return err
		}, pkgerrors.CodeNotFound},
		{"empty message", func() error {
			_, err := f.svc.SendCustomerToSeller(ctx, customer, f.seller.ID, "   ")
			return err
		}, pkgerrors.CodeValidation},
		{"anonymous sender", func() error {
			_, err := f.svc.SendSellerToAdmin(ctx, Sender{}, "hi")
			return err
		}, pkgerrors.CodeUnauthorized},
		{"missing receiver", func() error {
			_, err := f.svc.SendSellerToCustomer(ctx, Sender{ID: f.seller.ID}, uuid.Nil, "hi")
			return err
		}, pkgerrors.CodeValidation},
		{"bad channel", func() error {
			_, err := f.svc.Conversation(ctx, "group", "a", "b", 1)
			return err
		}, pkgerrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			assert.True(t, pkgerrors.IsCode(err, tc.want), "got %v", err)
		})
	}
	assert.Empty(t, f.relay.routes)
}
