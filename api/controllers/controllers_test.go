package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/easyshop-backend/api/middleware"
	"github.com/angelmondragon/easyshop-backend/internal/cart"
	"github.com/angelmondragon/easyshop-backend/internal/chat"
	"github.com/angelmondragon/easyshop-backend/internal/orders"
	"github.com/angelmondragon/easyshop-backend/internal/wishlist"
	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/db/models"
	"github.com/angelmondragon/easyshop-backend/pkg/enums"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test-controllers", Level: "debug", Output: io.Discard})
}

func withCaller(req *http.Request, id uuid.UUID, role enums.ActorRole) *http.Request {
	ctx := middleware.WithPrincipal(req.Context(), middleware.Principal{EntityID: id, Role: role, Name: "Caller"})
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type fakeCarts struct {
	summary *cart.Summary
}

func (f fakeCarts) Summary(context.Context, uuid.UUID) (*cart.Summary, error) {
	return f.summary, nil
}

// fakeOrders only implements what the handlers under test reach.
type fakeOrders struct {
	orders.Service
	placed  *orders.PlaceOrderInput
	updated enums.DeliveryStatus
}

func (f *fakeOrders) PlaceOrder(_ context.Context, input orders.PlaceOrderInput) (*orders.PlaceOrderResult, error) {
	f.placed = &input
	return &orders.PlaceOrderResult{OrderID: uuid.New(), PaymentDueAt: time.Now().Add(15 * time.Second)}, nil
}

func (f *fakeOrders) UpdateDeliveryStatus(_ context.Context, _ uuid.UUID, status enums.DeliveryStatus) error {
	f.updated = status
	return nil
}

const shippingBody = `{"shippingInfo":{"name":"Ana","address":"Main 1","phone":"555"}}`

func TestPlaceOrder_EmptyCartIsValidationError(t *testing.T) {
	svc := &fakeOrders{}
	handler := PlaceOrder(svc, fakeCarts{summary: &cart.Summary{}}, testLogger())

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(shippingBody)), uuid.New(), enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Nil(t, svc.placed)
}

func TestPlaceOrder_BuildsInputFromCart(t *testing.T) {
	sellerID := uuid.New()
	summary := &cart.Summary{
		Groups: []cart.SellerGroup{{
			SellerID: sellerID,
			Price:    decimal.NewFromInt(30),
			Products: []cart.Line{{
				CartItemID: uuid.New(),
				Quantity:   3,
				Product:    cart.ProductInfo{ID: uuid.New(), SellerID: sellerID, Name: "Mug"},
			}},
		}},
		TotalPrice:  decimal.NewFromInt(30),
		ShippingFee: decimal.NewFromInt(20),
	}
	svc := &fakeOrders{}
	customerID := uuid.New()
	handler := PlaceOrder(svc, fakeCarts{summary: summary}, testLogger())

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(shippingBody)), customerID, enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, svc.placed)
	assert.Equal(t, customerID, svc.placed.CustomerID)
	assert.Equal(t, "Ana", svc.placed.ShippingInfo.Name)
	require.Len(t, svc.placed.Groups, 1)
	assert.Equal(t, sellerID, svc.placed.Groups[0].SellerID)
}

func TestPlaceOrder_RejectsMissingShipping(t *testing.T) {
	handler := PlaceOrder(&fakeOrders{}, fakeCarts{summary: &cart.Summary{}}, testLogger())

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"shippingInfo":{"name":"Ana"}}`)), uuid.New(), enums.ActorRoleCustomer)
	resp := httptest.NewRecorder()
	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		status int
		want   enums.DeliveryStatus
	}{
		{"valid", `{"status":"Delivered"}`, http.StatusOK, enums.DeliveryStatusDelivered},
		{"unknown", `{"status":"Teleported"}`, http.StatusBadRequest, ""},
		{"missing", `{}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOrders{}
			handler := AdminUpdateOrderStatus(svc, testLogger())

			req := httptest.NewRequest(http.MethodPut, "/api/admin/orders/x/status", strings.NewReader(tc.body))
			req = withURLParam(withCaller(req, uuid.New(), enums.ActorRoleAdmin), "orderId", uuid.NewString())
			resp := httptest.NewRecorder()
			handler(resp, req)

			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
			assert.Equal(t, tc.want, svc.updated)
		})
	}
}

type fakeWishlist struct {
	wishlist.Service
	added uuid.UUID
}

func (f *fakeWishlist) Add(_ context.Context, customerID, productID uuid.UUID) (*models.WishlistItem, error) {
	f.added = productID
	return &models.WishlistItem{ID: uuid.New(), CustomerID: customerID, ProductID: productID}, nil
}

func TestWishlistAdd(t *testing.T) {
	svc := &fakeWishlist{}
	productID := uuid.New()
	handler := WishlistAdd(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/wishlist", strings.NewReader(`{"productId":"`+productID.String()+`"}`))
	resp := httptest.NewRecorder()
	handler(resp, withCaller(req, uuid.New(), enums.ActorRoleCustomer))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, productID, svc.added)
}

type fakeChat struct {
	chat.Service
	online bool
	sender chat.Sender
}

func (f *fakeChat) SendCustomerToSeller(_ context.Context, from chat.Sender, sellerID uuid.UUID, text string) (*chat.SendResult, error) {
	f.sender = from
	return &chat.SendResult{
		Message:   models.ChatMessage{SenderID: from.ID.String(), ReceiverID: sellerID.String(), Message: text},
		Delivered: f.online,
	}, nil
}

func TestChatCustomerToSellerReportsDelivery(t *testing.T) {
	for _, online := range []bool{true, false} {
		svc := &fakeChat{online: online}
		customerID := uuid.New()
		handler := ChatCustomerToSeller(svc, testLogger())

		body := `{"sellerId":"` + uuid.NewString() + `","message":"is this in stock?"}`
		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/chat/customer/messages", strings.NewReader(body)), customerID, enums.ActorRoleCustomer)
		resp := httptest.NewRecorder()
		handler(resp, req)

		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		var envelope struct {
			Data struct {
				Delivered bool `json:"delivered"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		assert.Equal(t, online, envelope.Data.Delivered)
		assert.Equal(t, customerID, svc.sender.ID)
	}
}

type fakeIntents struct {
	customerID, orderID uuid.UUID
}

func (f *fakeIntents) CreatePaymentIntent(_ context.Context, customerID, orderID uuid.UUID) (string, error) {
	f.customerID, f.orderID = customerID, orderID
	return "pi_secret_123", nil
}

func TestCreatePaymentIntent(t *testing.T) {
	svc := &fakeIntents{}
	customerID, orderID := uuid.New(), uuid.New()
	handler := CreatePaymentIntent(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/x/payment-intent", nil)
	req = withURLParam(withCaller(req, customerID, enums.ActorRoleCustomer), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), "pi_secret_123")
	assert.Equal(t, orderID, svc.orderID)
	assert.Equal(t, customerID, svc.customerID)
}

func TestCreatePaymentIntent_BadOrderID(t *testing.T) {
	handler := CreatePaymentIntent(&fakeIntents{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/orders/x/payment-intent", nil)
	req = withURLParam(withCaller(req, uuid.New(), enums.ActorRoleCustomer), "orderId", "not-a-uuid")
	resp := httptest.NewRecorder()
	handler(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	handler := HealthReady(&config.Config{App: config.AppConfig{Env: "test"}}, testLogger(), map[string]Pinger{"db": pingerFunc(func(context.Context) error { return io.ErrUnexpectedEOF })})

	resp := httptest.NewRecorder()
	handler(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.NotEqual(t, http.StatusOK, resp.Code)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
