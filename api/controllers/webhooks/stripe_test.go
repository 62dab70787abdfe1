package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/easyshop-backend/pkg/idempotency"
)

const testSecret = "whsec_test"

// harness posts one signed payment_intent.succeeded event at the handler.
type harness struct {
	t       *testing.T
	events  *recordingService
	guard   *idempotency.Guard
	handler http.HandlerFunc
	eventID string
	payload []byte
	header  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	guard, err := idempotency.NewGuard(&kvStore{data: map[string]string{}}, time.Minute, time.Hour)
	require.NoError(t, err)

	h := &harness{t: t, events: &recordingService{}, guard: guard}
	h.handler = StripeWebhook(h.events, staticSecret(testSecret), guard, nil)
	h.eventID, h.payload = signedIntentEvent(t)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: h.payload, Secret: testSecret})
	h.header = signed.Header
	return h
}

func (h *harness) post(signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(h.payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func TestStripeWebhookProcessesEachEventOnce(t *testing.T) {
	h := newHarness(t)

	for attempt := range 2 {
		rec := h.post(h.header)
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d: %s", attempt, rec.Body.String())
	}
	assert.Equal(t, 1, h.events.calls)
	assert.Equal(t, stripe.EventTypePaymentIntentSucceeded, h.events.lastType)
}

func TestStripeWebhookFailureAllowsRedelivery(t *testing.T) {
	h := newHarness(t)
	h.events.err = errors.New("db down")

	assert.Equal(t, http.StatusInternalServerError, h.post(h.header).Code)

	h.events.err = nil
	assert.Equal(t, http.StatusOK, h.post(h.header).Code)
	assert.Equal(t, 2, h.events.calls)
}

func TestStripeWebhookConflictsWhileEventInFlight(t *testing.T) {
	h := newHarness(t)
	outcome, err := h.guard.Claim(context.Background(), StripeConsumer, h.eventID)
	require.NoError(t, err)
	require.Equal(t, idempotency.Claimed, outcome)

	assert.Equal(t, http.StatusConflict, h.post(h.header).Code)
	assert.Zero(t, h.events.calls)
}

func TestStripeWebhookRejectsBadSignatures(t *testing.T) {
	h := newHarness(t)
	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   h.payload,
		Secret:    testSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})

	cases := map[string]string{
		"missing":      "",
		"garbage":      "t=1,v1=invalid",
		"wrong secret": webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: h.payload, Secret: "whsec_other"}).Header,
		"expired":      stale.Header,
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, h.post(sig).Code)
		})
	}
	assert.Zero(t, h.events.calls)
}

func TestStripeWebhookUnwired(t *testing.T) {
	handler := StripeWebhook(nil, staticSecret(testSecret), nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func signedIntentEvent(t *testing.T) (string, []byte) {
	t.Helper()
	intent, err := json.Marshal(&stripe.PaymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Status:   stripe.PaymentIntentStatusSucceeded,
		Amount:   18550,
		Currency: stripe.CurrencyUSD,
		Metadata: map[string]string{"order_id": uuid.NewString()},
	})
	require.NoError(t, err)

	id := "evt_" + uuid.NewString()
	payload, err := json.Marshal(&stripe.Event{
		ID:         id,
		Type:       stripe.EventTypePaymentIntentSucceeded,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: intent},
	})
	require.NoError(t, err)
	return id, payload
}

type recordingService struct {
	calls    int
	lastType stripe.EventType
	err      error
}

func (r *recordingService) HandleEvent(_ context.Context, event *stripe.Event) error {
	r.calls++
	r.lastType = event.Type
	return r.err
}

type staticSecret string

func (s staticSecret) SigningSecret() string { return string(s) }

// kvStore is a map-backed redis.IdempotencyStore.
type kvStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *kvStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *kvStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	return nil
}

func (s *kvStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.data[key]; taken {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *kvStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *kvStore) IdempotencyKey(scope, id string) string {
	return "es:idempotency:" + scope + ":" + id
}
