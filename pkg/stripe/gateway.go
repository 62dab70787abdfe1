package stripe

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/transfer"
)

// MetadataOrderID is the payment intent metadata key carrying the order id.
const MetadataOrderID = "order_id"

// PaymentIntentInput describes a charge for one customer order.
type PaymentIntentInput struct {
	AmountCents int64
	Currency    string
	OrderID     string
}

// PaymentIntent is the subset of the Stripe intent handed back to the client.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// TransferInput moves funds to a connected account. IdempotencyKey keeps
// operator retries from paying twice.
type TransferInput struct {
	AmountCents    int64
	Currency       string
	Destination    string
	IdempotencyKey string
}

// Gateway exposes the Stripe operations the marketplace needs.
type Gateway struct {
	client *Client
}

// NewGateway wraps an initialized client.
func NewGateway(client *Client) (*Gateway, error) {
	if client == nil {
		return nil, errors.New("stripe client required")
	}
	return &Gateway{client: client}, nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error) {
	if input.AmountCents <= 0 {
		return nil, errors.New("payment amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(currencyOrDefault(input.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataOrderID, input.OrderID)
	params.SetIdempotencyKey("payment-intent-" + input.OrderID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return &PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *Gateway) CreateExpressAccount(ctx context.Context, email, country string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(strings.ToUpper(strings.TrimSpace(country))),
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	acct, err := account.New(params)
	if err != nil {
		return "", err
	}
	return acct.ID, nil
}

func (g *Gateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := accountlink.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func (g *Gateway) Transfer(ctx context.Context, input TransferInput) (string, error) {
	if input.AmountCents <= 0 {
		return "", errors.New("transfer amount must be positive")
	}
	if strings.TrimSpace(input.Destination) == "" {
		return "", errors.New("transfer destination required")
	}
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(input.AmountCents),
		Currency:    stripe.String(currencyOrDefault(input.Currency)),
		Destination: stripe.String(input.Destination),
	}
	params.Context = ctx
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	tr, err := transfer.New(params)
	if err != nil {
		return "", err
	}
	return tr.ID, nil
}

func currencyOrDefault(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return string(stripe.CurrencyUSD)
	}
	return currency
}
