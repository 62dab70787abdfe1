package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/easyshop-backend/pkg/config"
	"github.com/angelmondragon/easyshop-backend/pkg/logger"
)

type mode string

const (
	modeTest mode = "test"
	modeLive mode = "live"
)

// Client holds the Stripe API handle and the webhook signing secret for one
// account mode.
type Client struct {
	api           *stripe.Client
	mode          mode
	signingSecret string
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	m, err := parseMode(cfg.Environment())
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(cfg.APIKey)
	if err := checkKey(m, key); err != nil {
		return nil, err
	}
	secret := strings.TrimSpace(cfg.Secret)
	if !strings.HasPrefix(secret, "whsec_") {
		return nil, errors.New("stripe webhook secret must start with whsec_")
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
	}
	if logg != nil {
		backendCfg.LeveledLogger = leveledLogger{ctx: logg.WithField(ctx, "component", "stripe"), logg: logg}
	}
	api := stripe.NewClient(key, stripe.WithBackends(stripe.NewBackendsWithConfig(backendCfg)))

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"mode": m, "max_retries": cfg.MaxRetries}), "stripe client ready")
	}
	return &Client{api: api, mode: m, signingSecret: secret}, nil
}

func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

// Environment is "test" or "live".
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return string(c.mode)
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

func parseMode(raw string) (mode, error) {
	switch m := mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "", modeTest:
		return modeTest, nil
	case modeLive:
		return modeLive, nil
	default:
		return "", fmt.Errorf("stripe environment %q: want test or live", raw)
	}
}

// checkKey accepts secret (sk_) and restricted (rk_) keys matching the mode.
func checkKey(m mode, key string) error {
	if key == "" {
		return errors.New("stripe api key is required")
	}
	for _, prefix := range []string{"sk_", "rk_"} {
		if strings.HasPrefix(key, prefix+string(m)+"_") {
			return nil
		}
	}
	return fmt.Errorf("stripe %s mode needs an sk_%s_ or rk_%s_ key", m, m, m)
}

// leveledLogger routes stripe-go's own logging into the service logger.
type leveledLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...any) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...any) {
	l.logg.Debug(l.ctx, fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...any) {
	l.logg.Warn(l.ctx, fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...any) {
	l.logg.Error(l.ctx, "stripe client error", fmt.Errorf(format, v...))
}
