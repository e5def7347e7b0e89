// Package stripe configures the process-wide Stripe key and carries the
// invoicing settings read by the gateway and the webhook endpoint.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	defaultDaysUntilDue int64 = 30
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// keyPrefixes lists the secret and restricted key prefixes accepted per env.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test", "rk_test"},
	liveEnv: {"sk_live", "rk_live"},
}

type Client struct {
	environment   string
	signingSecret string
	daysUntilDue  int64
}

// NewClient validates the key against FINISHPRO_STRIPE_ENV and installs it
// as stripe.Key for the resource packages.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, errInvalidStripeEnv
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	secret := strings.TrimSpace(cfg.Secret)
	switch {
	case apiKey == "":
		return nil, errAPIKeyRequired
	case secret == "":
		return nil, errSecretRequired
	case !hasAnyPrefix(apiKey, prefixes):
		return nil, fmt.Errorf("stripe environment %q requires a %s key", env, strings.Join(prefixes, "/"))
	}
	stripe.Key = apiKey

	client := &Client{
		environment:   env,
		signingSecret: secret,
		daysUntilDue:  max(cfg.InvoiceDaysUntilDue, 0),
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env":     env,
			"days_until_due": client.InvoiceDaysUntilDue(),
		}), "stripe client initialized")
	}
	return client, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret is the whsec_ value used to verify webhook signatures.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// InvoiceDaysUntilDue is the payment term for send_invoice collection.
func (c *Client) InvoiceDaysUntilDue() int64 {
	if c == nil || c.daysUntilDue == 0 {
		return defaultDaysUntilDue
	}
	return c.daysUntilDue
}
