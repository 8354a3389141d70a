package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/listingz-backend/pkg/config"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
)

const (
	EnvTest = "test"
	EnvLive = "live"
)

var (
	ErrAPIKeyRequired = errors.New("stripe api key is required")
	ErrSecretRequired = errors.New("stripe webhook secret is required")
	ErrInvalidEnv     = fmt.Errorf("stripe environment must be %q or %q", EnvTest, EnvLive)
)

// Client holds the validated Stripe credentials for one environment.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
}

// NewClient validates the key against the configured environment and sets
// the package-level key used by the resource packages (paymentintent, ...).
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrSecretRequired
	}
	if err := checkKeyMatchesEnv(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey
	if logg != nil {
		logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client ready")
	}
	return &Client{
		api:           stripe.NewClient(apiKey),
		environment:   env,
		signingSecret: secret,
	}, nil
}

// NewWebhookVerifier builds a client that can only verify webhook signatures.
func NewWebhookVerifier(secret string) *Client {
	return &Client{environment: EnvTest, signingSecret: strings.TrimSpace(secret)}
}

func (c *Client) API() *stripe.Client {
	if c == nil {
		return nil
	}
	return c.api
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// VerifyEvent checks the Stripe-Signature header and decodes the event.
func (c *Client) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	if c == nil || c.signingSecret == "" {
		return stripe.Event{}, ErrSecretRequired
	}
	return webhook.ConstructEventWithOptions(payload, signature, c.signingSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	switch env {
	case "":
		return EnvTest, nil
	case EnvTest, EnvLive:
		return env, nil
	default:
		return "", ErrInvalidEnv
	}
}

func checkKeyMatchesEnv(env, key string) error {
	prefixes := []string{"sk_" + env, "rk_" + env}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a %s secret key (%s)", env, env, strings.Join(prefixes, "/"))
}
