package config

import (
	"fmt"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
)

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	// ClientURL is the public web app origin used for checkout redirects.
	ClientURL string `mapstructure:"client_url"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
	// TierPrices maps a subscription tier (standard, premium) to a Stripe price id.
	TierPrices       map[string]string `mapstructure:"tier_prices"`
	SuccessPath      string            `mapstructure:"success_path"`
	CancelPath       string            `mapstructure:"cancel_path"`
	PortalReturnPath string            `mapstructure:"portal_return_path"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	CatalogTTL time.Duration `mapstructure:"catalog_ttl"`
	Channel    string        `mapstructure:"channel"`
}

type EntitlementConfig struct {
	AccessWindow    time.Duration `mapstructure:"access_window"`
	PreviewLimit    int           `mapstructure:"preview_limit"`
	OneTimeLevel    string        `mapstructure:"one_time_level"`
	CheckoutTimeout time.Duration `mapstructure:"checkout_timeout"`
	SweeperInterval time.Duration `mapstructure:"sweeper_interval"`
	SweeperGrace    time.Duration `mapstructure:"sweeper_grace"`
}

// ParseLevel maps hidden, partial or full onto a visibility level.
func ParseLevel(name string) (entity.VisibilityLevel, error) {
	switch name {
	case "hidden":
		return entity.Hidden, nil
	case "partial":
		return entity.PartiallyRevealed, nil
	case "full", "":
		return entity.FullyRevealed, nil
	default:
		return entity.Hidden, fmt.Errorf("unknown visibility level %q", name)
	}
}
