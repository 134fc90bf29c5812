package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 30*24*time.Hour, cfg.Entitlement.AccessWindow)
	assert.Equal(t, 3, cfg.Entitlement.PreviewLimit)
	assert.Equal(t, "full", cfg.Entitlement.OneTimeLevel)
	assert.Equal(t, "eur", cfg.Stripe.Currency)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
}

func TestLoadFile_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entitlement.yaml")
	yaml := `
service:
  client_url: https://app.example.com
stripe:
  tier_prices:
    standard: price_std
    premium: price_prem
entitlement:
  preview_limit: 5
  one_time_level: partial
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("ENTITLEMENT_STRIPE_WEBHOOK_SECRET", "whsec_env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://app.example.com", cfg.Service.ClientURL)
	assert.Equal(t, "price_prem", cfg.Stripe.TierPrices["premium"])
	assert.Equal(t, 5, cfg.Entitlement.PreviewLimit)
	assert.Equal(t, "whsec_env", cfg.Stripe.WebhookSecret)

	level, err := ParseLevel(cfg.Entitlement.OneTimeLevel)
	require.NoError(t, err)
	assert.Equal(t, entity.PartiallyRevealed, level)
}

func TestLoadFile_RejectsUnknownLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entitlement:\n  one_time_level: everything\n"), 0o600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
