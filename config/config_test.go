package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setRequired(t *testing.T) {
	t.Setenv("MERCADO_PAGO_ACCESS_TOKEN", "APP_USR-test")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "https://api.mercadopago.com", cfg.MercadoPago.BaseURL)
	assert.Equal(t, "@Panambipokerfichas", cfg.Telegram.ChatID)
	assert.Equal(t, NotifyModeSync, cfg.Notify.Mode)
	assert.Equal(t, 3, cfg.Notify.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Notify.BaseDelay)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.WhatsApp.Targets)
}

func TestLoadWhatsAppTargets(t *testing.T) {
	setRequired(t)
	t.Setenv("WHATSAPP_TARGETS", "555597123681:key-a, 555592215747:key-b")

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	require.Len(t, cfg.WhatsApp.Targets, 2)
	assert.Equal(t, WhatsAppTarget{Phone: "555597123681", APIKey: "key-a"}, cfg.WhatsApp.Targets[0])
	assert.Equal(t, WhatsAppTarget{Phone: "555592215747", APIKey: "key-b"}, cfg.WhatsApp.Targets[1])
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing access token", env: map[string]string{"MERCADO_PAGO_ACCESS_TOKEN": ""}},
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "bad notify mode", env: map[string]string{"NOTIFY_MODE": "later"}},
		{name: "zero attempts", env: map[string]string{"NOTIFY_MAX_ATTEMPTS": "0"}},
		{name: "target without key", env: map[string]string{"WHATSAPP_TARGETS": "555597123681"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "pix", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/pix?sslmode=disable", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
