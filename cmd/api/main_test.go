package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/ambee/internal/config"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("AMBEE_API_KEY", "key")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("JWT_SIGNING_KEY", "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, config.DevSigningKey, cfg.JWT.SigningKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		t.Setenv("AMBEE_API_KEY", "")
		_, err := loadConfig()
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("AMBEE_API_KEY", "key")
		t.Setenv("APP_PORT", "http")
		_, err := loadConfig()
		assert.Error(t, err)
	})
}
