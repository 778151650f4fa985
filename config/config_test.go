package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/courier"
	"github.com/shandysiswandi/courier/config"
)

const sampleYAML = `
courier:
  host: mail.example.com
  port: 587
smtp:
  helo: app.internal
  dial_timeout: 30
  dial_attempts: 3
  ssl: true
  allowed_domains: "x.com, y.com"
`

func TestNewViperFromBytes(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(sampleYAML))
	require.NoError(t, err)
	defer cfg.Close()

	assert.Equal(t, "mail.example.com", cfg.GetString("courier.host"))
	assert.Equal(t, 587, cfg.GetInt("courier.port"))
	assert.Equal(t, uint64(3), cfg.GetUint64("smtp.dial_attempts"))
	assert.True(t, cfg.GetBool("smtp.ssl"))
	assert.Equal(t, 30*time.Second, cfg.GetSecond("smtp.dial_timeout"))
	assert.Equal(t, []string{"x.com", "y.com"}, cfg.GetArray("smtp.allowed_domains"))
}

func TestNewViperFromBytes_MissingKeys(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte("{}"))
	require.NoError(t, err)
	defer cfg.Close()

	assert.Empty(t, cfg.GetString("courier.host"))
	assert.Zero(t, cfg.GetInt("courier.port"))
	assert.Empty(t, cfg.GetArray("smtp.allowed_domains"))
}

func TestNewViperFromBytes_RequiresType(t *testing.T) {
	_, err := config.NewViperFromBytes("  ", []byte(sampleYAML))
	require.Error(t, err)
}

func TestNewCourier(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(sampleYAML))
	require.NoError(t, err)
	defer cfg.Close()

	c, err := config.NewCourier(cfg)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewCourier_RequiresHost(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte("courier:\n  port: 587\n"))
	require.NoError(t, err)
	defer cfg.Close()

	_, err = config.NewCourier(cfg)
	require.ErrorIs(t, err, courier.ErrNoHost)
}
