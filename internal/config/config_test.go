package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/dialin/internal/errors"
	"github.com/ZanzyTHEbar/dialin/internal/types"
)

var envKeys = []string{
	"PORT", "DATA_DIR", "LOG_LEVEL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"CACHE_TTL", "RATE_LIMIT_PER_MIN", "ALLOWED_ORIGINS", "SWEEP_SCHEDULE",
	"SETTINGS_FILE", "ENABLE_HSTS",
}

// clearEnv blanks every key Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("./data", "equipment.yaml"), cfg.Storage.SettingsFile)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, 120, cfg.Security.RateLimitPerMin)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "@every 1h", cfg.Scheduler.SweepSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9090\nDATA_DIR=/var/lib/dialin\nREDIS_ADDR=localhost:6379\nREDIS_DB=2\n" +
		"CACHE_TTL=90s\nALLOWED_ORIGINS= http://a.test , http://b.test ,\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	// godotenv.Load does not override variables that are already set, so unset them.
	for _, k := range envKeys {
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/var/lib/dialin", cfg.Storage.DataDir)
	assert.Equal(t, "/var/lib/dialin/equipment.yaml", cfg.Storage.SettingsFile)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 2, cfg.Cache.RedisDB)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric redis db", "REDIS_DB", "one"},
		{"negative redis db", "REDIS_DB", "-1"},
		{"bad rate limit", "RATE_LIMIT_PER_MIN", "lots"},
		{"negative rate limit", "RATE_LIMIT_PER_MIN", "-5"},
		{"bad ttl", "CACHE_TTL", "soon"},
		{"zero ttl", "CACHE_TTL", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.CategoryConfiguration, appErr.Category)
			assert.Contains(t, appErr.Error(), tt.key)
		})
	}
}

func TestLoad_BareSecondsTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL", "30")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestEquipment_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "equipment.yaml")

	eq := &Equipment{
		Grinder: &types.GrinderConfiguration{ScaleMin: 0, ScaleMax: 40, StepSize: 1},
	}
	require.NoError(t, WriteEquipment(path, eq))

	got, err := ReadEquipment(path)
	require.NoError(t, err)
	require.NotNil(t, got.Grinder)
	assert.Equal(t, 40.0, got.Grinder.ScaleMax)
	assert.Nil(t, got.Basket)
}

func TestReadEquipment(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		eq, err := ReadEquipment(filepath.Join(dir, "nope.yaml"))
		require.NoError(t, err)
		assert.Nil(t, eq.Grinder)
		assert.Nil(t, eq.Basket)
	})

	t.Run("hand written yaml", func(t *testing.T) {
		path := filepath.Join(dir, "equipment.yaml")
		content := "basket:\n  coffee_in_min: 14\n  coffee_in_max: 22\n  coffee_out_min: 20\n  coffee_out_max: 60\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		eq, err := ReadEquipment(path)
		require.NoError(t, err)
		require.NotNil(t, eq.Basket)
		assert.Equal(t, types.BasketConfiguration{
			CoffeeInMin: 14, CoffeeInMax: 22, CoffeeOutMin: 20, CoffeeOutMax: 60,
		}, *eq.Basket)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("grinder: [1, 2"), 0644))

		_, err := ReadEquipment(path)
		assert.Error(t, err)
	})
}

func TestDefaultEquipment(t *testing.T) {
	eq := DefaultEquipment()
	assert.Equal(t, types.DefaultGrinderConfiguration(), *eq.Grinder)
	assert.Equal(t, types.DefaultBasketConfiguration(), *eq.Basket)
}
