package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiz-hub/quiz-hub/internal/domain/game"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "POSTGRES_HOST", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_PORT"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, 2*time.Hour, cfg.IdleTTL)
	assert.Equal(t, game.DefaultPolicy(), cfg.Policy)
	assert.Nil(t, cfg.SigningKey())
}

func TestLoad_PostgresFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_USER", "quiz")
	t.Setenv("POSTGRES_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://quiz:pw@db:5432/quiz_hub?sslmode=disable", cfg.DatabaseURL)
}

func TestLoad_PolicyOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GAME_BUTTON_PRESS_TIME", "70")
	t.Setenv("GAME_STAKE_STEP", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.Policy.ButtonPressTime)
	assert.Equal(t, 50, cfg.Policy.StakeStep)
	assert.Equal(t, 300, cfg.Policy.ChoosingTime)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero stake step", "GAME_STAKE_STEP", "0"},
		{"majority not a fraction", "GAME_VOTE_MAJORITY_NUMERATOR", "3"},
		{"negative lock timeout", "SESSION_LOCK_TIMEOUT", "-1s"},
		{"signing key not hex", "REPORT_SIGNING_KEY", "not-hex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	t.Run("unparsable duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REAP_INTERVAL", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestConfig_SigningKey(t *testing.T) {
	cfg := &Config{ReportSigningKey: "00ff"}
	assert.Equal(t, []byte{0x00, 0xff}, cfg.SigningKey())
}
