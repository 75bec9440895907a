package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "HTTP_PORT", "FACE_SKIP", "FACE_TIMEOUT", "CALENDAR_FUTURE_POLICY", "AUTH_DEV_ISSUE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.False(t, cfg.FaceSkip)
	assert.False(t, cfg.AuthDevIssue)
	assert.Equal(t, 30*time.Second, cfg.FaceTimeout)
	assert.Equal(t, "instant", cfg.FuturePolicy)
	assert.False(t, cfg.IsProduction())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("FACE_SKIP", "true")
	t.Setenv("FACE_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("ATTENDANCE_TZ", "UTC")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.FaceSkip)
	assert.ErrorIs(t, cfg.Validate(), ErrSkipInProduction)
	assert.Equal(t, 5*time.Second, cfg.FaceTimeout)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, "demo", cfg.Cloudinary.CloudName)
	assert.Equal(t, "UTC", cfg.Location().String())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("FACE_SKIP", "maybe")
	t.Setenv("FACE_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("ATTENDANCE_TZ", "Mars/Olympus")

	cfg := Load()
	assert.False(t, cfg.FaceSkip)
	assert.Equal(t, 30*time.Second, cfg.FaceTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Equal(t, time.Local, cfg.Location())
}

func TestValidateAllowsSkipOutsideProduction(t *testing.T) {
	cfg := App{Env: "dev", FaceSkip: true}
	assert.NoError(t, cfg.Validate())

	cfg.Env = "prod"
	assert.ErrorIs(t, cfg.Validate(), ErrSkipInProduction)

	cfg.FaceSkip = false
	assert.NoError(t, cfg.Validate())
}
