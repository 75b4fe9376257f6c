package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationDefaultsToLocal(t *testing.T) {
	assert.Equal(t, time.Local, App{}.Location())
	assert.Equal(t, time.Local, App{Timezone: "Not/AZone"}.Location())
}

func TestLocationLoadsIANAName(t *testing.T) {
	loc := App{Timezone: "Asia/Kolkata"}.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACCESS_TTL", "")
	t.Setenv("AUTH_REQUIRED", "")
	cfg := Load()
	assert.NotEmpty(t, cfg.HTTPPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.False(t, cfg.AuthRequired)
}
