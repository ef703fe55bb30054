package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("PORT", "")
	t.Setenv("MONGODB_DB", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "kamuy", cfg.MongoDB)
	assert.False(t, cfg.ReleaseMode)
	assert.Equal(t,
		[]string{"http://localhost:3000", "http://localhost:5173"},
		cfg.CORSOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MONGODB_URI", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without JWT_SECRET and MONGODB_URI")
	}
}

func TestLoadCORSOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("CORS_ORIGINS", " https://kamuy.app ,, https://www.kamuy.app ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	assert.Equal(t,
		[]string{"https://kamuy.app", "https://www.kamuy.app"},
		cfg.CORSOrigins)
}
