package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"BACKEND_CONFIG", "APP_ID", "INITIAL_AUTH_TOKEN", "PORT", "CORS_ORIGINS", "ADMIN_EMAIL", "ADMIN_PASSWORD", "SESSION_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, defaultBackend(), cfg.Backend)
	assert.Equal(t, "default-app-id", cfg.AppID)
	assert.Empty(t, cfg.InitialAuthToken)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "admin@civicsync.gov", cfg.AdminEmail)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "artifacts/default-app-id/public/data/issues", cfg.Paths().Issues)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKEND_CONFIG", `{"mongoUri":"mongodb://db:27017","database":"city","redisAddress":"cache:6379","redisDb":2,"tokenSecret":"s3cret"}`)
	t.Setenv("APP_ID", "springfield")
	t.Setenv("INITIAL_AUTH_TOKEN", "tok")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SESSION_TTL", "30m")

	cfg := Load()

	assert.Equal(t, Backend{
		MongoURI:     "mongodb://db:27017",
		Database:     "city",
		RedisAddress: "cache:6379",
		RedisDB:      2,
		TokenSecret:  "s3cret",
	}, cfg.Backend)
	assert.Equal(t, "springfield", cfg.AppID)
	assert.Equal(t, "tok", cfg.InitialAuthToken)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "artifacts/springfield/public/data/profiles", cfg.Paths().Profiles)
}

func TestPartialBackendKeepsPlaceholders(t *testing.T) {
	backend := loadBackend(`{"database":"only-db"}`)
	assert.Equal(t, "only-db", backend.Database)
	assert.Equal(t, defaultBackend().MongoURI, backend.MongoURI)
}

func TestInvalidBackendFallsBack(t *testing.T) {
	assert.Equal(t, defaultBackend(), loadBackend(`{not json`))
}

func TestAdminIsHashed(t *testing.T) {
	cfg := &Config{AdminEmail: "ops@city.gov", AdminPassword: "pw"}

	admin, err := cfg.Admin()
	require.NoError(t, err)
	assert.NotEqual(t, "pw", admin.Password)
	assert.True(t, admin.Matches("OPS@city.gov", "pw"))
	assert.False(t, admin.Matches("ops@city.gov", "nope"))
	assert.False(t, admin.Matches("other@city.gov", "pw"))
}
