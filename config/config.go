package config

import (
	"log"
	"os"
	"strings"
	"time"

	"civicsync-dashboard/models"
	"civicsync-dashboard/store"

	"github.com/goccy/go-json"
)

// Backend holds the connection parameters supplied by the hosting environment
// as a single JSON blob in BACKEND_CONFIG.
type Backend struct {
	MongoURI      string `json:"mongoUri"`
	Database      string `json:"database"`
	RedisAddress  string `json:"redisAddress"`
	RedisPassword string `json:"redisPassword"`
	RedisDB       int    `json:"redisDb"`
	TokenSecret   string `json:"tokenSecret"`
}

// Placeholder connection parameters used when BACKEND_CONFIG is absent.
func defaultBackend() Backend {
	return Backend{
		MongoURI:     "mongodb://localhost:27017/?replicaSet=rs0",
		Database:     "civicsync",
		RedisAddress: "localhost:6379",
		TokenSecret:  "YOUR_TOKEN_SECRET",
	}
}

type Config struct {
	Backend Backend

	// Tenant identifier that prefixes every collection path
	AppID string
	// Optional token exchanged for a session at startup
	InitialAuthToken string

	// Server
	Port        string
	CORSOrigins []string

	// Auth
	AdminEmail    string
	AdminPassword string
	SessionTTL    time.Duration
}

func Load() *Config {
	return &Config{
		Backend:          loadBackend(os.Getenv("BACKEND_CONFIG")),
		AppID:            getEnv("APP_ID", store.DefaultTenant),
		InitialAuthToken: os.Getenv("INITIAL_AUTH_TOKEN"),
		Port:             getEnv("PORT", "8080"),
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		AdminEmail:       getEnv("ADMIN_EMAIL", "admin@civicsync.gov"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "admin123"),
		SessionTTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
	}
}

func loadBackend(blob string) Backend {
	backend := defaultBackend()
	if blob == "" {
		return backend
	}
	if err := json.Unmarshal([]byte(blob), &backend); err != nil {
		log.Println("Invalid BACKEND_CONFIG, using placeholders:", err)
		return defaultBackend()
	}
	return backend
}

// Paths returns the tenant-scoped collection paths.
func (c *Config) Paths() store.Paths {
	return store.TenantPaths(c.AppID)
}

// Admin builds the dashboard credential with its password hashed.
func (c *Config) Admin() (*models.Admin, error) {
	admin := &models.Admin{Email: c.AdminEmail, Password: c.AdminPassword}
	if err := admin.HashPassword(); err != nil {
		return nil, err
	}
	return admin, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
