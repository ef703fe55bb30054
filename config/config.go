package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	MongoURI  string
	MongoDB   string
	JWTSecret string

	CloudinaryURL string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDEmail      string

	CORSOrigins []string
	ReleaseMode bool
}

// Load reads .env (when present) and the environment. JWT_SECRET and
// MONGODB_URI are required; everything else has a default or disables the
// feature it configures.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDB:         getEnv("MONGODB_DB", "kamuy"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		CloudinaryURL:   os.Getenv("CLOUDINARY_URL"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDEmail:      getEnv("VAPID_EMAIL", "mailto:admin@kamuy.app"),
		ReleaseMode:     os.Getenv("GIN_MODE") == "release",
	}

	if cfg.JWTSecret == "" || cfg.MongoURI == "" {
		return nil, fmt.Errorf("JWT_SECRET and MONGODB_URI must be set")
	}

	origins := getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
