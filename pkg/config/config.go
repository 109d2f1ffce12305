package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	FirebaseCredentialsPath string
	PostgresConnStr         string
	MongoURI                string
	MongoDB                 string

	// AuthMode is "jwt" or "firebase".
	AuthMode      string
	JWTSecret     string
	InternalToken string

	// PushProvider is "webpush" or "fcm".
	PushProvider     string
	VAPIDPublicKey   string
	VAPIDPrivateKey  string
	VAPIDSubject     string
	PushTimeout      time.Duration
	PushTTL          time.Duration
	DispatchWorkers  int
	FollowerPageSize int

	NATSURL      string
	NATSClientID string
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "relay"),
		AuthMode:                getEnv("AUTH_MODE", "jwt"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		InternalToken:           getEnv("INTERNAL_TOKEN", ""),
		PushProvider:            getEnv("PUSH_PROVIDER", "webpush"),
		VAPIDPublicKey:          getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:         getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:            getEnv("VAPID_SUBJECT", ""),
		PushTimeout:             getEnvDuration("PUSH_TIMEOUT", 10*time.Second),
		PushTTL:                 getEnvDuration("PUSH_TTL", 24*time.Hour),
		DispatchWorkers:         getEnvInt("DISPATCH_CONCURRENCY", 16),
		FollowerPageSize:        getEnvInt("FOLLOWER_PAGE_SIZE", 100),
		NATSURL:                 getEnv("NATS_URL", ""),
		NATSClientID:            getEnv("NATS_CLIENT_ID", "relay"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
