package config

import "os"

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        string
	MongoURI    string
	MongoDBName string
	RedisAddr   string
}

// AuthConfig holds token-signing settings
type AuthConfig struct {
	JWTSecret []byte
	// TokenTTLHours is the lifetime of issued tokens
	TokenTTLHours int
}

// NLPConfig holds settings for the external conversational service
type NLPConfig struct {
	// BaseURL is the conversational-form API root, e.g.
	// http://localhost:8000/api/conversational-form
	BaseURL string

	// CallbackURL is where the NLP service posts final answers
	CallbackURL string

	TimeoutMS  int
	MaxRetries int
}

// DefaultServerConfig returns server configuration from the environment
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		MongoURI:    getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnvOrDefault("MONGO_DB", "formbridge"),
		RedisAddr:   getEnvOrDefault("REDIS_URI", "localhost:6379"),
	}
}

// DefaultAuthConfig returns auth configuration from the environment
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		JWTSecret:     []byte(getEnvOrDefault("JWT_SECRET", "super-secret-key-change-in-production")),
		TokenTTLHours: 24 * 30,
	}
}

// DefaultNLPConfig returns NLP service configuration from the environment
func DefaultNLPConfig() *NLPConfig {
	return &NLPConfig{
		BaseURL:     getEnvOrDefault("NLP_API_URL", "http://localhost:8000/api/conversational-form"),
		CallbackURL: getEnvOrDefault("NLP_CALLBACK_URL", "http://localhost:8080/v1/responses/callback"),
		TimeoutMS:   30000,
		MaxRetries:  5,
	}
}

// IsEnabled returns true if an NLP service endpoint is configured
func (c *NLPConfig) IsEnabled() bool {
	return c.BaseURL != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
