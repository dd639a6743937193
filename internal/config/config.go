package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and the database location are required,
// everything else has a default suitable for local development.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DatabaseURL    string        // go-sql-driver DSN; built from DB_* parts when DATABASE_URL is unset
	SecretKey      string        // signs session cookies and verification tokens
	BcryptCost     int           // bcrypt cost for password hashing
	VerifyTokenTTL time.Duration // lifetime of an identity verification token
	SessionMaxAge  time.Duration // lifetime of a login session
	SessionSecure  bool          // mark the session cookie Secure (HTTPS only)
	AMQPURL        string        // broker URL; empty disables event publishing
	MigrateOnStart bool          // apply pending migrations before serving
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "5000"),
		DatabaseURL:    databaseURL(),
		SecretKey:      must("SECRET_KEY"),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		VerifyTokenTTL: envDur("VERIFY_TOKEN_TTL", 30*time.Minute),
		SessionMaxAge:  envDur("SESSION_MAX_AGE", 7*24*time.Hour),
		SessionSecure:  envBool("SESSION_SECURE", false),
		AMQPURL:        amqpURL(),
		MigrateOnStart: envBool("MIGRATE_ON_START", true),
	}
}

// IsDev reports whether the application runs in a development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// databaseURL prefers DATABASE_URL and otherwise assembles a DSN from the
// DB_USER, DB_PASS, DB_HOST, DB_PORT and DB_NAME variables.
func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	return BuildDSN(must("DB_USER"), os.Getenv("DB_PASS"), must("DB_HOST"), envStr("DB_PORT", "3306"), must("DB_NAME"))
}

// BuildDSN formats a go-sql-driver DSN.  parseTime=true maps DATETIME to
// time.Time and loc=UTC keeps times consistent.
func BuildDSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC", auth, host, port, name)
}

func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
