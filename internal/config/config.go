package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string
	AppPort    string
	AppEnv     string

	// AppURL is the public base URL used to build provider redirect URLs.
	AppURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string
	ShippingCountries   []string

	JWTSecret         string
	InternalSecretKey string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:              os.Getenv("DB_HOST"),
		DBUser:              os.Getenv("DB_USER"),
		DBPassword:          os.Getenv("DB_PASSWORD"),
		DBName:              os.Getenv("DB_NAME"),
		DBPort:              os.Getenv("DB_PORT"),
		DBSSLMode:           getenv("DB_SSLMODE", "disable"),
		AppPort:             getenv("APP_PORT", "8080"),
		AppEnv:              os.Getenv("APP_ENV"),
		AppURL:              strings.TrimRight(os.Getenv("APP_URL"), "/"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:            strings.ToLower(getenv("CURRENCY", "inr")),
		ShippingCountries:   splitList(getenv("SHIPPING_COUNTRIES", "IN")),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		InternalSecretKey:   os.Getenv("INTERNAL_SECRET_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Environment variables not loaded properly: %v", err)
	}

	return cfg
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	required := map[string]string{
		"DB_HOST":               c.DBHost,
		"APP_URL":               c.AppURL,
		"STRIPE_SECRET_KEY":     c.StripeSecretKey,
		"STRIPE_WEBHOOK_SECRET": c.StripeWebhookSecret,
		"JWT_SECRET":            c.JWTSecret,
	}
	for _, key := range []string{"DB_HOST", "APP_URL", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "JWT_SECRET"} {
		if required[key] == "" {
			errs = append(errs, errors.New(key+" is required"))
		}
	}
	if len(c.ShippingCountries) == 0 {
		errs = append(errs, errors.New("SHIPPING_COUNTRIES must list at least one country"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
