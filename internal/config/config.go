package config

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	PublicBaseURL      string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Intake protection
	LeadRateLimitRPS   float64
	LeadRateLimitBurst int
	IdempotencyTTL     time.Duration

	// Zoho CRM
	ZohoClientID       string
	ZohoClientSecret   string
	ZohoRefreshToken   string
	ZohoTokenURL       string
	ZohoLeadsURL       string
	CRMRetryMaxAttempt int
	CRMRetryBaseDelay  time.Duration
	CRMRetryInterval   time.Duration

	// Google Ads conversions
	GoogleConversionID   string
	ConversionLabelsJSON string

	// SEO scan
	SEOScanTimeout        time.Duration
	SEOScanUserAgent      string
	SEOScanBrowserMetrics bool

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// SES Email Configuration
	SESFromEmail        string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	SalesNotifyEmail string
	OutboxInterval   time.Duration

	// WorkerMetricsAddr is where the worker serves /metrics; "off" disables it.
	WorkerMetricsAddr string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		LeadRateLimitRPS:   getEnvAsFloat("LEAD_RATE_LIMIT_RPS", 0.5),
		LeadRateLimitBurst: getEnvAsInt("LEAD_RATE_LIMIT_BURST", 5),
		IdempotencyTTL:     getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		ZohoClientID:       getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret:   getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken:   getEnv("ZOHO_REFRESH_TOKEN", ""),
		ZohoTokenURL:       getEnv("ZOHO_TOKEN_URL", "https://accounts.zoho.in/oauth/v2/token"),
		ZohoLeadsURL:       getEnv("ZOHO_LEADS_URL", "https://www.zohoapis.in/crm/v2/Leads"),
		CRMRetryMaxAttempt: getEnvAsInt("CRM_RETRY_MAX_ATTEMPTS", 5),
		CRMRetryBaseDelay:  getEnvAsDuration("CRM_RETRY_BASE_DELAY", time.Minute),
		CRMRetryInterval:   getEnvAsDuration("CRM_RETRY_INTERVAL", 30*time.Second),

		GoogleConversionID:   getEnv("GOOGLE_CONVERSION_ID", ""),
		ConversionLabelsJSON: getEnv("CONVERSION_LABELS_JSON", ""),

		SEOScanTimeout:        getEnvAsDuration("SEO_SCAN_TIMEOUT", 10*time.Second),
		SEOScanUserAgent:      getEnv("SEO_SCAN_USER_AGENT", "Mozilla/5.0 (compatible; SEOAuditBot/1.0)"),
		SEOScanBrowserMetrics: getEnvAsBool("SEO_SCAN_BROWSER_METRICS", false),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Lead Desk"),

		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SalesNotifyEmail: getEnv("SALES_NOTIFY_EMAIL", ""),
		OutboxInterval:   getEnvAsDuration("OUTBOX_INTERVAL", 2*time.Second),

		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
	}
}

// IsProduction reports whether the service runs outside local development.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env != "" && env != "development" && env != "dev" && env != "test"
}

// ConversionLabels decodes CONVERSION_LABELS_JSON into an event→label map.
func (c *Config) ConversionLabels() (map[string]string, error) {
	labels := map[string]string{}
	if strings.TrimSpace(c.ConversionLabelsJSON) == "" {
		return labels, nil
	}
	if err := json.Unmarshal([]byte(c.ConversionLabelsJSON), &labels); err != nil {
		return nil, errors.New("config: CONVERSION_LABELS_JSON must be a JSON object of strings")
	}
	return labels, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && strings.TrimSpace(c.AdminJWTSecret) == "" {
		errs = append(errs, errors.New("config: ADMIN_JWT_SECRET is required outside development"))
	}
	if c.CRMRetryMaxAttempt < 0 {
		errs = append(errs, errors.New("config: CRM_RETRY_MAX_ATTEMPTS must not be negative"))
	}
	if c.LeadRateLimitRPS < 0 || c.LeadRateLimitBurst < 0 {
		errs = append(errs, errors.New("config: lead rate limit must not be negative"))
	}
	if _, err := c.ConversionLabels(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
