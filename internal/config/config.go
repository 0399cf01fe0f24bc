package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBMaxConns         int32  `envconfig:"DB_MAX_CONNS" default:"25"`

	// JWTSecret is either an HMAC secret or a PEM public key. When
	// JWTSecretResource is set the value is loaded from Secret Manager instead.
	JWTSecret         string `envconfig:"JWT_SECRET"`
	JWTSecretResource string `envconfig:"JWT_SECRET_RESOURCE"`

	// LegacyCourseAliases maps retired course slugs to current course ids,
	// e.g. "ai-in-web-development:6f1c...,old-slug:9a2b...".
	LegacyCourseAliases map[string]string `envconfig:"LEGACY_COURSE_ALIASES"`

	// Course thumbnails
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Google Cloud
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubEnrollmentTopic         string `envconfig:"PUBSUB_ENROLLMENT_TOPIC"`
	PubSubRegistrationTopic       string `envconfig:"PUBSUB_REGISTRATION_TOPIC" default:"cohort-registrations"`
	RegistrationPushAudience      string `envconfig:"REGISTRATION_PUSH_AUDIENCE"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Stripe
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	CheckoutReturnURL   string `envconfig:"CHECKOUT_RETURN_URL" default:"http://localhost:3000/courses"`

	// Roster orchestrator settings
	RosterQueueName           string `envconfig:"ROSTER_QUEUE_NAME" default:"roster_queue"`
	RosterPollTimeoutSec      int    `envconfig:"ROSTER_POLL_TIMEOUT_SEC" default:"30"`
	RosterPollMaxMsg          int    `envconfig:"ROSTER_POLL_MAX_MSG" default:"10"`
	RosterMaxRetries          int    `envconfig:"ROSTER_MAX_RETRIES" default:"5"`
	RosterBackoffInitialSec   int    `envconfig:"ROSTER_BACKOFF_INITIAL_SEC" default:"1"`
	RosterBackoffMaxSec       int    `envconfig:"ROSTER_BACKOFF_MAX_SEC" default:"60"`
	RosterDeadLetterQueueName string `envconfig:"ROSTER_DEAD_LETTER_QUEUE_NAME" default:"roster_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.LegacyCourseAliases = normalizeAliases(cfg.LegacyCourseAliases)
	return &cfg, nil
}

// IsDevelopment reports whether the app runs against local services.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// normalizeAliases lower-cases and trims alias keys so lookups can be
// case-insensitive.
func normalizeAliases(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for slug, id := range in {
		slug = strings.ToLower(strings.TrimSpace(slug))
		id = strings.TrimSpace(id)
		if slug == "" || id == "" {
			continue
		}
		out[slug] = id
	}
	return out
}

// DatabaseDSN returns the connection string with local defaults applied.
// Local databases run without SSL; elsewhere the connection goes through a
// transaction pooler, which requires the simple query protocol.
func (c *Config) DatabaseDSN() string {
	dsn := c.DBConnectionString
	if c.IsDevelopment() {
		if !strings.Contains(dsn, "sslmode") {
			dsn = appendDSNParam(dsn, "sslmode", "disable")
		}
		return dsn
	}
	if !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = appendDSNParam(dsn, "default_query_exec_mode", "simple_protocol")
	}
	return dsn
}

// appendDSNParam handles both URL and keyword/value connection strings.
func appendDSNParam(dsn, key, value string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + key + "=" + value
		}
		return dsn + "?" + key + "=" + value
	}
	return dsn + " " + key + "=" + value
}
