package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vanbook/backend/internal/utils"
)

// Config holds all application configuration.
type Config struct {
	AppName          string
	OrganizationName string
	AppPort          string
	AppUrl           string

	// DBUrls maps tenant code -> connection URL. TENANT_DB_URLS is a
	// comma-separated list of code=url pairs; DB_URL alone registers the
	// default tenant.
	DBUrls map[string]string

	JWTSecret   []byte
	TokenExpiry time.Duration

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromPhone  string
	SendGridAPIKey   string
	SendgridFrom     string

	SendgridSandboxMode bool
}

// Fixed lifecycle parameters. The per-type TTLs and the resend cooldown are
// product constants, not deployment knobs.
const (
	OrganizationName = "Vanbook"

	VerifyCodeTTL        = 30 * time.Minute
	ResetPasswordCodeTTL = 60 * time.Minute
	SetupPasswordCodeTTL = 24 * time.Hour

	// Minimum wait between successive (re)issuances for the same purpose.
	ResendCooldown = 90 * time.Second

	VerifyCodeLength   = 6
	URLCodeLength      = 32
	DefaultTokenExpiry = 7 * 24 * time.Hour

	// Driver (company) signups must be at least 21; everyone else 18.
	MinDriverAge = 21
	MinUserAge   = 18

	SchedulerPollInterval = 30 * time.Second
	SchedulerBatchSize    = 100
)

// LoadConfig reads the environment (optionally seeded from .env) and returns
// a *Config, terminating on missing required variables.
func LoadConfig(appName string) *Config {
	if err := godotenv.Load(); err != nil {
		utils.Logger.Debug("No .env file found; relying on the environment")
	}

	utils.Logger.Info("Loading config for app: ", appName)

	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		appPort = "8080"
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		utils.Logger.Fatal("JWT_SECRET env var is missing")
	}

	dbUrls := parseTenantDBUrls()
	if len(dbUrls) == 0 {
		utils.Logger.Fatal("Neither DB_URL nor TENANT_DB_URLS env var is set")
	}

	tokenExpiry := DefaultTokenExpiry
	if raw := os.Getenv("TOKEN_EXPIRY"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			utils.Logger.Fatalf("Invalid TOKEN_EXPIRY %q: %v", raw, err)
		}
		tokenExpiry = parsed
	}

	return &Config{
		AppName:             appName,
		OrganizationName:    OrganizationName,
		AppPort:             appPort,
		AppUrl:              appUrl,
		DBUrls:              dbUrls,
		JWTSecret:           []byte(jwtSecret),
		TokenExpiry:         tokenExpiry,
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:     os.Getenv("TWILIO_FROM_PHONE"),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		SendgridFrom:        os.Getenv("SENDGRID_FROM_EMAIL"),
		SendgridSandboxMode: os.Getenv("SENDGRID_SANDBOX_MODE") == "true",
	}
}

func parseTenantDBUrls() map[string]string {
	urls := make(map[string]string)
	if single := os.Getenv("DB_URL"); single != "" {
		urls["default"] = single
	}
	raw := os.Getenv("TENANT_DB_URLS")
	if raw == "" {
		return urls
	}
	for _, pair := range strings.Split(raw, ",") {
		code, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || code == "" || url == "" {
			utils.Logger.Fatalf("Malformed TENANT_DB_URLS entry %q (want code=url)", pair)
		}
		urls[code] = url
	}
	return urls
}
