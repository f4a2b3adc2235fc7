package mpesa

import (
	"os"
	"time"
)

const (
	sandboxURL    = "https://sandbox.safaricom.co.ke"
	productionURL = "https://api.safaricom.co.ke"
)

// Config carries the Daraja API credentials and endpoints. All four
// credential fields are mandatory; LoadConfig reports every missing one at
// once so a misconfigured deploy fails with the full list.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	AuthTimeout    time.Duration
	PushTimeout    time.Duration
}

// LoadConfig reads the environment. When credentials are missing it still
// returns a usable (partial) config along with a ConfigError, so the rest
// of the app can start and the payment routes can report exactly what is
// unset.
func LoadConfig() (*Config, error) {
	baseURL := sandboxURL
	if os.Getenv("MPESA_ENVIRONMENT") == "production" {
		baseURL = productionURL
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:5001"
	}

	cfg := &Config{
		BaseURL:        baseURL,
		ConsumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		Shortcode:      os.Getenv("MPESA_SHORTCODE"),
		Passkey:        os.Getenv("MPESA_PASSKEY"),
		CallbackURL:    appURL + "/api/mpesa/callback",
		AuthTimeout:    15 * time.Second,
		PushTimeout:    20 * time.Second,
	}
	if missing := MissingEnv(); len(missing) > 0 {
		return cfg, &ConfigError{Missing: missing}
	}
	return cfg, nil
}

// Missing reports which credential fields are unset, named by their
// environment variables.
func (c *Config) Missing() []string {
	missing := []string{}
	if c.ConsumerKey == "" {
		missing = append(missing, "MPESA_CONSUMER_KEY")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "MPESA_CONSUMER_SECRET")
	}
	if c.Shortcode == "" {
		missing = append(missing, "MPESA_SHORTCODE")
	}
	if c.Passkey == "" {
		missing = append(missing, "MPESA_PASSKEY")
	}
	return missing
}

// MissingEnv lists the credential variables that are unset, without
// constructing a full config. Used by the diagnostics route.
func MissingEnv() []string {
	required := []string{"MPESA_CONSUMER_KEY", "MPESA_CONSUMER_SECRET", "MPESA_SHORTCODE", "MPESA_PASSKEY"}
	missing := []string{}
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
