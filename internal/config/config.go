// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Auth modes.
const (
	AuthModeFirebase = "firebase"
	AuthModeJWT      = "jwt"
)

const (
	defaultPort        = "8080"
	defaultAuthMode    = AuthModeFirebase
	defaultTokenDir    = "data/tokens"
	defaultCallTimeout = "15s"
	defaultMainPath    = "/portal/messages"
	defaultLoginPath   = "/login"
)

// ErrInvalid marks a configuration value that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config holds server settings.
type Config struct {
	Port               string
	FirebaseProjectID  string
	CredentialsFile    string
	AuthMode           string
	JWTSecret          string
	ProfileAPIURL      string
	TokenDir           string
	CallTimeout        time.Duration
	MainPath           string
	LoginPath          string
	CORSAllowedOrigins []string
}

// Load reads files (default ".env") into the environment, skipping missing
// files, then builds a Config from the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", defaultPort),
		FirebaseProjectID: strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		CredentialsFile:   strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		AuthMode:          strings.ToLower(getEnv("AUTH_MODE", defaultAuthMode)),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		ProfileAPIURL:     strings.TrimSpace(os.Getenv("PROFILE_API_URL")),
		TokenDir:          getEnv("TOKEN_DIR", defaultTokenDir),
		MainPath:          getEnv("MAIN_PATH", defaultMainPath),
		LoginPath:         getEnv("LOGIN_PATH", defaultLoginPath),
	}
	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		for o := range strings.SplitSeq(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.CallTimeout, err = parseDurationEnv("CALL_TIMEOUT", defaultCallTimeout); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("%w: PORT %q", ErrInvalid, c.Port)
	}
	switch c.AuthMode {
	case AuthModeFirebase:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("%w: JWT_SECRET is required when AUTH_MODE=jwt", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: AUTH_MODE %q", ErrInvalid, c.AuthMode)
	}
	if c.ProfileAPIURL == "" {
		return fmt.Errorf("%w: PROFILE_API_URL is required", ErrInvalid)
	}
	if u, err := url.Parse(c.ProfileAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: PROFILE_API_URL %q", ErrInvalid, c.ProfileAPIURL)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: CALL_TIMEOUT must be positive", ErrInvalid)
	}
	for name, p := range map[string]string{"MAIN_PATH": c.MainPath, "LOGIN_PATH": c.LoginPath} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: %s %q must start with /", ErrInvalid, name, p)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key, fallback string) (time.Duration, error) {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalid, key, raw, err)
	}
	return d, nil
}
