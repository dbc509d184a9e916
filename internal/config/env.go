package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. CRM_AUTH_SECRET.
const EnvPrefix = "CRM"

// Env is the start-up configuration.
//
//   - CRM_AUTH_SECRET signs session tokens; without it the app is inert
//   - CRM_GEMINI_API_KEY enables the AI features
//   - CRM_SMTP_HOST enables sending drafted emails
type Env struct {
	AuthSecret string `split_words:"true"`

	GeminiAPIKey  string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string        `split_words:"true" default:"gemini-2.5-flash"`
	GeminiBaseURL string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`

	SpeechCommand string `split_words:"true" default:"arecord -q -f S16_LE -r 16000 -c 1 -t wav -"`
	SpeechLocale  string `split_words:"true" default:"en-US"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	LogLevel    string `split_words:"true" default:"info"`
	MetricsFile string `split_words:"true"`
	DataDir     string `split_words:"true"`
}

// LoadEnv reads envFile (when present) into the process environment and
// decodes the CRM_* variables. Variables already set win over the file.
func LoadEnv(envFile string) (Env, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Env{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	if env.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return Env{}, err
		}
		env.DataDir = dir
	}
	return env, nil
}

// AIEnabled reports whether an API key is set.
func (e Env) AIEnabled() bool { return e.GeminiAPIKey != "" }

// MailEnabled reports whether SMTP is configured.
func (e Env) MailEnabled() bool { return e.SMTPHost != "" }

func defaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.Getenv("HOME")
		if base == "" {
			return "", fmt.Errorf("cannot resolve config directory: %w", err)
		}
	}
	return filepath.Join(base, "leadboard"), nil
}
