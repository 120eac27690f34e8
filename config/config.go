package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	EngineOpenAI  = "openai"
	EngineWhisper = "whisper"
)

type Config struct {
	Port    int
	GinMode string

	LogLevel  string
	LogFormat string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	S3Bucket         string
	S3Endpoint       string
	S3ForcePathStyle bool

	RepositoryDriver string
	DynamoDBEndpoint string
	DynamoDBTable    string
	DatabaseURL      string

	TranscriptionEngine   string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	TranscriptionModel    string
	TranscriptionLanguage string
	TranscriptionTimeout  time.Duration
	WhisperURL            string

	// MaxUploadSize is the raw MAX_UPLOAD_SIZE value; MaxUploadBytes is
	// zero when it does not parse.
	MaxUploadSize  string
	MaxUploadBytes int64
	TempDir        string
	SweepInterval  time.Duration
	SweepMaxAge    time.Duration
}

// Load reads configuration from an optional .env file, an optional
// config.yml and the process environment, in increasing precedence.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", f, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Port:                  v.GetInt("PORT"),
		GinMode:               v.GetString("GIN_MODE"),
		LogLevel:              v.GetString("LOG_LEVEL"),
		LogFormat:             v.GetString("LOG_FORMAT"),
		AWSRegion:             v.GetString("AWS_REGION"),
		AWSAccessKeyID:        v.GetString("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:    v.GetString("AWS_SECRET_ACCESS_KEY"),
		S3Bucket:              v.GetString("S3_BUCKET"),
		S3Endpoint:            v.GetString("S3_ENDPOINT"),
		S3ForcePathStyle:      v.GetBool("S3_FORCE_PATH_STYLE"),
		RepositoryDriver:      strings.ToLower(v.GetString("REPOSITORY_DRIVER")),
		DynamoDBEndpoint:      v.GetString("DYNAMODB_ENDPOINT"),
		DynamoDBTable:         v.GetString("DYNAMODB_TABLE"),
		DatabaseURL:           v.GetString("DATABASE_URL"),
		TranscriptionEngine:   strings.ToLower(v.GetString("TRANSCRIPTION_ENGINE")),
		OpenAIAPIKey:          v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:         v.GetString("OPENAI_BASE_URL"),
		TranscriptionModel:    v.GetString("TRANSCRIPTION_MODEL"),
		TranscriptionLanguage: v.GetString("TRANSCRIPTION_LANGUAGE"),
		TranscriptionTimeout:  v.GetDuration("TRANSCRIPTION_TIMEOUT"),
		WhisperURL:            v.GetString("WHISPER_URL"),
		MaxUploadSize:         v.GetString("MAX_UPLOAD_SIZE"),
		TempDir:               v.GetString("TEMP_DIR"),
		SweepInterval:         v.GetDuration("SWEEP_INTERVAL"),
		SweepMaxAge:           v.GetDuration("SWEEP_MAX_AGE"),
	}
	if n, err := ParseSize(cfg.MaxUploadSize); err == nil {
		cfg.MaxUploadBytes = n
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)
	v.SetDefault("REPOSITORY_DRIVER", DriverDynamoDB)
	v.SetDefault("DYNAMODB_TABLE", "Meetings")
	v.SetDefault("TRANSCRIPTION_ENGINE", EngineOpenAI)
	v.SetDefault("TRANSCRIPTION_MODEL", "whisper-1")
	v.SetDefault("TRANSCRIPTION_TIMEOUT", "120s")
	v.SetDefault("WHISPER_URL", "http://localhost:8000")
	v.SetDefault("MAX_UPLOAD_SIZE", "25MB") // the Whisper API limit
	v.SetDefault("SWEEP_INTERVAL", "10m")
	v.SetDefault("SWEEP_MAX_AGE", "1h")
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.S3Bucket == "" {
		errs = append(errs, errors.New("S3_BUCKET is required"))
	}
	switch c.RepositoryDriver {
	case DriverDynamoDB:
		if c.DynamoDBTable == "" {
			errs = append(errs, errors.New("DYNAMODB_TABLE is required for the dynamodb driver"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown REPOSITORY_DRIVER %q", c.RepositoryDriver))
	}
	switch c.TranscriptionEngine {
	case EngineOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is not set"))
		}
	case EngineWhisper:
		if c.WhisperURL == "" {
			errs = append(errs, errors.New("WHISPER_URL is required for the whisper engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSCRIPTION_ENGINE %q", c.TranscriptionEngine))
	}
	if c.TranscriptionTimeout <= 0 {
		errs = append(errs, errors.New("TRANSCRIPTION_TIMEOUT must be positive"))
	}
	if c.MaxUploadSize != "" {
		if _, err := ParseSize(c.MaxUploadSize); err != nil {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_SIZE: %w", err))
		} else if c.MaxUploadBytes <= 0 {
			errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
		}
	} else if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	errs = append(errs, c.sweepErrors()...)
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ValidateSweeper checks the settings cmd/sweeper depends on.
func (c *Config) ValidateSweeper() error {
	if errs := c.sweepErrors(); len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// sweepErrors requires the sweep age to outlast a transcription, otherwise
// the sweeper could unlink an artifact a request still owns.
func (c *Config) sweepErrors() []error {
	var errs []error
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.SweepMaxAge <= c.TranscriptionTimeout {
		errs = append(errs, fmt.Errorf("SWEEP_MAX_AGE (%s) must exceed TRANSCRIPTION_TIMEOUT (%s)", c.SweepMaxAge, c.TranscriptionTimeout))
	}
	return errs
}

// ParseSize parses a human-readable size such as "25MB", "25M", "25MiB",
// "512kb" or "1.5GB". Units are binary multiples.
func ParseSize(s string) (int64, error) {
	n, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}
