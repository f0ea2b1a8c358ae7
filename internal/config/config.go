package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingSecret = errors.New("token signing secret is not set (AUTH_JWT_SECRET or JWT_SECRET_KEY)")

const DefaultLLMBaseURL = "https://api.groq.com/openai/v1"

type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Memory   Memory   `mapstructure:"memory"`
	Auth     Auth     `mapstructure:"auth"`
	LLM      LLM      `mapstructure:"llm"`
	Media    Media    `mapstructure:"media"`
}

type Server struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

// Database holds the account store settings. Driver is "sqlite" or
// "postgres".
type Database struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Memory holds the conversation turn store settings. Driver is "sqlite",
// "postgres" or "mongo".
type Memory struct {
	Driver         string        `mapstructure:"driver"`
	MongoURI       string        `mapstructure:"mongo_uri"`
	ContextTurns   int           `mapstructure:"context_turns"`
	DashboardLimit int           `mapstructure:"dashboard_limit"`
	QueueSize      int           `mapstructure:"queue_size"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LLM struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	FailurePolicy string `mapstructure:"failure_policy"`
}

type Media struct {
	CaptionModel       string `mapstructure:"caption_model"`
	TranscriptionModel string `mapstructure:"transcription_model"`
	MaxUploadBytes     int64  `mapstructure:"max_upload_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("database.path", "healthpad.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("memory.mongo_uri", "")
	v.SetDefault("memory.context_turns", 10)
	v.SetDefault("memory.dashboard_limit", 100)
	v.SetDefault("memory.queue_size", 256)
	v.SetDefault("memory.write_timeout", 5*time.Second)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 60*time.Minute)

	v.SetDefault("llm.base_url", DefaultLLMBaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "llama-3.1-8b-instant")
	v.SetDefault("llm.failure_policy", "degrade")

	v.SetDefault("media.caption_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("media.transcription_model", "whisper-large-v3")
	v.SetDefault("media.max_upload_bytes", 10<<20)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A .env file in the
// working directory is loaded into the environment first. When path is
// empty, ./config.yaml is used if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by earlier deployments.
	_ = v.BindEnv("database.driver")
	_ = v.BindEnv("memory.driver")
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET_KEY")
	_ = v.BindEnv("llm.api_key", "LLM_API_KEY", "GROQ_API_KEY")
	_ = v.BindEnv("memory.mongo_uri", "MEMORY_MONGO_URI", "MONGO_URI")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = legacyPostgresDSN()
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
		if cfg.Database.DSN != "" {
			cfg.Database.Driver = "postgres"
		}
	}
	if cfg.Memory.Driver == "" {
		cfg.Memory.Driver = cfg.Database.Driver
		if cfg.Memory.MongoURI != "" {
			cfg.Memory.Driver = "mongo"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	switch c.Memory.Driver {
	case "sqlite", "postgres":
		if c.Memory.Driver != c.Database.Driver {
			return fmt.Errorf("memory.driver %q must match database.driver %q or be mongo", c.Memory.Driver, c.Database.Driver)
		}
	case "mongo":
		if c.Memory.MongoURI == "" {
			return errors.New("memory.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown memory.driver %q", c.Memory.Driver)
	}
	if c.Media.MaxUploadBytes <= 0 {
		return errors.New("media.max_upload_bytes must be positive")
	}
	return nil
}

// legacyPostgresDSN assembles a DSN from the DATABASE_HOSTNAME family of
// variables, or returns "" when DATABASE_HOSTNAME is unset.
func legacyPostgresDSN() string {
	host := os.Getenv("DATABASE_HOSTNAME")
	if host == "" {
		return ""
	}
	port := os.Getenv("DATABASE_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + os.Getenv("DATABASE_NAME"),
	}
	if user := os.Getenv("DATABASE_USERNAME"); user != "" {
		u.User = url.UserPassword(user, os.Getenv("DATABASE_PASSWORD"))
	}
	return u.String()
}
