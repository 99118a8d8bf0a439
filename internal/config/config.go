package config

import (
	"errors"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Vault     VaultConfig
	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Probe     ProbeConfig
	Archive   ArchiveConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Version string
}

func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

type HTTPConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type VaultConfig struct {
	AESKey string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	DefaultPlans  bool
}

type ProbeConfig struct {
	Timeout          time.Duration
	OpenAIBaseURL    string
	AnthropicBaseURL string
	GoogleBaseURL    string
}

type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
}

func (c ArchiveConfig) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

type NotifyConfig struct {
	SlackWebhookURL  string
	TelegramBotToken string
	TelegramChatID   int64
}

type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

func (c TelemetryConfig) Enabled() bool {
	return strings.TrimSpace(c.OTLPEndpoint) != ""
}

var ErrMissingVaultKey = errors.New("missing_vault_key")

// Load reads configuration from .env files, the process environment and an
// optional CONFIG_FILE, in increasing order of precedence for the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			onConfigChange(e.Name)
		})
		v.WatchConfig()
	}

	cfg := fromViper(v)
	if strings.TrimSpace(cfg.Vault.AESKey) == "" {
		return Config{}, ErrMissingVaultKey
	}
	return cfg, nil
}

// onConfigChange is replaced by the observability module once a logger exists.
var onConfigChange = func(string) {}

// OnChange registers fn to be called when the watched config file changes.
// Values already loaded are not refreshed.
func OnChange(fn func(name string)) {
	if fn != nil {
		onConfigChange = fn
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "modelrail")
	v.SetDefault("APP_ENV", EnvProduction)
	v.SetDefault("APP_VERSION", "dev")

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_READ_TIMEOUT", "15s")
	v.SetDefault("HTTP_WRITE_TIMEOUT", "30s")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "file:modelrail.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("AUTH_TOKEN_TTL", "24h")

	v.SetDefault("BOOTSTRAP_ADMIN_EMAIL", "admin@modelrail.local")
	v.SetDefault("BOOTSTRAP_DEFAULT_PLANS", true)

	v.SetDefault("PROBE_TIMEOUT", "5s")
	v.SetDefault("PROBE_OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("PROBE_ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("PROBE_GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com")

	v.SetDefault("ARCHIVE_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_PREFIX", "webhooks")

	v.SetDefault("OTEL_SERVICE_NAME", "modelrail")
}

func fromViper(v *viper.Viper) Config {
	return Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Env:     v.GetString("APP_ENV"),
			Version: v.GetString("APP_VERSION"),
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("HTTP_ADDR"),
			ReadTimeout:  v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("HTTP_WRITE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:          v.GetString("DB_DSN"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Vault: VaultConfig{
			AESKey: v.GetString("ENCRYPTION_KEY"),
		},
		Auth: AuthConfig{
			JWTSecret: firstNonEmpty(v.GetString("AUTH_JWT_SECRET"), v.GetString("ENCRYPTION_KEY")),
			TokenTTL:  v.GetDuration("AUTH_TOKEN_TTL"),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    v.GetString("BOOTSTRAP_ADMIN_EMAIL"),
			AdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
			DefaultPlans:  v.GetBool("BOOTSTRAP_DEFAULT_PLANS"),
		},
		Probe: ProbeConfig{
			Timeout:          v.GetDuration("PROBE_TIMEOUT"),
			OpenAIBaseURL:    v.GetString("PROBE_OPENAI_BASE_URL"),
			AnthropicBaseURL: v.GetString("PROBE_ANTHROPIC_BASE_URL"),
			GoogleBaseURL:    v.GetString("PROBE_GOOGLE_BASE_URL"),
		},
		Archive: ArchiveConfig{
			Endpoint:        v.GetString("ARCHIVE_ENDPOINT"),
			Region:          v.GetString("ARCHIVE_REGION"),
			AccessKeyID:     v.GetString("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("ARCHIVE_SECRET_ACCESS_KEY"),
			Bucket:          v.GetString("ARCHIVE_BUCKET"),
			Prefix:          v.GetString("ARCHIVE_PREFIX"),
		},
		Notify: NotifyConfig{
			SlackWebhookURL:  v.GetString("NOTIFY_SLACK_WEBHOOK_URL"),
			TelegramBotToken: v.GetString("NOTIFY_TELEGRAM_BOT_TOKEN"),
			TelegramChatID:   v.GetInt64("NOTIFY_TELEGRAM_CHAT_ID"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
