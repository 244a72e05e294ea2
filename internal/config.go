package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Session       SessionConfig       `mapstructure:"session"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
	Speech        SpeechConfig        `mapstructure:"speech"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"omitempty,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"omitempty,min=1m"`
	Source          string        `mapstructure:"source" validate:"required"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m"`
	BCryptCost          int           `mapstructure:"bcrypt_cost" validate:"required,min=4,max=15"`
}

// SessionConfig selects where the single persisted session slot lives.
type SessionConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=database redis memory"`
	SlotKey string      `mapstructure:"slot_key" validate:"required"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr    string        `mapstructure:"addr"`
	DB      int           `mapstructure:"db"`
	Timeout time.Duration `mapstructure:"timeout"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=mock accounts"`
}

type AssistantConfig struct {
	Name            string        `mapstructure:"name"`
	Generator       string        `mapstructure:"generator" validate:"oneof=canned gemini"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	MinLatency      time.Duration `mapstructure:"min_latency"`
	MaxLatency      time.Duration `mapstructure:"max_latency"`
	Gemini          GeminiConfig  `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type SpeechConfig struct {
	Engine  string  `mapstructure:"engine" validate:"oneof=command none"`
	Command string  `mapstructure:"command"`
	Voice   string  `mapstructure:"voice"`
	Rate    float64 `mapstructure:"rate" validate:"gt=0"`
	Pitch   float64 `mapstructure:"pitch" validate:"gt=0"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

const (
	DefaultSlotKey         = "cmlre_user"
	DefaultAssistantName   = "Samudhran"
	DefaultResponseTimeout = 30 * time.Second
	DefaultSpeechRate      = 0.9
	DefaultSpeechPitch     = 1.1
	DefaultGeminiModel     = "gemini-2.5-flash"
)

// ApplyDefaults fills zero values that a partial config.yml leaves behind.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Source == "" && c.Database.Driver == "sqlite" {
		c.Database.Source = "marine.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "database"
	}
	if c.Session.SlotKey == "" {
		c.Session.SlotKey = DefaultSlotKey
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "mock"
	}
	if c.Assistant.Name == "" {
		c.Assistant.Name = DefaultAssistantName
	}
	if c.Assistant.Generator == "" {
		c.Assistant.Generator = "canned"
	}
	if c.Assistant.ResponseTimeout == 0 {
		c.Assistant.ResponseTimeout = DefaultResponseTimeout
	}
	if c.Assistant.MinLatency == 0 && c.Assistant.MaxLatency == 0 {
		c.Assistant.MinLatency = time.Second
		c.Assistant.MaxLatency = 3 * time.Second
	}
	if c.Assistant.Gemini.Model == "" {
		c.Assistant.Gemini.Model = DefaultGeminiModel
	}
	if c.Speech.Engine == "" {
		c.Speech.Engine = "none"
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = DefaultSpeechRate
	}
	if c.Speech.Pitch == 0 {
		c.Speech.Pitch = DefaultSpeechPitch
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			AccessTokenDuration: getEnvAsDuration("ACCESS_TOKEN_DURATION", time.Hour),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 12),
		},
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", "redis"),
			SlotKey: getEnv("SESSION_SLOT_KEY", DefaultSlotKey),
			Redis: RedisConfig{
				Addr:    getEnv("REDIS_ADDR", "localhost:6379"),
				DB:      getEnvAsInt("REDIS_DB", 0),
				Timeout: getEnvAsDuration("REDIS_TIMEOUT", 5*time.Second),
				TTL:     getEnvAsDuration("SESSION_TTL", 0),
			},
		},
		Auth: AuthConfig{
			Mode: getEnv("AUTH_MODE", "accounts"),
		},
		Assistant: AssistantConfig{
			Name:            getEnv("ASSISTANT_NAME", DefaultAssistantName),
			Generator:       getEnv("ASSISTANT_GENERATOR", "canned"),
			ResponseTimeout: getEnvAsDuration("ASSISTANT_RESPONSE_TIMEOUT", DefaultResponseTimeout),
			Gemini: GeminiConfig{
				APIKey: getEnv("GEMINI_API_KEY", ""),
				Model:  getEnv("GEMINI_MODEL", DefaultGeminiModel),
			},
		},
		Speech: SpeechConfig{
			Engine:  getEnv("SPEECH_ENGINE", "none"),
			Command: getEnv("SPEECH_COMMAND", ""),
			Voice:   getEnv("SPEECH_VOICE", ""),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnv("METRICS_ENABLED", "true") == "true",
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var configValidator = newConfigValidator()

// newConfigValidator reports fields by their config.yml keys rather than Go names.
func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the validate tags first, then the rules that span fields.
func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		for _, fe := range ve {
			errs = append(errs, fieldError(fe))
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("session config: %v", err))
	}

	if err := c.Assistant.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("assistant config: %v", err))
	}

	if err := c.Speech.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("speech config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// fieldError renders one tag failure as "<yaml path> <reason>".
func fieldError(fe validator.FieldError) string {
	// drop the leading "Config."
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SessionConfig) Validate() error {
	if c.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis.addr is required for the redis backend")
	}
	return nil
}

func (c *AssistantConfig) Validate() error {
	if c.Generator == "gemini" && c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required for the gemini generator")
	}
	if c.MaxLatency < c.MinLatency {
		return errors.New("max_latency must be >= min_latency")
	}
	return nil
}

func (c *SpeechConfig) Validate() error {
	if c.Engine == "command" && c.Command == "" {
		return errors.New("command is required for the command engine")
	}
	return nil
}
