package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var configValidator = validator.New()

// Config holds all application configuration, shared by the ingest and
// worker services. Fields not needed by a given service are simply unused.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Lark     LarkConfig     `mapstructure:"lark"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Env      string         `mapstructure:"env"`
}

type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	WebhookSecret string        `mapstructure:"webhook_secret" validate:"required"`
	WorkerURL     string        `mapstructure:"worker_url" validate:"required,url"`
}

// WorkerConfig is cmd/worker's own listen address, kept separate from
// ServerConfig (the ingest service's address) so both services can share
// one config file without a port collision.
type WorkerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

type LarkConfig struct {
	AppID      string        `mapstructure:"app_id" validate:"required"`
	AppSecret  string        `mapstructure:"app_secret" validate:"required"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

type LLMConfig struct {
	PrimaryAPIKey  string        `mapstructure:"primary_api_key"`
	PrimaryModel   string        `mapstructure:"primary_model" validate:"required"`
	FallbackAPIKey string        `mapstructure:"fallback_api_key" validate:"required"`
	FallbackModel  string        `mapstructure:"fallback_model" validate:"required"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type SheetsConfig struct {
	AdminSheetID string        `mapstructure:"admin_sheet_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type QueueConfig struct {
	Name       string        `mapstructure:"name"`
	Region     string        `mapstructure:"region"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

type RendererConfig struct {
	ChromePath string        `mapstructure:"chrome_path"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from a YAML file and environment overrides.
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("worker.host", "0.0.0.0")
	viper.SetDefault("worker.port", 8081)
	viper.SetDefault("worker.read_timeout", 30*time.Second)
	viper.SetDefault("worker.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/invoiceflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("storage.base_dir", "data/objects")

	viper.SetDefault("lark.api_timeout", 15*time.Second)

	viper.SetDefault("llm.primary_model", "gpt-4o")
	viper.SetDefault("llm.fallback_model", "claude-3-5-sonnet-latest")
	viper.SetDefault("llm.timeout", 60*time.Second)

	viper.SetDefault("sheets.timeout", 30*time.Second)

	viper.SetDefault("queue.max_retries", 6)
	viper.SetDefault("queue.base_delay", time.Second)
	viper.SetDefault("queue.max_delay", 2*time.Minute)

	viper.SetDefault("renderer.timeout", 30*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")

	viper.SetDefault("env", "development")
}

func bindEnvVars() {
	viper.BindEnv("server.webhook_secret", "WEBHOOK_SECRET")
	viper.BindEnv("server.worker_url", "WORKER_URL")
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("llm.primary_api_key", "OPENAI_API_KEY")
	viper.BindEnv("llm.fallback_api_key", "ANTHROPIC_API_KEY")
	viper.BindEnv("sheets.admin_sheet_id", "ADMIN_SHEET_ID")
	viper.BindEnv("queue.name", "QUEUE_NAME")
	viper.BindEnv("queue.region", "QUEUE_REGION")
}

// Validate fails fast on a configuration that cannot possibly run, using
// struct tags on the nested config types above.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}
