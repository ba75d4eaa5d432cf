package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUpstreamURL = "https://api.perplexity.ai/chat/completions"
	DefaultAllowOrigin = "https://app.yfetch.com"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Route        string        `mapstructure:"route"`
}

// CORSConfig is the fixed header set written on every relay response.
type CORSConfig struct {
	AllowOrigin      string `mapstructure:"allow_origin"`
	AllowMethods     string `mapstructure:"allow_methods"`
	AllowHeaders     string `mapstructure:"allow_headers"`
	AllowCredentials bool   `mapstructure:"allow_credentials"`
	MaxAge           int    `mapstructure:"max_age"`
}

// AuthConfig points at the Supabase project that issues caller tokens.
// Empty values are passed through as-is; verification then simply fails.
type AuthConfig struct {
	URL     string        `mapstructure:"url"`
	AnonKey string        `mapstructure:"anon_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type UpstreamConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 leaves the transport default
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	Output        string `mapstructure:"output"`
	ConsoleOutput bool   `mapstructure:"console_output"`
	MaxSize       int    `mapstructure:"max_size"`
	MaxBackups    int    `mapstructure:"max_backups"`
	MaxAge        int    `mapstructure:"max_age"`
	Compress      bool   `mapstructure:"compress"`
}

// BindEnv maps the deployment environment variables onto config keys.
func BindEnv(v *viper.Viper) {
	v.BindEnv("auth.url", "SUPABASE_URL")
	v.BindEnv("auth.anon_key", "SUPABASE_ANON_KEY")
	v.BindEnv("upstream.api_key", "PERPLEXITY_API_KEY")
	v.BindEnv("upstream.url", "PERPLEXITY_API_URL")
	v.BindEnv("server.port", "PORT")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load loads the configuration from the global viper instance
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom loads the configuration from file, flags and environment held by v
func LoadFrom(v *viper.Viper) (*Config, error) {
	// CORS credentials default to true, which the zero value cannot express
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("logging.console_output", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	// 服务器配置
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8045
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.Route == "" {
		cfg.Server.Route = "/perplexity"
	}

	// CORS
	if cfg.CORS.AllowOrigin == "" {
		cfg.CORS.AllowOrigin = DefaultAllowOrigin
	}
	if cfg.CORS.AllowMethods == "" {
		cfg.CORS.AllowMethods = "POST, OPTIONS"
	}
	if cfg.CORS.AllowHeaders == "" {
		cfg.CORS.AllowHeaders = "authorization, x-client-info, apikey, content-type, accept"
	}
	if cfg.CORS.MaxAge == 0 {
		cfg.CORS.MaxAge = 86400
	}

	// Supabase
	if cfg.Auth.Timeout == 0 {
		cfg.Auth.Timeout = 30 * time.Second
	}

	// Perplexity
	if cfg.Upstream.URL == "" {
		cfg.Upstream.URL = DefaultUpstreamURL
	}

	// 日志配置
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "logs/perplexity-proxy.log"
	}
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 10
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 30
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if !strings.HasPrefix(cfg.Server.Route, "/") {
		return fmt.Errorf("invalid route: %q", cfg.Server.Route)
	}
	return nil
}
