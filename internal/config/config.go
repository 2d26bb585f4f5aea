package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pf-nexus/papermark/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Log        LogConfig
	CORS       CORSConfig
	Upstream   UpstreamConfig
	Federation FederationConfig
	Deployment Deployment
	Bridge     BridgeConfig
	Redis      RedisConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`

	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds signing settings for local session and handoff tokens.
type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	SessionMaxAge time.Duration `mapstructure:"session_max_age"`
	HandoffTTL    time.Duration `mapstructure:"handoff_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// UpstreamConfig describes how to reach the upstream authority.
type UpstreamConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SessionCookie string        `mapstructure:"session_cookie"`
}

// FederationConfig controls where and how requests are intercepted.
type FederationConfig struct {
	Hosts           []string `mapstructure:"hosts"`
	InitiatorPath   string   `mapstructure:"initiator_path"`
	CompletionPath  string   `mapstructure:"completion_path"`
	DefaultCallback string   `mapstructure:"default_callback"`
	LoginPath       string   `mapstructure:"login_path"`
}

// BridgeConfig selects the session establishment strategy.
type BridgeConfig struct {
	Mode domain.BridgeMode `mapstructure:"mode"`
}

// RedisConfig holds Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultJWTSecret is the development signing secret. Shared deployments
// refuse to start with it.
const DefaultJWTSecret = "change-me-in-production"

// Load reads configuration from environment variables with the PAPERMARK_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAPERMARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", EnvDevelopment)

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "papermark")
	v.SetDefault("db.password", "papermark_secret")
	v.SetDefault("db.name", "papermark_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.connect_timeout", "5s")

	// JWT defaults
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.issuer", "papermark")
	v.SetDefault("jwt.session_max_age", "720h")
	v.SetDefault("jwt.handoff_ttl", "60s")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Upstream authority defaults
	v.SetDefault("upstream.base_url", "https://api.staging-pfnexus.com/api")
	v.SetDefault("upstream.timeout", "10s")
	v.SetDefault("upstream.session_cookie", "sessionId")

	// Federation defaults
	v.SetDefault("federation.hosts", "datarooms.staging-pfnexus.com")
	v.SetDefault("federation.initiator_path", "/pfnexus-auto-signin")
	v.SetDefault("federation.completion_path", "/pfnexus-auto-signin-complete")
	v.SetDefault("federation.default_callback", "/dashboard")
	v.SetDefault("federation.login_path", "/login")

	// Deployment defaults; shared/production fall back to server.environment
	v.SetDefault("deployment.shared", "")
	v.SetDefault("deployment.production", "")
	v.SetDefault("deployment.production_domain", "pfnexus.com")
	v.SetDefault("deployment.staging_domain", "staging-pfnexus.com")

	v.SetDefault("bridge.mode", string(domain.BridgeModeDirect))

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("metrics.enabled", true)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                  "PAPERMARK_SERVER_PORT",
		"server.read_timeout":          "PAPERMARK_SERVER_READ_TIMEOUT",
		"server.write_timeout":         "PAPERMARK_SERVER_WRITE_TIMEOUT",
		"server.environment":           "PAPERMARK_SERVER_ENVIRONMENT",
		"db.host":                      "PAPERMARK_DB_HOST",
		"db.port":                      "PAPERMARK_DB_PORT",
		"db.user":                      "PAPERMARK_DB_USER",
		"db.password":                  "PAPERMARK_DB_PASSWORD",
		"db.name":                      "PAPERMARK_DB_NAME",
		"db.sslmode":                   "PAPERMARK_DB_SSLMODE",
		"db.max_open":                  "PAPERMARK_DB_MAX_OPEN",
		"db.max_idle":                  "PAPERMARK_DB_MAX_IDLE",
		"db.conn_max_lifetime":         "PAPERMARK_DB_CONN_MAX_LIFETIME",
		"db.connect_timeout":           "PAPERMARK_DB_CONNECT_TIMEOUT",
		"jwt.secret":                   "PAPERMARK_JWT_SECRET",
		"jwt.issuer":                   "PAPERMARK_JWT_ISSUER",
		"jwt.session_max_age":          "PAPERMARK_JWT_SESSION_MAX_AGE",
		"jwt.handoff_ttl":              "PAPERMARK_JWT_HANDOFF_TTL",
		"log.level":                    "PAPERMARK_LOG_LEVEL",
		"log.format":                   "PAPERMARK_LOG_FORMAT",
		"cors.allowed_origins":         "PAPERMARK_CORS_ALLOWED_ORIGINS",
		"upstream.base_url":            "PAPERMARK_UPSTREAM_BASE_URL",
		"upstream.timeout":             "PAPERMARK_UPSTREAM_TIMEOUT",
		"upstream.session_cookie":      "PAPERMARK_UPSTREAM_SESSION_COOKIE",
		"federation.hosts":             "PAPERMARK_FEDERATION_HOSTS",
		"federation.initiator_path":    "PAPERMARK_FEDERATION_INITIATOR_PATH",
		"federation.completion_path":   "PAPERMARK_FEDERATION_COMPLETION_PATH",
		"federation.default_callback":  "PAPERMARK_FEDERATION_DEFAULT_CALLBACK",
		"federation.login_path":        "PAPERMARK_FEDERATION_LOGIN_PATH",
		"deployment.shared":            "PAPERMARK_DEPLOYMENT_SHARED",
		"deployment.production":        "PAPERMARK_DEPLOYMENT_PRODUCTION",
		"deployment.production_domain": "PAPERMARK_DEPLOYMENT_PRODUCTION_DOMAIN",
		"deployment.staging_domain":    "PAPERMARK_DEPLOYMENT_STAGING_DOMAIN",
		"bridge.mode":                  "PAPERMARK_BRIDGE_MODE",
		"redis.addr":                   "PAPERMARK_REDIS_ADDR",
		"redis.password":               "PAPERMARK_REDIS_PASSWORD",
		"redis.db":                     "PAPERMARK_REDIS_DB",
		"metrics.enabled":              "PAPERMARK_METRICS_ENABLED",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if PAPERMARK_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("PAPERMARK_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),

		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		ConnectTimeout:  v.GetDuration("db.connect_timeout"),
	}
	cfg.JWT = JWTConfig{
		Secret:        v.GetString("jwt.secret"),
		Issuer:        v.GetString("jwt.issuer"),
		SessionMaxAge: v.GetDuration("jwt.session_max_age"),
		HandoffTTL:    v.GetDuration("jwt.handoff_ttl"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Upstream = UpstreamConfig{
		BaseURL:       strings.TrimRight(v.GetString("upstream.base_url"), "/"),
		Timeout:       v.GetDuration("upstream.timeout"),
		SessionCookie: v.GetString("upstream.session_cookie"),
	}
	cfg.Federation = FederationConfig{
		Hosts:           splitList(v.GetString("federation.hosts")),
		InitiatorPath:   v.GetString("federation.initiator_path"),
		CompletionPath:  v.GetString("federation.completion_path"),
		DefaultCallback: v.GetString("federation.default_callback"),
		LoginPath:       v.GetString("federation.login_path"),
	}

	deployment, err := ResolveDeployment(
		cfg.Server.Environment,
		v.GetString("deployment.shared"),
		v.GetString("deployment.production"),
		v.GetString("deployment.production_domain"),
		v.GetString("deployment.staging_domain"),
	)
	if err != nil {
		return nil, err
	}
	cfg.Deployment = deployment

	if deployment.Shared && (cfg.JWT.Secret == "" || cfg.JWT.Secret == DefaultJWTSecret) {
		return nil, fmt.Errorf("jwt.secret must be set to a non-default value when the session cookie is shared (environment %q)",
			cfg.Server.Environment)
	}

	cfg.Bridge = BridgeConfig{
		Mode: domain.BridgeMode(v.GetString("bridge.mode")),
	}
	if !cfg.Bridge.Mode.Valid() {
		return nil, fmt.Errorf("invalid bridge.mode %q: want %q or %q",
			cfg.Bridge.Mode, domain.BridgeModeDirect, domain.BridgeModeHandoff)
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("metrics.enabled"),
	}

	if cfg.Upstream.Timeout <= 0 {
		return nil, fmt.Errorf("upstream.timeout must be positive, got %s", cfg.Upstream.Timeout)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
