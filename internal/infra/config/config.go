// Package config provides gateway configuration loaded from env vars, with an
// optional YAML file underneath. Every field has a default so the binary runs
// locally without any setup. Precedence: env > YAML file > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidValue = errors.New("invalid config value")

// Config holds runtime configuration for the gateway.
type Config struct {
	// HTTP bridge
	Host        string // HOST — default: "0.0.0.0"
	Port        int    // PORT — default: 8787
	MCPHTTPPort int    // MCP_HTTP_PORT — default: PORT
	CORSOrigin  string // CORS_ORIGIN — default: "*"
	// AuthJWTSecret enables bearer auth on /mcp and /call when non-empty.
	AuthJWTSecret string // AUTH_JWT_SECRET

	// Upstreams
	TronGridBase    string        // TRONGRID_BASE
	TronGridAPIKey  string        // TRONGRID_API_KEY
	TronScanBase    string        // TRONSCAN_BASE
	TronScanAPIKey  string        // TRONSCAN_API_KEY
	USDTContract    string        // USDT_CONTRACT
	UpstreamTimeout time.Duration // UPSTREAM_TIMEOUT_MS — default: 8000
	UpstreamRetries int           // UPSTREAM_RETRIES — default: 2

	// Ambient
	LogLevel     string   // LOG_LEVEL — default: "info"
	LogFormat    string   // LOG_FORMAT — default: "text"
	SummaryLangs []string // SUMMARY_LANGS — default: "zh,en"
	Env          string   // APP_ENV, falling back to NODE_ENV
}

const (
	envKeyConfigFile      = "TRON_MCP_CONFIG"
	envKeyHost            = "HOST"
	envKeyPort            = "PORT"
	envKeyMCPHTTPPort     = "MCP_HTTP_PORT"
	envKeyCORSOrigin      = "CORS_ORIGIN"
	envKeyAuthJWTSecret   = "AUTH_JWT_SECRET"
	envKeyTronGridBase    = "TRONGRID_BASE"
	envKeyTronGridAPIKey  = "TRONGRID_API_KEY"
	envKeyTronScanBase    = "TRONSCAN_BASE"
	envKeyTronScanAPIKey  = "TRONSCAN_API_KEY"
	envKeyUSDTContract    = "USDT_CONTRACT"
	envKeyUpstreamTimeout = "UPSTREAM_TIMEOUT_MS"
	envKeyUpstreamRetries = "UPSTREAM_RETRIES"
	envKeyLogLevel        = "LOG_LEVEL"
	envKeyLogFormat       = "LOG_FORMAT"
	envKeySummaryLangs    = "SUMMARY_LANGS"
	envKeyAppEnv          = "APP_ENV"
	envKeyNodeEnv         = "NODE_ENV"
)

const (
	DefaultPort         = 8787
	DefaultTronGridBase = "https://api.trongrid.io"
	DefaultTronScanBase = "https://apilist.tronscanapi.com/api"
	DefaultUSDTContract = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            DefaultPort,
		CORSOrigin:      "*",
		TronGridBase:    DefaultTronGridBase,
		TronScanBase:    DefaultTronScanBase,
		USDTContract:    DefaultUSDTContract,
		UpstreamTimeout: 8 * time.Second,
		UpstreamRetries: 2,
		LogLevel:        "info",
		LogFormat:       "text",
		SummaryLangs:    []string{"zh", "en"},
	}
}

// fileConfig mirrors Config for the YAML overlay. Zero values mean "not set".
type fileConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	MCPHTTPPort   int    `yaml:"mcp_http_port"`
	CORSOrigin    string `yaml:"cors_origin"`
	AuthJWTSecret string `yaml:"auth_jwt_secret"`
	TronGrid      struct {
		Base   string `yaml:"base"`
		APIKey string `yaml:"api_key"`
	} `yaml:"trongrid"`
	TronScan struct {
		Base   string `yaml:"base"`
		APIKey string `yaml:"api_key"`
	} `yaml:"tronscan"`
	USDTContract string `yaml:"usdt_contract"`
	Upstream     struct {
		TimeoutMS int  `yaml:"timeout_ms"`
		Retries   *int `yaml:"retries"`
	} `yaml:"upstream"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	SummaryLangs []string `yaml:"summary_langs"`
	Env          string   `yaml:"env"`
}

// Load builds the configuration. path names an optional YAML file; when empty
// TRON_MCP_CONFIG is consulted, and when that is empty too no file is read.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv(envKeyConfigFile)
	}
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MCPHTTPPort == 0 {
		cfg.MCPHTTPPort = cfg.Port
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ListenAddr is the address the HTTP bridge binds to.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.MCPHTTPPort))
}

// IsProduction reports whether verbose upstream diagnostics must be suppressed.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Host, fc.Host)
	setInt(&cfg.Port, fc.Port)
	setInt(&cfg.MCPHTTPPort, fc.MCPHTTPPort)
	setString(&cfg.CORSOrigin, fc.CORSOrigin)
	setString(&cfg.AuthJWTSecret, fc.AuthJWTSecret)
	setString(&cfg.TronGridBase, fc.TronGrid.Base)
	setString(&cfg.TronGridAPIKey, fc.TronGrid.APIKey)
	setString(&cfg.TronScanBase, fc.TronScan.Base)
	setString(&cfg.TronScanAPIKey, fc.TronScan.APIKey)
	setString(&cfg.USDTContract, fc.USDTContract)
	if fc.Upstream.TimeoutMS > 0 {
		cfg.UpstreamTimeout = time.Duration(fc.Upstream.TimeoutMS) * time.Millisecond
	}
	if fc.Upstream.Retries != nil {
		cfg.UpstreamRetries = *fc.Upstream.Retries
	}
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)
	if len(fc.SummaryLangs) > 0 {
		cfg.SummaryLangs = fc.SummaryLangs
	}
	setString(&cfg.Env, fc.Env)
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Host = envOr(envKeyHost, cfg.Host)
	cfg.CORSOrigin = envOr(envKeyCORSOrigin, cfg.CORSOrigin)
	cfg.AuthJWTSecret = envOr(envKeyAuthJWTSecret, cfg.AuthJWTSecret)
	cfg.TronGridBase = strings.TrimRight(envOr(envKeyTronGridBase, cfg.TronGridBase), "/")
	cfg.TronGridAPIKey = envOr(envKeyTronGridAPIKey, cfg.TronGridAPIKey)
	cfg.TronScanBase = strings.TrimRight(envOr(envKeyTronScanBase, cfg.TronScanBase), "/")
	cfg.TronScanAPIKey = envOr(envKeyTronScanAPIKey, cfg.TronScanAPIKey)
	cfg.USDTContract = envOr(envKeyUSDTContract, cfg.USDTContract)
	cfg.LogLevel = envOr(envKeyLogLevel, cfg.LogLevel)
	cfg.LogFormat = envOr(envKeyLogFormat, cfg.LogFormat)
	cfg.Env = envOr(envKeyAppEnv, envOr(envKeyNodeEnv, cfg.Env))
	if v := os.Getenv(envKeySummaryLangs); v != "" {
		cfg.SummaryLangs = splitList(v)
	}

	var err error
	if cfg.Port, err = envIntOr(envKeyPort, cfg.Port); err != nil {
		return err
	}
	if cfg.MCPHTTPPort, err = envIntOr(envKeyMCPHTTPPort, cfg.MCPHTTPPort); err != nil {
		return err
	}
	if cfg.UpstreamRetries, err = envIntOr(envKeyUpstreamRetries, cfg.UpstreamRetries); err != nil {
		return err
	}
	timeoutMS, err := envIntOr(envKeyUpstreamTimeout, int(cfg.UpstreamTimeout/time.Millisecond))
	if err != nil {
		return err
	}
	cfg.UpstreamTimeout = time.Duration(timeoutMS) * time.Millisecond

	if cfg.UpstreamRetries < 0 {
		return fmt.Errorf("%w: %s must be >= 0", ErrInvalidValue, envKeyUpstreamRetries)
	}
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("%w: %s must be > 0", ErrInvalidValue, envKeyUpstreamTimeout)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, key, v)
	}
	return n, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
