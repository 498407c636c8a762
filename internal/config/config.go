// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingSecret = errors.New("SECRET_KEY_B58 is not set")
	ErrMissingMint   = errors.New("TOKEN_MINT is not set")
)

type Config struct {
	RPCURL    string `mapstructure:"rpc_url"`
	SecretKey string `mapstructure:"secret_key_b58"`
	TokenMint string `mapstructure:"token_mint"`

	SlippageBps int     `mapstructure:"slippage_bps"`
	SOLBuffer   float64 `mapstructure:"sol_buffer"`
	CronKey     string  `mapstructure:"cron_key"`

	PumpPortalURL    string  `mapstructure:"pumpportal_url"`
	ClaimPriorityFee float64 `mapstructure:"claim_priority_fee"`
	JupiterURL       string  `mapstructure:"jupiter_url"`

	BurnPriorityMicroLamports uint64        `mapstructure:"burn_priority_micro_lamports"`
	SendMaxAttempts           uint          `mapstructure:"send_max_attempts"`
	ConfirmTimeout            time.Duration `mapstructure:"confirm_timeout"`
	HTTPTimeout               time.Duration `mapstructure:"http_timeout"`

	ListenAddr   string        `mapstructure:"listen_addr"`
	CronSchedule string        `mapstructure:"cron_schedule"`
	RedisURL     string        `mapstructure:"redis_url"`
	LeaseTTL     time.Duration `mapstructure:"lease_ttl"`

	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	LogDevelopment bool   `mapstructure:"log_development"`
}

const (
	DefaultRPCURL           = "https://api.mainnet-beta.solana.com"
	DefaultSlippageBps      = 100
	DefaultSOLBuffer        = 0.02
	DefaultPumpPortalURL    = "https://pumpportal.fun"
	DefaultClaimPriorityFee = 0.000001
	DefaultJupiterURL       = "https://lite-api.jup.ag/swap/v1"
	DefaultSendMaxAttempts  = 3
	DefaultConfirmTimeout   = 60 * time.Second
	DefaultHTTPTimeout      = 15 * time.Second
	DefaultListenAddr       = ":8080"
	DefaultLeaseTTL         = 5 * time.Minute
	DefaultLogLevel         = "info"

	// MaxSOLBuffer больше всего предложения SOL; в лампортах помещается в int64.
	MaxSOLBuffer = 1_000_000_000
)

// LoadConfig читает конфигурацию: значения по умолчанию, затем файл (если path задан),
// затем переменные окружения. Секрет и минт здесь не обязательны: их наличие
// проверяет RequireSigner при каждом запуске.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"rpc_url":                      DefaultRPCURL,
		"secret_key_b58":               "",
		"token_mint":                   "",
		"slippage_bps":                 DefaultSlippageBps,
		"sol_buffer":                   DefaultSOLBuffer,
		"cron_key":                     "",
		"pumpportal_url":               DefaultPumpPortalURL,
		"claim_priority_fee":           DefaultClaimPriorityFee,
		"jupiter_url":                  DefaultJupiterURL,
		"burn_priority_micro_lamports": 0,
		"send_max_attempts":            DefaultSendMaxAttempts,
		"confirm_timeout":              DefaultConfirmTimeout,
		"http_timeout":                 DefaultHTTPTimeout,
		"listen_addr":                  DefaultListenAddr,
		"cron_schedule":                "",
		"redis_url":                    "",
		"lease_ttl":                    DefaultLeaseTTL,
		"log_level":                    DefaultLogLevel,
		"log_file":                     "",
		"log_development":              false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.trim()

	return &cfg, validateConfig(&cfg)
}

func (c *Config) trim() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.TokenMint = strings.TrimSpace(c.TokenMint)
	c.RPCURL = strings.TrimSpace(c.RPCURL)
	c.CronSchedule = strings.TrimSpace(c.CronSchedule)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
}

// RequireSigner проверяет параметры, без которых запуск невозможен.
func (c *Config) RequireSigner() error {
	if c.SecretKey == "" {
		return ErrMissingSecret
	}
	if c.TokenMint == "" {
		return ErrMissingMint
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if err := validateURLWithCache(cfg.PumpPortalURL, "http"); err != nil {
		return fmt.Errorf("invalid pumpportal_url: %w", err)
	}
	if err := validateURLWithCache(cfg.JupiterURL, "http"); err != nil {
		return fmt.Errorf("invalid jupiter_url: %w", err)
	}
	if cfg.RedisURL != "" {
		if err := validateURLWithCache(cfg.RedisURL, "redis"); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10_000 {
		return errors.New("slippage_bps must be within [0, 10000]")
	}
	if !isFinite(cfg.SOLBuffer) || cfg.SOLBuffer < 0 || cfg.SOLBuffer > MaxSOLBuffer {
		return fmt.Errorf("sol_buffer must be within [0, %g]", float64(MaxSOLBuffer))
	}
	if !isFinite(cfg.ClaimPriorityFee) || cfg.ClaimPriorityFee < 0 {
		return errors.New("invalid claim_priority_fee")
	}
	if cfg.SendMaxAttempts == 0 {
		return errors.New("send_max_attempts must be at least 1")
	}
	if cfg.ConfirmTimeout <= 0 {
		return errors.New("invalid confirm_timeout")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("invalid http_timeout")
	}
	if cfg.LeaseTTL <= 0 {
		return errors.New("invalid lease_ttl")
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
