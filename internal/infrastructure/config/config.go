package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ConfirmModePoll   = "poll"
	ConfirmModeStream = "stream"

	envAPIKey    = "BYBIT_API_KEY"
	envAPISecret = "BYBIT_API_SECRET"
)

type Config struct {
	App struct {
		LogLevel      string `toml:"log_level"`
		LogFile       string `toml:"log_file"`
		LogMaxSizeMB  int    `toml:"log_max_size_mb"`
		LogMaxBackups int    `toml:"log_max_backups"`
		LogMaxAgeDays int    `toml:"log_max_age_days"`
		LogCompress   bool   `toml:"log_compress"`
	} `toml:"app"`

	Bybit struct {
		Testnet      bool   `toml:"testnet"`
		AccountType  string `toml:"account_type"` // UNIFIED / CONTRACT
		BaseURL      string `toml:"base_url"`
		WsPrivateURL string `toml:"ws_private_url"`
		RecvWindowMs int    `toml:"recv_window_ms"`
		TimeoutSec   int    `toml:"timeout_sec"`
		APIKey       string `toml:"api_key"`
		APISecret    string `toml:"api_secret"`
	} `toml:"bybit"`

	Orders struct {
		SettleCoin        string `toml:"settle_coin"`
		SettleDelayMs     *int   `toml:"settle_delay_ms"` // 0 表示不等待，未配置或为负时取 500
		ConfirmMode       string `toml:"confirm_mode"`    // poll / stream
		ConfirmTimeoutSec int    `toml:"confirm_timeout_sec"`
		PollMinMs         int    `toml:"poll_min_ms"`
		PollMaxMs         int    `toml:"poll_max_ms"`
	} `toml:"orders"`

	Notify struct {
		Redis struct {
			Enabled  bool   `toml:"enabled"`
			Addr     string `toml:"addr"`
			Password string `toml:"password"`
			DB       int    `toml:"db"`
			Prefix   string `toml:"prefix"`
			Channel  string `toml:"channel"`
		} `toml:"redis"`
	} `toml:"notify"`

	Server struct {
		Addr string `toml:"addr"`
	} `toml:"server"`
}

// Load 读取 TOML；.env 与环境变量中的凭证优先于文件
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	loadEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnv(cfg *Config) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv(envAPIKey)); v != "" {
		cfg.Bybit.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(envAPISecret)); v != "" {
		cfg.Bybit.APISecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogMaxSizeMB <= 0 {
		cfg.App.LogMaxSizeMB = 100
	}
	if cfg.App.LogMaxBackups <= 0 {
		cfg.App.LogMaxBackups = 5
	}
	if cfg.App.LogMaxAgeDays <= 0 {
		cfg.App.LogMaxAgeDays = 30
	}

	cfg.Bybit.AccountType = strings.ToUpper(strings.TrimSpace(cfg.Bybit.AccountType))
	if cfg.Bybit.AccountType == "" {
		cfg.Bybit.AccountType = "UNIFIED"
	}
	if cfg.Bybit.RecvWindowMs <= 0 {
		cfg.Bybit.RecvWindowMs = 5000
	}
	if cfg.Bybit.TimeoutSec <= 0 {
		cfg.Bybit.TimeoutSec = 10
	}

	cfg.Orders.SettleCoin = strings.ToUpper(strings.TrimSpace(cfg.Orders.SettleCoin))
	if cfg.Orders.SettleCoin == "" {
		cfg.Orders.SettleCoin = "USDT"
	}
	if cfg.Orders.SettleDelayMs == nil || *cfg.Orders.SettleDelayMs < 0 {
		delay := 500
		cfg.Orders.SettleDelayMs = &delay
	}
	cfg.Orders.ConfirmMode = strings.ToLower(strings.TrimSpace(cfg.Orders.ConfirmMode))
	if cfg.Orders.ConfirmMode == "" {
		cfg.Orders.ConfirmMode = ConfirmModePoll
	}
	if cfg.Orders.ConfirmTimeoutSec <= 0 {
		cfg.Orders.ConfirmTimeoutSec = 10
	}
	if cfg.Orders.PollMinMs <= 0 {
		cfg.Orders.PollMinMs = 500
	}
	if cfg.Orders.PollMaxMs <= 0 {
		cfg.Orders.PollMaxMs = 2000
	}

	if cfg.Notify.Redis.Prefix == "" {
		cfg.Notify.Redis.Prefix = "unifut"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	switch cfg.Bybit.AccountType {
	case "UNIFIED", "CONTRACT":
	default:
		return fmt.Errorf("bybit.account_type %q not supported", cfg.Bybit.AccountType)
	}

	switch cfg.Orders.ConfirmMode {
	case ConfirmModePoll, ConfirmModeStream:
	default:
		return fmt.Errorf("orders.confirm_mode %q not supported", cfg.Orders.ConfirmMode)
	}

	if cfg.Orders.PollMaxMs < cfg.Orders.PollMinMs {
		return errors.New("orders.poll_max_ms smaller than poll_min_ms")
	}
	if cfg.Orders.ConfirmMode == ConfirmModeStream && !cfg.HasCredentials() {
		return errors.New("orders.confirm_mode stream requires api credentials")
	}
	if cfg.Notify.Redis.Enabled && strings.TrimSpace(cfg.Notify.Redis.Addr) == "" {
		return errors.New("notify.redis.addr empty but enabled")
	}
	return nil
}

// HasCredentials 是否配置了 API key/secret
func (c *Config) HasCredentials() bool {
	return c.Bybit.APIKey != "" && c.Bybit.APISecret != ""
}

func (c *Config) RecvWindow() time.Duration {
	return time.Duration(c.Bybit.RecvWindowMs) * time.Millisecond
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Bybit.TimeoutSec) * time.Second
}

func (c *Config) SettleDelay() time.Duration {
	if c.Orders.SettleDelayMs == nil {
		return 0
	}
	return time.Duration(*c.Orders.SettleDelayMs) * time.Millisecond
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.Orders.ConfirmTimeoutSec) * time.Second
}
