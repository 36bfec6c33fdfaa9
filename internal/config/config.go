package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chain    ChainConfig    `mapstructure:"chain"`
	ZeroX    ZeroXConfig    `mapstructure:"zerox"`
	Swap     SwapConfig     `mapstructure:"swap"`
	Gasless  GaslessConfig  `mapstructure:"gasless"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tokens   []TokenConfig  `mapstructure:"tokens"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

type AuthConfig struct {
	RequireAPIKey  bool   `mapstructure:"require_api_key"`
	APIKey         string `mapstructure:"api_key"`
	RateLimitRPS   int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	PendingKey    string `mapstructure:"pending_key"`
	PendingKeyMax int    `mapstructure:"pending_key_max"`
}

type ChainConfig struct {
	// RPC endpoint for the chain the gateway wallet operates on
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID int64  `mapstructure:"chain_id"`

	// Private key of the custodial gateway wallet
	PrivateKey string `mapstructure:"private_key"`
}

type ZeroXConfig struct {
	// Base URL of the swap/relayer API. All endpoints are chain-scoped via
	// the chainId query parameter.
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	TimeoutMs int    `mapstructure:"timeout_ms"`

	// Upstream request budget (the quote API is rate-limited)
	RateLimitRPS int `mapstructure:"rate_limit_rps"`
}

type SwapConfig struct {
	SlippageBps  int    `mapstructure:"slippage_bps"`
	FeeBps       int    `mapstructure:"fee_bps"`
	FeeRecipient string `mapstructure:"fee_recipient"`
	FeeToken     string `mapstructure:"fee_token"`
}

type GaslessConfig struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
}

type LimitsConfig struct {
	MaxOrderValue     float64  `mapstructure:"max_order_value"`     // in sell-token units
	MaxDailyValue     float64  `mapstructure:"max_daily_value"`     // cumulative per day
	MaxDailySwaps     int      `mapstructure:"max_daily_swaps"`     // count per day
	BlacklistedTokens []string `mapstructure:"blacklisted_tokens"`  // token addresses
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type TokenConfig struct {
	ChainID  int64  `mapstructure:"chain_id"`
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals int    `mapstructure:"decimals"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. DEXGATE_ZEROX_API_KEY
	viper.SetEnvPrefix("dexgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("auth.require_api_key", false)
	viper.SetDefault("auth.rate_limit_rps", 10)
	viper.SetDefault("auth.rate_limit_burst", 20)
	viper.SetDefault("redis.pending_key", "gasless_trades")
	viper.SetDefault("redis.pending_key_max", 1000)
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("zerox.base_url", "https://api.0x.org/swap/v2")
	viper.SetDefault("zerox.timeout_ms", 10000)
	viper.SetDefault("zerox.rate_limit_rps", 5)
	viper.SetDefault("swap.slippage_bps", 100)
	viper.SetDefault("gasless.poll_interval_ms", 2000)
	viper.SetDefault("limits.max_order_value", 0) // 0 disables the cap
	viper.SetDefault("limits.max_daily_value", 0)
	viper.SetDefault("limits.max_daily_swaps", 0)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
