package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Aster     AsterConfig     `mapstructure:"aster"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	AuditDir string `mapstructure:"audit_dir"` // daily audit jsonl files; empty disables them
}

type AuthConfig struct {
	RequireAPIKey bool   `mapstructure:"require_api_key"`
	APIKey        string `mapstructure:"api_key"`
}

// AsterConfig describes the signing domain of the deployment.
type AsterConfig struct {
	ChainID int64  `mapstructure:"chain_id"` // EIP-712 domain chainId, 56 on BSC
	Chain   string `mapstructure:"chain"`    // asterChain field, "Mainnet" or "Testnet"; empty omits it
	BaseURL string `mapstructure:"base_url"` // where the submission layer posts bundles
}

type WalletConfig struct {
	RPCURL     string `mapstructure:"rpc_url"`
	Account    string `mapstructure:"account"`
	ChainID    int64  `mapstructure:"chain_id"`
	SignMethod string `mapstructure:"sign_method"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	AuditListKey string `mapstructure:"audit_list_key"`
	AuditListMax int    `mapstructure:"audit_list_max"`
	IdemTTLSec   int    `mapstructure:"idempotency_ttl_seconds"`
}

type DatabaseConfig struct {
	DSN                string `mapstructure:"dsn"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. ASTERGATE_WALLET_RPC_URL
	viper.SetEnvPrefix("astergate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

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

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_only", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.audit_dir", "logs")
	v.SetDefault("auth.require_api_key", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("aster.chain_id", 56)
	v.SetDefault("aster.chain", "Mainnet")
	v.SetDefault("aster.base_url", "https://fapi.asterdex.com")
	v.SetDefault("wallet.rpc_url", "")
	v.SetDefault("wallet.account", "")
	v.SetDefault("wallet.chain_id", 0)
	v.SetDefault("wallet.sign_method", "eth_signTypedData_v4")
	v.SetDefault("wallet.timeout_seconds", 120)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.audit_list_key", "astergate:audit")
	v.SetDefault("redis.audit_list_max", 10000)
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.audit_retention_days", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)
}
