package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Session   SessionConfig   `mapstructure:"session"`
	Cron      CronConfig      `mapstructure:"cron"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	Seed            bool          `mapstructure:"seed"`
}

// StorageConfig selects the repository backend: "memory" or "postgres".
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

// CacheConfig selects the session key-value backend: "memory" or "redis".
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

type CronConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	OpportunityRefresh string `mapstructure:"opportunity_refresh"`
	PortfolioSnapshot  string `mapstructure:"portfolio_snapshot"`
}

type LLMConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float32       `mapstructure:"temperature"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

type TelegramConfig struct {
	BotToken    string        `mapstructure:"bot_token"`
	BotUsername string        `mapstructure:"bot_username"`
	LinkTTL     time.Duration `mapstructure:"link_ttl"`
	Polling     bool          `mapstructure:"polling"`
}

type WalletConfig struct {
	SOLBalance  float64 `mapstructure:"sol_balance"`
	SOLPriceUSD float64 `mapstructure:"sol_price_usd"`
	USDCBalance float64 `mapstructure:"usdc_balance"`
	ValueChange float64 `mapstructure:"value_change"`
}

// RiskConfig keeps the tier presentation table as data. Tiers is keyed by tier
// name and maps to the percentage shown on the risk gauge.
type RiskConfig struct {
	Tiers               map[string]int `mapstructure:"tiers"`
	DefaultTier         string         `mapstructure:"default_tier"`
	UnknownPercentage   int            `mapstructure:"unknown_percentage"`
	RecommendationLimit int            `mapstructure:"recommendation_limit"`
}

type PortfolioConfig struct {
	Valuation string `mapstructure:"valuation"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("YH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	SetDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.seed", true)
	v.SetDefault("storage.backend", "memory")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.session_ttl", "24h")

	v.SetDefault("session.secret", "dev-session-secret-change-me")
	v.SetDefault("session.cookie_name", "yh_session")
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("session.secure", false)

	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.opportunity_refresh", "@every 15m")
	v.SetDefault("cron.portfolio_snapshot", "@every 1h")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.history_limit", 10)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.bot_username", "SolYieldHunter2Bot")
	v.SetDefault("telegram.link_ttl", "30m")
	v.SetDefault("telegram.polling", true)

	v.SetDefault("wallet.sol_balance", 42.55)
	v.SetDefault("wallet.sol_price_usd", 120.75)
	v.SetDefault("wallet.usdc_balance", 1245.00)
	v.SetDefault("wallet.value_change", 5.3)

	v.SetDefault("risk.tiers", map[string]int{
		"conservative":          20,
		"moderate-conservative": 35,
		"moderate":              50,
		"moderate-aggressive":   70,
		"aggressive":            90,
	})
	v.SetDefault("risk.default_tier", "moderate-conservative")
	v.SetDefault("risk.unknown_percentage", 50)
	v.SetDefault("risk.recommendation_limit", 5)

	v.SetDefault("portfolio.valuation", "random")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "5s")
}
