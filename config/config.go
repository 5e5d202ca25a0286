// Package config loads engine settings from a yaml file plus EQUITRADER_*
// environment overrides, with working defaults for everything but live
// trading credentials.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Data and journal locations.
	DataDB    string `mapstructure:"data_db"`
	JournalDB string `mapstructure:"journal_db"`
	StateFile string `mapstructure:"state_file"`

	// Benchmark index driving regime classification.
	IndexSymbol string `mapstructure:"index_symbol"`

	InitialCash float64 `mapstructure:"initial_cash"`

	// Exit limits.
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	ExitThreshold float64 `mapstructure:"exit_threshold"`

	// Capital deployment.
	UtilizationGate float64 `mapstructure:"utilization_gate"`
	TargetWeight    float64 `mapstructure:"target_weight"`
	BuyThreshold    float64 `mapstructure:"buy_threshold"`
	AddOnTriggerPct float64 `mapstructure:"add_on_trigger_pct"`

	// Live trading.
	FeedURL         string        `mapstructure:"feed_url"`
	TickQueueSize   int           `mapstructure:"tick_queue_size"`
	PremarketCron   string        `mapstructure:"premarket_cron"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval"`

	// Notifications. Telegram is off when the token is empty.
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_db", "equitrader.db")
	v.SetDefault("journal_db", "journal.db")
	v.SetDefault("state_file", "state.yaml")
	v.SetDefault("index_symbol", "000300")
	v.SetDefault("initial_cash", 1_000_000)
	v.SetDefault("take_profit_pct", 0.20)
	v.SetDefault("stop_loss_pct", 0.10)
	v.SetDefault("exit_threshold", 70)
	v.SetDefault("utilization_gate", 0.90)
	v.SetDefault("target_weight", 0.10)
	v.SetDefault("buy_threshold", 40)
	v.SetDefault("add_on_trigger_pct", 0.05)
	v.SetDefault("feed_url", "")
	v.SetDefault("tick_queue_size", 1024)
	v.SetDefault("premarket_cron", "0 15 9 * * MON-FRI")
	v.SetDefault("monitor_interval", 30*time.Second)
	v.SetDefault("log_level", "info")
}

// Load reads the config file at path, or defaults-only when path is
// empty. Environment variables override either: EQUITRADER_DATA_DB and
// friends.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EQUITRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.InitialCash <= 0 {
		return fmt.Errorf("initial_cash must be positive, got %v", c.InitialCash)
	}
	if c.TakeProfitPct <= 0 || c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		return fmt.Errorf("exit limits out of range: take_profit_pct=%v stop_loss_pct=%v",
			c.TakeProfitPct, c.StopLossPct)
	}
	if c.TargetWeight <= 0 || c.TargetWeight > 1 {
		return fmt.Errorf("target_weight must be in (0, 1], got %v", c.TargetWeight)
	}
	if c.UtilizationGate <= 0 || c.UtilizationGate > 1 {
		return fmt.Errorf("utilization_gate must be in (0, 1], got %v", c.UtilizationGate)
	}
	if c.BuyThreshold < 0 || c.BuyThreshold > 100 {
		return fmt.Errorf("buy_threshold must be in [0, 100], got %v", c.BuyThreshold)
	}
	if c.IndexSymbol == "" {
		return fmt.Errorf("index_symbol is required")
	}
	if c.TickQueueSize <= 0 {
		return fmt.Errorf("tick_queue_size must be positive, got %d", c.TickQueueSize)
	}
	return nil
}
