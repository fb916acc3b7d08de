package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Trading struct {
		Mode          string `yaml:"mode"`     // paper or live
		Timezone      string `yaml:"timezone"` // trading-day calendar, e.g. America/New_York
		StartPaused   bool   `yaml:"start_paused"`
		DefaultRegime string `yaml:"default_regime"` // used when no regime service is configured
	} `yaml:"trading"`
	State struct {
		Path string `yaml:"path"` // control state file
	} `yaml:"state"`
	Signals struct {
		Source          string        `yaml:"source"` // websocket or kafka
		MaxAge          time.Duration `yaml:"max_age"`
		DedupWindow     time.Duration `yaml:"dedup_window"`
		DedupMaxEntries int           `yaml:"dedup_max_entries"`
		MaxPerSecond    int           `yaml:"max_per_second"` // per-ticker intake throttle
		BufferSize      int           `yaml:"buffer_size"`
	} `yaml:"signals"`
	Feed struct {
		URL            string        `yaml:"url"`
		Token          string        `yaml:"token"`
		Tickers        []string      `yaml:"tickers"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Risk struct {
		DailyLossLimitPct     float64 `yaml:"daily_loss_limit_pct"`
		AutoKillLossPct       float64 `yaml:"auto_kill_loss_pct"`
		MaxPositions          int     `yaml:"max_positions"`
		ConcentrationLimitPct float64 `yaml:"concentration_limit_pct"`
		CorrelationThreshold  float64 `yaml:"correlation_threshold"`
		MaxClusterSize        int     `yaml:"max_cluster_size"`
		VarBudgetPct          float64 `yaml:"var_budget_pct"`
		VarConfidenceZ        float64 `yaml:"var_confidence_z"`
		ReturnsLookbackDays   int     `yaml:"returns_lookback_days"`
	} `yaml:"risk"`
	Sizing struct {
		RiskBudgetPct      float64 `yaml:"risk_budget_pct"`
		ContractMultiplier float64 `yaml:"contract_multiplier"`
	} `yaml:"sizing"`
	Instruments struct {
		Mode              string            `yaml:"mode"` // equity, option, leveraged, or auto
		OptionsConviction float64           `yaml:"options_conviction"`
		ProxyConviction   float64           `yaml:"proxy_conviction"`
		Sectors           map[string]string `yaml:"sectors"` // ticker -> sector
		Proxies           map[string]string `yaml:"proxies"` // sector -> leveraged proxy
	} `yaml:"instruments"`
	Broker struct {
		Primary      string        `yaml:"primary"`
		Fallback     string        `yaml:"fallback"`
		MaxAttempts  int           `yaml:"max_attempts"`
		BackoffMin   time.Duration `yaml:"backoff_min"`
		BackoffMax   time.Duration `yaml:"backoff_max"`
		CallTimeout  time.Duration `yaml:"call_timeout"`
		RateCapacity float64       `yaml:"rate_capacity"`
		RatePerSec   float64       `yaml:"rate_per_sec"`
		SlippageBps  float64       `yaml:"slippage_bps"`
		PaperCash    float64       `yaml:"paper_cash"` // starting balance for paper mode
	} `yaml:"broker"`
	Fills struct {
		PriceTolerancePct    float64 `yaml:"price_tolerance_pct"`
		QuantityTolerancePct float64 `yaml:"quantity_tolerance_pct"`
	} `yaml:"fills"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		AuditTopic   string   `yaml:"audit_topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		ErrorsTopic  string   `yaml:"errors_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		ReturnsTable     string        `yaml:"returns_table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled    bool   `yaml:"enabled"`
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		AlertQueue string `yaml:"alert_queue"`
	} `yaml:"redis"`
	Regime struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"regime"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TRADING_MODE"); v != "" {
		c.Trading.Mode = v
	}
	if v := os.Getenv("FEED_TOKEN"); v != "" {
		c.Feed.Token = v
	}
	if v := os.Getenv("TICKERS"); v != "" {
		c.Feed.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Trading.Mode == "" {
		c.Trading.Mode = "paper"
	}
	if c.Trading.Timezone == "" {
		c.Trading.Timezone = "America/New_York"
	}
	if c.Trading.DefaultRegime == "" {
		c.Trading.DefaultRegime = "sideways"
	}
	if c.State.Path == "" {
		c.State.Path = "data/control_state.json"
	}
	if c.Signals.Source == "" {
		c.Signals.Source = "websocket"
	}
	if c.Signals.MaxAge <= 0 {
		c.Signals.MaxAge = 5 * time.Minute
	}
	if c.Signals.DedupWindow <= 0 {
		c.Signals.DedupWindow = 30 * time.Minute
	}
	if c.Signals.DedupMaxEntries <= 0 {
		c.Signals.DedupMaxEntries = 10000
	}
	if c.Risk.DailyLossLimitPct <= 0 {
		c.Risk.DailyLossLimitPct = 10
	}
	if c.Risk.AutoKillLossPct <= 0 {
		c.Risk.AutoKillLossPct = c.Risk.DailyLossLimitPct
	}
	if c.Risk.MaxPositions <= 0 {
		c.Risk.MaxPositions = 8
	}
	if c.Risk.ConcentrationLimitPct <= 0 {
		c.Risk.ConcentrationLimitPct = 20
	}
	if c.Risk.CorrelationThreshold <= 0 {
		c.Risk.CorrelationThreshold = 0.80
	}
	if c.Risk.MaxClusterSize <= 0 {
		c.Risk.MaxClusterSize = 3
	}
	if c.Risk.VarBudgetPct <= 0 {
		c.Risk.VarBudgetPct = 2
	}
	if c.Risk.VarConfidenceZ <= 0 {
		c.Risk.VarConfidenceZ = 1.65
	}
	if c.Risk.ReturnsLookbackDays <= 0 {
		c.Risk.ReturnsLookbackDays = 60
	}
	if c.Sizing.RiskBudgetPct <= 0 {
		c.Sizing.RiskBudgetPct = 5
	}
	if c.Sizing.ContractMultiplier <= 0 {
		c.Sizing.ContractMultiplier = 100
	}
	if c.Instruments.Mode == "" {
		c.Instruments.Mode = "equity"
	}
	if c.Instruments.OptionsConviction <= 0 {
		c.Instruments.OptionsConviction = 85
	}
	if c.Instruments.ProxyConviction <= 0 {
		c.Instruments.ProxyConviction = 70
	}
	if c.Broker.Primary == "" {
		c.Broker.Primary = "paper"
	}
	if c.Broker.MaxAttempts <= 0 {
		c.Broker.MaxAttempts = 3
	}
	if c.Broker.BackoffMin <= 0 {
		c.Broker.BackoffMin = 250 * time.Millisecond
	}
	if c.Broker.BackoffMax <= 0 {
		c.Broker.BackoffMax = 5 * time.Second
	}
	if c.Broker.CallTimeout <= 0 {
		c.Broker.CallTimeout = 10 * time.Second
	}
	if c.Broker.PaperCash <= 0 {
		c.Broker.PaperCash = 100000
	}
	if c.Fills.PriceTolerancePct <= 0 {
		c.Fills.PriceTolerancePct = 2
	}
	if c.Fills.QuantityTolerancePct <= 0 {
		c.Fills.QuantityTolerancePct = 5
	}
	if c.Redis.AlertQueue == "" {
		c.Redis.AlertQueue = "alerts"
	}
	if c.Regime.Timeout <= 0 {
		c.Regime.Timeout = 3 * time.Second
	}
	if c.Regime.CacheTTL <= 0 {
		c.Regime.CacheTTL = time.Minute
	}
	if c.ClickHouse.ReturnsTable == "" {
		c.ClickHouse.ReturnsTable = "daily_returns"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Trading.Mode != "paper" && c.Trading.Mode != "live" {
		return fmt.Errorf("trading.mode must be 'paper' or 'live', got '%s'", c.Trading.Mode)
	}
	if c.Signals.Source != "websocket" && c.Signals.Source != "kafka" {
		return fmt.Errorf("signals.source must be 'websocket' or 'kafka', got '%s'", c.Signals.Source)
	}
	if c.Signals.Source == "websocket" && c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required for websocket signal source")
	}
	if c.Signals.Source == "kafka" {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers are required for kafka signal source")
		}
		if c.Kafka.SignalsTopic == "" {
			return fmt.Errorf("kafka.signals_topic is required for kafka signal source")
		}
	}
	switch c.Instruments.Mode {
	case "equity", "option", "leveraged", "auto":
	default:
		return fmt.Errorf("instruments.mode must be one of equity, option, leveraged, auto; got '%s'", c.Instruments.Mode)
	}
	if _, err := time.LoadLocation(c.Trading.Timezone); err != nil {
		return fmt.Errorf("trading.timezone: %w", err)
	}
	if c.Risk.CorrelationThreshold >= 1 {
		return fmt.Errorf("risk.correlation_threshold must be below 1.0")
	}
	return nil
}
