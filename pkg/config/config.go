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
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		SignalsTopic string   `yaml:"signals_topic"`
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
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	MarketData struct {
		APIKey          string        `yaml:"api_key"`
		BaseURL         string        `yaml:"base_url"`
		WebSocketURL    string        `yaml:"websocket_url"`
		Symbols         []string      `yaml:"symbols"`
		BenchmarkSymbol string        `yaml:"benchmark_symbol"`
		ReconnectDelay  time.Duration `yaml:"reconnect_delay"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"marketdata"`
	Benchmarks struct {
		CatalogPath string `yaml:"catalog_path"`
	} `yaml:"benchmarks"`
	Sentiment struct {
		PrescoredURL    string        `yaml:"prescored_url"`
		PrescoredAPIKey string        `yaml:"prescored_api_key"`
		AnthropicAPIKey string        `yaml:"anthropic_api_key"`
		AnthropicModel  string        `yaml:"anthropic_model"`
		MaxTokens       int           `yaml:"max_tokens"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
		TierTimeout     time.Duration `yaml:"tier_timeout"`
		TotalBudget     time.Duration `yaml:"total_budget"`
		Redis           struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"sentiment"`
	Simulation struct {
		HorizonDays int `yaml:"horizon_days"`
		Paths       int `yaml:"paths"`
		HistoryDays int `yaml:"history_days"`
	} `yaml:"simulation"`
	Queue struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Workers  int    `yaml:"workers"`
	} `yaml:"queue"`
	Scheduler struct {
		Enabled     bool   `yaml:"enabled"`
		RefreshSpec string `yaml:"refresh_spec"`
	} `yaml:"scheduler"`
	Pipeline struct {
		MaxRPS     int `yaml:"max_rps"`
		BufferSize int `yaml:"buffer_size"`
	} `yaml:"pipeline"`
}

func parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if c.MarketData.BenchmarkSymbol == "" {
		c.MarketData.BenchmarkSymbol = "SPY"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	return &c, nil
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overlays environment
// variables. Secrets are expected to arrive this way outside local
// development, so validation runs after the overlay.
func LoadWithEnv(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}

	setEnv(&c.MarketData.APIKey, "MARKETDATA_API_KEY")
	setEnvList(&c.MarketData.Symbols, "SYMBOLS")
	setEnv(&c.Backend.Type, "BACKEND")
	setEnvList(&c.Kafka.Brokers, "KAFKA_BROKERS")
	setEnv(&c.Kafka.Topic, "KAFKA_TOPIC")
	setEnv(&c.Sentiment.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setEnv(&c.Sentiment.PrescoredAPIKey, "PRESCORED_API_KEY")

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.Split(v, ",")
	}
}

// Validate rejects configurations the process could not run with.
// Tunables are defaulted elsewhere; only identity and required
// credentials are checked here.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "kafka", "clickhouse":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.MarketData.Symbols) == 0 {
		return fmt.Errorf("marketdata.symbols cannot be empty")
	}
	if c.MarketData.APIKey == "" {
		return fmt.Errorf("marketdata.api_key is required")
	}
	return nil
}
