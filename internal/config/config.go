package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	ServiceName    = "price-relay"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

const (
	SymbolSourceConfig   = "config"
	SymbolSourceDatabase = "database"
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	Port                    map[string]string         `mapstructure:"port"`
	Relay                   RelayConfig               `mapstructure:"relay"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
	Kafka                   KafkaConfig               `mapstructure:"kafka"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type RelayConfig struct {
	UpstreamURL      string        `mapstructure:"upstream_url"`
	StreamSuffix     string        `mapstructure:"stream_suffix"`
	Symbols          []string      `mapstructure:"symbols"`
	SymbolSource     string        `mapstructure:"symbol_source"` // config or database
	DefaultSymbol    string        `mapstructure:"default_symbol"`
	ReconnectDelay   time.Duration `mapstructure:"reconnect_delay"`
	PingInterval     time.Duration `mapstructure:"ping_interval"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	SendBufferSize   int           `mapstructure:"send_buffer_size"`
	WSPath           string        `mapstructure:"ws_path"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	PublishTimeout   time.Duration `mapstructure:"publish_timeout"`
	PublishQueueSize int           `mapstructure:"publish_queue_size"`
	TickerCacheTTL   time.Duration `mapstructure:"ticker_cache_ttl"`
}

type NatsJetstreamConfig struct {
	URL             string        `mapstructure:"url"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.show_caller", false)
	v.SetDefault("log.log_level", "info")
	v.SetDefault("graceful_shutdown_timeout", 10*time.Second)
	v.SetDefault("port.http", "8080")

	v.SetDefault("relay.upstream_url", "wss://stream.binance.com:9443/stream")
	v.SetDefault("relay.stream_suffix", "@ticker")
	v.SetDefault("relay.symbol_source", SymbolSourceConfig)
	v.SetDefault("relay.reconnect_delay", 5*time.Second)
	v.SetDefault("relay.ping_interval", 2*time.Minute)
	v.SetDefault("relay.handshake_timeout", 10*time.Second)
	v.SetDefault("relay.write_timeout", 5*time.Second)
	v.SetDefault("relay.send_buffer_size", 64)
	v.SetDefault("relay.ws_path", "/ws")
	v.SetDefault("relay.publish_timeout", 2*time.Second)
	v.SetDefault("relay.publish_queue_size", 256)
	v.SetDefault("relay.ticker_cache_ttl", 10*time.Minute)

	v.SetDefault("kafka.topic", "relay.tickers")
}

// LoadConfig reads the optional .env file, the yaml config and environment
// overrides into Env. An explicit configPath must exist; the default
// ./config.yml may be absent.
func LoadConfig(configPath string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("failed to load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			v.SetConfigFile(configPath)
		} else {
			v.SetConfigName(filepath.Base(configPath))
			v.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				v.AddConfigPath(".")
			} else {
				v.AddConfigPath(configDir)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Info("config file not found, using defaults and environment")
	}

	var cfg EnvConfig
	err = v.Unmarshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	// AutomaticEnv only resolves keys viper already knows about, so list
	// overrides like RELAY_SYMBOLS=btcusdt,ethusdt are split here.
	if raw := strings.TrimSpace(os.Getenv("RELAY_SYMBOLS")); raw != "" {
		cfg.Relay.Symbols = strings.Split(raw, ",")
	}
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		cfg.Kafka.Brokers = strings.Split(raw, ",")
	}

	Env = &cfg

	return nil
}

// Validate checks the relay settings. It is run by the serve command only so
// that migrate works with a database-only config.
func (c *EnvConfig) Validate() error {
	upstream, err := url.Parse(strings.TrimSpace(c.Relay.UpstreamURL))
	if err != nil {
		return fmt.Errorf("relay.upstream_url: %w", err)
	}
	if upstream.Scheme != "ws" && upstream.Scheme != "wss" {
		return fmt.Errorf("relay.upstream_url: unsupported scheme %q", upstream.Scheme)
	}

	if c.Relay.ReconnectDelay <= 0 {
		return errors.New("relay.reconnect_delay must be positive")
	}

	if c.Relay.SendBufferSize < 1 {
		return errors.New("relay.send_buffer_size must be at least 1")
	}

	switch c.Relay.SymbolSource {
	case SymbolSourceConfig:
		if len(c.Relay.Symbols) == 0 {
			return errors.New("relay.symbols is required when symbol_source is config")
		}
	case SymbolSourceDatabase:
		if strings.TrimSpace(c.Database["relay"].DSN) == "" {
			return errors.New("database.relay.dsn is required when symbol_source is database")
		}
	default:
		return fmt.Errorf("relay.symbol_source: unsupported value %q", c.Relay.SymbolSource)
	}

	return nil
}
