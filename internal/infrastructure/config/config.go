package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Traversal TraversalConfig `mapstructure:"traversal"`
	Severity  SeverityConfig  `mapstructure:"severity"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Etherscan EtherscanConfig `mapstructure:"etherscan"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Neo4J     Neo4JConfig     `mapstructure:"neo4j"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Report    ReportConfig    `mapstructure:"report"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// TraversalConfig tunes the taint-propagation engine.
type TraversalConfig struct {
	// WhaleThresholdWei is a decimal string in base units so boundary
	// values survive config round-trips without float precision loss.
	WhaleThresholdWei   string        `mapstructure:"whale_threshold_wei"`
	MaxDepth            int           `mapstructure:"max_depth"`
	MaxAddressesVisited int           `mapstructure:"max_addresses_visited"`
	Concurrency         int           `mapstructure:"concurrency"`
	FetchTimeout        time.Duration `mapstructure:"fetch_timeout"`
	ExpandFlaggedActors bool          `mapstructure:"expand_flagged_actors"`
	ExclusionList       []string      `mapstructure:"exclusion_list"`
}

// SeverityConfig holds the severity weights and the aggregate cap.
type SeverityConfig struct {
	WhaleWeight    int `mapstructure:"whale_weight"`
	BadActorWeight int `mapstructure:"bad_actor_weight"`
	Cap            int `mapstructure:"cap"`
}

// RetryConfig tunes the backoff loop for transient upstream failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Jitter      time.Duration `mapstructure:"jitter"`
}

// EtherscanConfig represents the Etherscan V2 API client configuration
type EtherscanConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	ChainID        string        `mapstructure:"chain_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxTransfers   int           `mapstructure:"max_transfers"`
}

// RegistryConfig supplies extra bad-actor entries on top of the built-in
// table, as address -> label pairs.
type RegistryConfig struct {
	ExtraActors map[string]string `mapstructure:"extra_actors"`
}

// RedisConfig represents the transfer-cache configuration
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	Enabled                      bool          `mapstructure:"enabled"`
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	ConnectTimeout               time.Duration `mapstructure:"connect_timeout"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// ReportConfig represents report output configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	CSV       bool   `mapstructure:"csv"`
}

// WhaleThreshold parses the configured threshold into base units.
func (t *TraversalConfig) WhaleThreshold() (*big.Int, error) {
	raw := strings.TrimSpace(t.WhaleThresholdWei)
	if raw == "" {
		return nil, fmt.Errorf("whale_threshold_wei is empty")
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("whale_threshold_wei %q is not a non-negative decimal", raw)
	}
	return value, nil
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/crypto-taint-tracer")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")

	// Traversal defaults: 2 ETH whale threshold, two hops, modest caps.
	viper.SetDefault("traversal.whale_threshold_wei", "2000000000000000000")
	viper.SetDefault("traversal.max_depth", 2)
	viper.SetDefault("traversal.max_addresses_visited", 250)
	viper.SetDefault("traversal.concurrency", 4)
	viper.SetDefault("traversal.fetch_timeout", "10s")
	viper.SetDefault("traversal.expand_flagged_actors", false)
	viper.SetDefault("traversal.exclusion_list", []string{})

	// Severity defaults
	viper.SetDefault("severity.whale_weight", 5)
	viper.SetDefault("severity.bad_actor_weight", 25)
	viper.SetDefault("severity.cap", 100)

	// Retry defaults
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.base_delay", "250ms")
	viper.SetDefault("retry.max_delay", "5s")
	viper.SetDefault("retry.jitter", "100ms")

	// Etherscan defaults
	viper.SetDefault("etherscan.base_url", "https://api.etherscan.io/v2/api")
	viper.SetDefault("etherscan.chain_id", "1")
	viper.SetDefault("etherscan.request_timeout", "10s")
	viper.SetDefault("etherscan.max_transfers", 50)

	// Redis cache defaults
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttl", "15m")

	// Neo4J defaults
	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "password")
	viper.SetDefault("neo4j.database", "neo4j")
	viper.SetDefault("neo4j.connect_timeout", "10s")
	viper.SetDefault("neo4j.max_connection_pool_size", 50)
	viper.SetDefault("neo4j.connection_acquisition_timeout", "60s")

	// NATS defaults
	viper.SetDefault("nats.enabled", false)
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.subject_prefix", "risk")
	viper.SetDefault("nats.connect_timeout", "10s")
	viper.SetDefault("nats.reconnect_attempts", 5)
	viper.SetDefault("nats.reconnect_delay", "2s")

	// Report defaults
	viper.SetDefault("report.output_dir", ".")
	viper.SetDefault("report.csv", true)

	// Bind env for the API key
	viper.BindEnv("etherscan.api_key", "ETHERSCAN_API_KEY")
}
