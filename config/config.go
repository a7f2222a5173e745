package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"goldenticket/database"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP configuration
	HTTPPort   string
	CORSOrigin string

	// Lottery configuration
	Location        *time.Location
	CutoverWeekday  time.Weekday
	CutoverHour     int             // Hour in Location when the period closes (0-23)
	TicketPrice     decimal.Decimal // Token units per ticket
	PrizeFirst      decimal.Decimal
	PrizeSecond     decimal.Decimal
	PrizeThird      decimal.Decimal
	ResultCacheSize int

	// Chain configuration
	ChainRPCURL            string
	TokenContractAddress   string
	TokenDecimals          int32
	PaymentReceiverAddress string
	ChainMinConfirmations  uint64
	ChainRPCRateLimit      float64 // Requests per second against the RPC node

	// World ID configuration
	WorldIDAppID    string
	WorldIDActionID string
	WorldIDAPIBase  string

	// NATS configuration
	NATSServers string // NATS server addresses (comma-separated), empty disables forwarding

	// Discord configuration
	DiscordToken     string
	DiscordChannelID string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelServiceName          string
	OTelExportIntervalMillis int

	// Environment
	Environment string // "development", "production" or "test"
	LogLevel    string
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load reads the configuration from the environment without touching the singleton
func Load() (*Config, error) {
	return load()
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPPort:   getEnvWithDefault("HTTP_PORT", "8080"),
		CORSOrigin: getEnvWithDefault("CORS_ORIGIN", "*"),

		// Lottery
		CutoverWeekday:  time.Sunday,
		CutoverHour:     19,
		ResultCacheSize: 128,

		// Chain
		ChainRPCURL:            os.Getenv("CHAIN_RPC_URL"),
		TokenContractAddress:   os.Getenv("TOKEN_CONTRACT_ADDRESS"),
		TokenDecimals:          18,
		PaymentReceiverAddress: os.Getenv("PAYMENT_RECEIVER_ADDRESS"),
		ChainMinConfirmations:  1,
		ChainRPCRateLimit:      10,

		// World ID
		WorldIDAppID:    os.Getenv("WORLDID_APP_ID"),
		WorldIDActionID: getEnvWithDefault("WORLDID_ACTION_ID", "buy-ticket"),
		WorldIDAPIBase:  getEnvWithDefault("WORLDID_API_BASE", "https://developer.worldcoin.org/api/v2"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// Discord
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		// OpenTelemetry
		OTelEnabled:              os.Getenv("OTEL_ENABLED") == "true",
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "localhost:4317"),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "goldenticket"),
		OTelExportIntervalMillis: 15000,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	var err error
	zone := getEnvWithDefault("LOTTERY_TIMEZONE", "America/Bogota")
	if config.Location, err = time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("invalid LOTTERY_TIMEZONE %q: %w", zone, err)
	}

	if weekday := os.Getenv("LOTTERY_CUTOVER_WEEKDAY"); weekday != "" {
		if config.CutoverWeekday, err = parseWeekday(weekday); err != nil {
			return nil, err
		}
	}
	if hour := os.Getenv("LOTTERY_CUTOVER_HOUR"); hour != "" {
		if config.CutoverHour, err = strconv.Atoi(hour); err != nil {
			return nil, fmt.Errorf("invalid LOTTERY_CUTOVER_HOUR %q: %w", hour, err)
		}
	}
	if config.CutoverHour < 0 || config.CutoverHour > 23 {
		return nil, fmt.Errorf("LOTTERY_CUTOVER_HOUR must be between 0 and 23, got %d", config.CutoverHour)
	}
	if size := os.Getenv("RESULT_CACHE_SIZE"); size != "" {
		if parsed, err := strconv.Atoi(size); err == nil && parsed > 0 {
			config.ResultCacheSize = parsed
		}
	}

	if config.TicketPrice, err = getDecimalWithDefault("TICKET_PRICE", "1"); err != nil {
		return nil, err
	}
	if !config.TicketPrice.IsPositive() {
		return nil, fmt.Errorf("TICKET_PRICE must be positive")
	}
	if config.PrizeFirst, err = getDecimalWithDefault("PRIZE_SPLIT_FIRST", "0.60"); err != nil {
		return nil, err
	}
	if config.PrizeSecond, err = getDecimalWithDefault("PRIZE_SPLIT_SECOND", "0.25"); err != nil {
		return nil, err
	}
	if config.PrizeThird, err = getDecimalWithDefault("PRIZE_SPLIT_THIRD", "0.10"); err != nil {
		return nil, err
	}
	if config.PrizeFirst.IsNegative() || config.PrizeSecond.IsNegative() || config.PrizeThird.IsNegative() {
		return nil, fmt.Errorf("prize split fractions cannot be negative")
	}
	if config.PrizeFirst.Add(config.PrizeSecond).Add(config.PrizeThird).GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("prize split fractions sum to more than 1")
	}

	if decimals := os.Getenv("TOKEN_DECIMALS"); decimals != "" {
		parsed, err := strconv.ParseInt(decimals, 10, 32)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid TOKEN_DECIMALS %q", decimals)
		}
		config.TokenDecimals = int32(parsed)
	}
	if confirmations := os.Getenv("CHAIN_MIN_CONFIRMATIONS"); confirmations != "" {
		if parsed, err := strconv.ParseUint(confirmations, 10, 64); err == nil {
			config.ChainMinConfirmations = parsed
		}
	}
	if rate := os.Getenv("CHAIN_RPC_RATE_LIMIT"); rate != "" {
		if parsed, err := strconv.ParseFloat(rate, 64); err == nil && parsed > 0 {
			config.ChainRPCRateLimit = parsed
		}
	}
	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.ChainRPCURL == "" {
			return nil, fmt.Errorf("CHAIN_RPC_URL is required")
		}
		if config.TokenContractAddress == "" {
			return nil, fmt.Errorf("TOKEN_CONTRACT_ADDRESS is required")
		}
		if config.PaymentReceiverAddress == "" {
			return nil, fmt.Errorf("PAYMENT_RECEIVER_ADDRESS is required")
		}
		if config.WorldIDAppID == "" {
			return nil, fmt.Errorf("WORLDID_APP_ID is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDecimalWithDefault(key, defaultValue string) (decimal.Decimal, error) {
	raw := getEnvWithDefault(key, defaultValue)
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return value, nil
}

// parseWeekday accepts an English day name or 0-6 with Sunday as 0
func parseWeekday(value string) (time.Weekday, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("LOTTERY_CUTOVER_WEEKDAY must be between 0 and 6, got %d", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(value, d.String()) || strings.EqualFold(value, d.String()[:3]) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid LOTTERY_CUTOVER_WEEKDAY %q", value)
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		LogLevel:              "debug",
		HTTPPort:              "8080",
		CORSOrigin:            "*",
		Location:              time.UTC,
		CutoverWeekday:        time.Sunday,
		CutoverHour:           19,
		TicketPrice:           decimal.NewFromInt(1),
		PrizeFirst:            decimal.RequireFromString("0.60"),
		PrizeSecond:           decimal.RequireFromString("0.25"),
		PrizeThird:            decimal.RequireFromString("0.10"),
		ResultCacheSize:       128,
		TokenDecimals:         18,
		ChainMinConfirmations: 1,
		ChainRPCRateLimit:     10,
		WorldIDActionID:       "buy-ticket",
		OTelExporterType:      "none",
		OTelServiceName:       "goldenticket",
	}
}
