package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fazecat/signalmaker/Internal/types"
)

// ConfigurationError is fatal for the run: missing credentials or an
// invalid risk surface. It is never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

type Config struct {
	Run struct {
		LogLevel         string `yaml:"log_level" default:"info"`
		RateLimitDelayMS int    `yaml:"rate_limit_delay_ms" default:"1000" validate:"gte=0"`
	} `yaml:"run"`

	Risk RiskConfig `yaml:"risk"`

	Broker BrokerConfig `yaml:"broker"`

	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
}

// RiskConfig is the risk surface applied to every confirmed signal.
type RiskConfig struct {
	CapitalPerTrade     float64 `yaml:"capital_per_trade" default:"10000" validate:"gt=0"`
	MaxPositions        int     `yaml:"max_positions" default:"5" validate:"gte=1"`
	StopLossPercent     float64 `yaml:"stop_loss_percent" default:"5" validate:"gte=0,lt=100"`
	TargetPercent       float64 `yaml:"target_percent" default:"10" validate:"gte=0"`
	ConfirmationCandles int     `yaml:"confirmation_candles" default:"1" validate:"gte=0"`
	OrderType           string  `yaml:"order_type" default:"LIMIT" validate:"oneof=LIMIT MARKET"`
	LimitPriceOffset    float64 `yaml:"limit_price_offset" default:"0.5" validate:"gte=0,lt=100"`
	TimeInForce         string  `yaml:"time_in_force" default:"DAY"`
	EnableAutoOrders    bool    `yaml:"enable_auto_orders"`
}

type BrokerConfig struct {
	Name            string  `yaml:"name" default:"demo" validate:"oneof=demo dhan"`
	APIURL          string  `yaml:"api_url" default:"https://api.dhan.co/v2"`
	FallbackURL     string  `yaml:"fallback_url"`
	ExchangeSegment string  `yaml:"exchange_segment" default:"NSE_EQ"`
	ProductType     string  `yaml:"product_type" default:"CNC"`
	TrailingJump    float64 `yaml:"trailing_jump" default:"10"`

	// Credentials come from the environment, never from yaml.
	ClientID    string `yaml:"-"`
	AccessToken string `yaml:"-"`
}

// Load reads the yaml config (optional — defaults apply when the file
// is absent), pulls credentials from the environment and validates the
// result. A .env file in the working directory is honored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}

	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("invalid yaml: %v", err)}
		}
	}

	loadBrokerCredentials(&cfg.Broker)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile returns nil data (not an error) when no explicit path
// was given and no config.yaml is present.
func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("cannot read config %s: %v", path, err)}
		}
		return data, nil
	}

	for _, candidate := range []string{"config.yaml", filepath.Join("config", "config.yaml")} {
		if data, err := os.ReadFile(candidate); err == nil {
			return data, nil
		}
	}
	return nil, nil
}

// Validate checks the structural constraints and the credential
// requirements of the selected broker.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigurationError{Reason: err.Error()}
	}

	if c.Broker.Name == "dhan" {
		if c.Broker.AccessToken == "" {
			return &ConfigurationError{Reason: "dhan access token not configured (set DHAN_ACCESS_TOKEN)"}
		}
		if c.Broker.ClientID == "" {
			return &ConfigurationError{Reason: "dhan client id not configured and not present in the access token"}
		}
	}
	return nil
}

// OrderKind normalizes the configured order type.
func (c *Config) OrderKind() string {
	if c.Risk.OrderType == types.OrderKindMarket {
		return types.OrderKindMarket
	}
	return types.OrderKindLimit
}
