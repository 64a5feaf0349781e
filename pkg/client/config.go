package client

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/peter-kozarec/ibridge/pkg/gateway"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 7497
	DefaultClientId      = 1
	DefaultTimeout       = 30 * time.Second
	DefaultEventCapacity = 1024
	DefaultErrorBuffer   = 64
)

type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientId int64  `yaml:"client_id"`
	// Account is used when a request does not name one.
	Account string `yaml:"account"`
	// Timeout bounds Connect and every one-shot request whose context has no deadline.
	Timeout       time.Duration `yaml:"timeout"`
	EventCapacity int           `yaml:"event_capacity"`
	ErrorBuffer   int           `yaml:"error_buffer"`
	// AccountCurrencies filters account values. Empty keeps every currency.
	AccountCurrencies []string `yaml:"account_currencies"`
}

func NewConfig() Config {
	return Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		ClientId:          DefaultClientId,
		Timeout:           DefaultTimeout,
		EventCapacity:     DefaultEventCapacity,
		ErrorBuffer:       DefaultErrorBuffer,
		AccountCurrencies: []string{"USD"},
	}
}

// LoadConfig reads a YAML file over the defaults, applies environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := NewConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config from YAML: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IB_HOST, IB_PORT, IB_CLIENT_ID and IB_ACCOUNT.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("IB_HOST"); ok {
		c.Host = v
	}
	if v, ok := os.LookupEnv("IB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid IB_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("IB_CLIENT_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid IB_CLIENT_ID %q: %w", v, err)
		}
		c.ClientId = id
	}
	if v, ok := os.LookupEnv("IB_ACCOUNT"); ok {
		c.Account = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Port)
	}
	if c.ClientId < 0 {
		return fmt.Errorf("client id cannot be negative: %d", c.ClientId)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if c.EventCapacity <= 0 {
		return errors.New("event capacity must be greater than 0")
	}
	if c.ErrorBuffer < 0 {
		return errors.New("error buffer cannot be negative")
	}
	return nil
}

func (c Config) gateway() gateway.Config {
	return gateway.Config{Host: c.Host, Port: c.Port, ClientId: c.ClientId}
}
