package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Service   ServiceConfig   `toml:"Service"`
	Graph     GraphConfig     `toml:"Graph"`
	Node      NodeConfig      `toml:"Node"`
	Gateway   GatewayConfig   `toml:"Gateway"`
	Scan      ScanConfig      `toml:"Scan"`
	Telemetry TelemetryConfig `toml:"Telemetry"`
}

type ServiceConfig struct {
	Name     string `toml:"Name"`
	LogLevel string `toml:"LogLevel"`
}

type GraphConfig struct {
	URL             string `toml:"URL"`
	PollSeconds     int    `toml:"PollSeconds"`
	TimeoutSeconds  int    `toml:"TimeoutSeconds"`
	Retries         int    `toml:"Retries"`
	AccountPageSize int    `toml:"AccountPageSize"`
}

type NodeConfig struct {
	RPCURL             string `toml:"RPCURL"`
	PortfoliosContract string `toml:"PortfoliosContract"`
	ReconcileRateLimit int    `toml:"ReconcileRateLimit"`
}

type GatewayConfig struct {
	ListenAddress  string  `toml:"ListenAddress"`
	RateLimitRPS   float64 `toml:"RateLimitRPS"`
	RateLimitBurst int     `toml:"RateLimitBurst"`
}

type ScanConfig struct {
	Workers int `toml:"Workers"`
}

type TelemetryConfig struct {
	Enabled     bool              `toml:"Enabled"`
	Environment string            `toml:"Environment"`
	Endpoint    string            `toml:"Endpoint"`
	Insecure    bool              `toml:"Insecure"`
	Traces      bool              `toml:"Traces"`
	Metrics     bool              `toml:"Metrics"`
	Headers     map[string]string `toml:"Headers"`
}

// Load reads the configuration from the given path and fills defaults for
// anything not set.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0].String())
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{Name: "liquidator", LogLevel: "info"},
		Graph: GraphConfig{
			PollSeconds:     30,
			TimeoutSeconds:  15,
			Retries:         3,
			AccountPageSize: 1000,
		},
		Node:    NodeConfig{ReconcileRateLimit: 10},
		Gateway: GatewayConfig{ListenAddress: ":7058", RateLimitRPS: 50, RateLimitBurst: 100},
		Scan:    ScanConfig{Workers: 0},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4318",
			Traces:   true,
			Metrics:  true,
		},
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if strings.TrimSpace(c.Service.Name) == "" {
		c.Service.Name = d.Service.Name
	}
	if strings.TrimSpace(c.Service.LogLevel) == "" {
		c.Service.LogLevel = d.Service.LogLevel
	}
	if c.Graph.PollSeconds <= 0 {
		c.Graph.PollSeconds = d.Graph.PollSeconds
	}
	if c.Graph.TimeoutSeconds <= 0 {
		c.Graph.TimeoutSeconds = d.Graph.TimeoutSeconds
	}
	if c.Graph.Retries <= 0 {
		c.Graph.Retries = d.Graph.Retries
	}
	if c.Graph.AccountPageSize <= 0 {
		c.Graph.AccountPageSize = d.Graph.AccountPageSize
	}
	if c.Node.ReconcileRateLimit <= 0 {
		c.Node.ReconcileRateLimit = d.Node.ReconcileRateLimit
	}
	if strings.TrimSpace(c.Gateway.ListenAddress) == "" {
		c.Gateway.ListenAddress = d.Gateway.ListenAddress
	}
	if c.Gateway.RateLimitRPS <= 0 {
		c.Gateway.RateLimitRPS = d.Gateway.RateLimitRPS
	}
	if c.Gateway.RateLimitBurst <= 0 {
		c.Gateway.RateLimitBurst = d.Gateway.RateLimitBurst
	}
	if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		c.Telemetry.Endpoint = d.Telemetry.Endpoint
	}
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Graph.URL) == "" {
		return fmt.Errorf("config: Graph.URL is required")
	}
	if addr := strings.TrimSpace(c.Node.PortfoliosContract); addr != "" && !common.IsHexAddress(addr) {
		return fmt.Errorf("config: Node.PortfoliosContract %q is not a hex address", addr)
	}
	return nil
}

// PollInterval returns the subgraph refresh period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Graph.PollSeconds) * time.Second
}

// GraphTimeout returns the per-query subgraph timeout.
func (c *Config) GraphTimeout() time.Duration {
	return time.Duration(c.Graph.TimeoutSeconds) * time.Second
}
