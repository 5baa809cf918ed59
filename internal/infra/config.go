package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full gateway configuration. Secrets and deployment paths
// can be overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
		TLSCert    string `yaml:"tls_cert"`
		TLSKey     string `yaml:"tls_key"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Markets struct {
		Symbols []string `yaml:"symbols"`
	} `yaml:"markets"`

	Chain struct {
		RPCURL          string `yaml:"rpc_url"`
		PollIntervalSec int    `yaml:"poll_interval_sec"`
	} `yaml:"chain"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}
	// TLS is all-or-nothing
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if len(c.Markets.Symbols) == 0 {
		return fmt.Errorf("at least one market symbol is required")
	}
	if c.Chain.RPCURL != "" && !strings.HasPrefix(c.Chain.RPCURL, "http://") && !strings.HasPrefix(c.Chain.RPCURL, "https://") {
		return fmt.Errorf("invalid chain RPC URL: %s", c.Chain.RPCURL)
	}
	if c.Chain.PollIntervalSec < 0 {
		return fmt.Errorf("chain poll interval must not be negative")
	}
	return nil
}

// TLSEnabled reports whether the server should listen with TLS.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLSCert != "" && c.Server.TLSKey != ""
}

// overrideWithEnv applies environment overrides when present.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("BITEX_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if cert := os.Getenv("BITEX_TLS_CERT"); cert != "" {
		cfg.Server.TLSCert = cert
	}
	if key := os.Getenv("BITEX_TLS_KEY"); key != "" {
		cfg.Server.TLSKey = key
	}
	if path := os.Getenv("BITEX_DB_PATH"); path != "" {
		cfg.Database.Path = path
	}
	if url := os.Getenv("BITEX_CHAIN_RPC_URL"); url != "" {
		cfg.Chain.RPCURL = url
	}
}
