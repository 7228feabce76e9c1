package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"pointsale/native/fees"
)

// Config captures the daemon configuration loaded from TOML.
type Config struct {
	ListenAddress     string `toml:"ListenAddress"`
	DataDir           string `toml:"DataDir"`
	Environment       string `toml:"Environment"`
	OperatorAddress   string `toml:"OperatorAddress"`
	GovernanceAddress string `toml:"GovernanceAddress"`
	CustodyAddress    string `toml:"CustodyAddress"`
	OperatorToken     string `toml:"OperatorToken"`
	GovernanceToken   string `toml:"GovernanceToken"`
	FeeMaxBps         uint32 `toml:"FeeMaxBps"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8651"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "dev"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration invariants before the daemon starts.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}
	for name, value := range map[string]string{
		"OperatorAddress":   c.OperatorAddress,
		"GovernanceAddress": c.GovernanceAddress,
		"CustodyAddress":    c.CustodyAddress,
	} {
		if !ethcommon.IsHexAddress(strings.TrimSpace(value)) {
			return fmt.Errorf("config: %s must be a hex address", name)
		}
	}
	if strings.TrimSpace(c.OperatorToken) == "" {
		return fmt.Errorf("config: OperatorToken required")
	}
	if strings.TrimSpace(c.GovernanceToken) == "" {
		return fmt.Errorf("config: GovernanceToken required")
	}
	if c.FeeMaxBps > fees.RateBpsDenominator {
		return fmt.Errorf("config: FeeMaxBps must not exceed %d", fees.RateBpsDenominator)
	}
	return nil
}

// Operator returns the parsed operator address.
func (c *Config) Operator() [20]byte { return parseAddress(c.OperatorAddress) }

// Governance returns the parsed governance address.
func (c *Config) Governance() [20]byte { return parseAddress(c.GovernanceAddress) }

// Custody returns the parsed engine custody address.
func (c *Config) Custody() [20]byte { return parseAddress(c.CustodyAddress) }

func parseAddress(value string) [20]byte {
	return [20]byte(ethcommon.HexToAddress(strings.TrimSpace(value)))
}
