package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	// Edition selects the discount mechanic: "lockbox" or "levels".
	Edition string `toml:"Edition"`

	CurveConstant  uint64 `toml:"CurveConstant"`
	BaseFeePercent uint32 `toml:"BaseFeePercent"`
	BaseFeePPM     uint64 `toml:"BaseFeePPM"`
	BlocksPerDay   uint64 `toml:"BlocksPerDay"`
	MinLockBlocks  uint64 `toml:"MinLockBlocks"`

	OwnerAddress       string `toml:"OwnerAddress"`
	FeeReceiverAddress string `toml:"FeeReceiverAddress"`
	VaultAddress       string `toml:"VaultAddress"`
	PaymentAsset       string `toml:"PaymentAsset"`
	ReserveAsset       string `toml:"ReserveAsset"`
}

// Load reads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8651"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./bnjidata"
	}
	if strings.TrimSpace(c.Edition) == "" {
		c.Edition = "lockbox"
	}
	if c.CurveConstant == 0 {
		c.CurveConstant = 8_000_000
	}
	if c.BaseFeePercent == 0 {
		c.BaseFeePercent = 1
	}
	if c.BaseFeePPM == 0 {
		c.BaseFeePPM = 10_000
	}
	if c.BlocksPerDay == 0 {
		c.BlocksPerDay = 43_200
	}
	if c.MinLockBlocks == 0 {
		c.MinLockBlocks = 10
	}
}

// Validate rejects configurations the daemon cannot safely run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Edition)) {
	case "lockbox", "levels":
	default:
		return fmt.Errorf("config: unknown edition %q", c.Edition)
	}
	for name, addr := range map[string]string{
		"OwnerAddress":       c.OwnerAddress,
		"FeeReceiverAddress": c.FeeReceiverAddress,
		"VaultAddress":       c.VaultAddress,
	} {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("config: %s is required", name)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a hex address: %q", name, addr)
		}
	}
	for name, addr := range map[string]string{
		"PaymentAsset": c.PaymentAsset,
		"ReserveAsset": c.ReserveAsset,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %s is not a hex address: %q", name, addr)
		}
	}
	return nil
}

// Address parses one of the validated hex address fields.
func Address(field string) common.Address {
	return common.HexToAddress(field)
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		OwnerAddress:       common.Address{0x01}.Hex(),
		FeeReceiverAddress: common.Address{0x02}.Hex(),
		VaultAddress:       common.Address{0x03}.Hex(),
	}
	cfg.applyDefaults()
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
