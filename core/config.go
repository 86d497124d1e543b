package core

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const maxReceiptDecimals = 77

type LedgerConfig struct {
	BaseURI string `koanf:"base_uri" mapstructure:"base_uri"`
	Signer  string `koanf:"signer" mapstructure:"signer"`
}

type ReceiptConfig struct {
	Kind     string `koanf:"kind" mapstructure:"kind"`
	Name     string `koanf:"name" mapstructure:"name"`
	Symbol   string `koanf:"symbol" mapstructure:"symbol"`
	Decimals int    `koanf:"decimals" mapstructure:"decimals"`
}

type VaultConfig struct {
	Name string `koanf:"name" mapstructure:"name"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Ledger      LedgerConfig  `koanf:"ledger" mapstructure:"ledger"`
	Receipt     ReceiptConfig `koanf:"receipt" mapstructure:"receipt"`
	Vault       VaultConfig   `koanf:"vault" mapstructure:"vault"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "carbon",
		Ledger: LedgerConfig{
			BaseURI: "ipfs://",
		},
		Receipt: ReceiptConfig{
			Kind:     string(ReceiptKindPooled),
			Name:     "CarbonReceipt",
			Symbol:   "CRCPT",
			Decimals: 18,
		},
		Vault: VaultConfig{
			Name: "CarbonVault",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if signer := strings.TrimSpace(c.Ledger.Signer); signer != "" && !common.IsHexAddress(signer) {
		return fmt.Errorf("core: ledger.signer %q is not a hex address", signer)
	}
	switch ReceiptKind(strings.TrimSpace(c.Receipt.Kind)) {
	case ReceiptKindPooled, ReceiptKindProvenance:
	default:
		return fmt.Errorf("core: receipt.kind %q is invalid", c.Receipt.Kind)
	}
	if c.Receipt.Decimals < 0 || c.Receipt.Decimals > maxReceiptDecimals {
		return fmt.Errorf("core: receipt.decimals must be between 0 and %d", maxReceiptDecimals)
	}
	return nil
}

// SignerAddress returns the configured ledger signer, or the zero address
// when none is configured.
func (c Config) SignerAddress() Address {
	signer := strings.TrimSpace(c.Ledger.Signer)
	if signer == "" {
		return ZeroAddress
	}
	return common.HexToAddress(signer)
}
