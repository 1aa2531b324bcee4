package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	EscrowContract      = "escrow"
	FixedRateContract   = "fixed_rate_exchange"
	DispenserContract   = "dispenser"
	PaymentTokenAddress = "payment_token"

	DefaultRpc = "oasis_sapphire"
	TestRpc    = "sepolia"
)

type ChainConfig struct {
	RPC struct {
		SepoliaUrl  string `toml:"SEPOLIA_URL"`
		SapphireUrl string `toml:"SAPPHIRE_URL"`
	} `toml:"RPC"`
	CONTRACT struct {
		Escrow       string `toml:"ESCROW_CONTRACT"`
		FixedRate    string `toml:"FIXED_RATE_EXCHANGE_CONTRACT"`
		Dispenser    string `toml:"DISPENSER_CONTRACT"`
		PaymentToken string `toml:"PAYMENT_TOKEN"`
	} `toml:"CONTRACT"`
}

func GetContractAddressByName(name string) (string, error) {
	chain, err := loadConfig()
	if err != nil {
		return "", err
	}
	var addr string
	switch name {
	case EscrowContract:
		addr = chain.CONTRACT.Escrow
	case FixedRateContract:
		addr = chain.CONTRACT.FixedRate
	case DispenserContract:
		addr = chain.CONTRACT.Dispenser
	case PaymentTokenAddress:
		addr = chain.CONTRACT.PaymentToken
	}
	if addr == "" {
		return "", fmt.Errorf("contract address %s is not configured", name)
	}
	return addr, nil
}

func GetRpcByName(rpcName string) (string, error) {
	chain, err := loadConfig()
	if err != nil {
		return "", err
	}
	var rpc string
	switch rpcName {
	case TestRpc:
		rpc = chain.RPC.SepoliaUrl
	case DefaultRpc:
		rpc = chain.RPC.SapphireUrl
	}
	if rpc == "" {
		return "", fmt.Errorf("rpc %s is not configured", rpcName)
	}
	return rpc, nil
}

func loadConfig() (*ChainConfig, error) {
	var chainConfig ChainConfig
	configFilePath := filepath.Join(os.Getenv("C2D_PATH"), "config.toml")
	if _, err := toml.DecodeFile(configFilePath, &chainConfig); err != nil {
		return nil, err
	}
	return &chainConfig, nil
}
