package conf

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var config *ComputeClient

// ComputeClient is the c2d client config
type ComputeClient struct {
	API      API
	Provider Provider
	Policy   Policy
	Market   Market
	Escrow   Escrow
	Cache    Cache
	Wallet   Wallet
	Assets   Assets
}

type API struct {
	Port    int
	CrtFile string
	KeyFile string
}

type Provider struct {
	Url            string
	TimeoutSeconds int
	RetryMax       int
}

type Policy struct {
	SsiEnabled        bool
	ServerUrl         string
	WalletApiUrl      string
	WalletId          string
	WalletToken       string
	SessionTtlMinutes int
}

type Market struct {
	ChainId                 int64
	OrderFeePercent         float64
	ConsumeMarketFeeAddress string
	ConsumeMarketFeeToken   string
	ConsumeMarketFeeAmount  string
	PaymentToken            string
}

type Escrow struct {
	AllowancePollSeconds  int
	AllowancePollAttempts int
	ReceiptTimeoutSeconds int
}

type Cache struct {
	Backend       string
	LevelDbDir    string
	RedisUrl      string
	RedisPassword string
}

type Wallet struct {
	Address   string
	ChainName string
}

type Assets struct {
	Dir string
}

const (
	CacheMemory  = "memory"
	CacheLevelDb = "leveldb"
	CacheRedis   = "redis"

	DefaultChainName = "oasis_sapphire"
)

func InitConfig(repoPath string) error {
	configFile := filepath.Join(repoPath, "config.toml")

	var c ComputeClient
	metaData, err := toml.DecodeFile(configFile, &c)
	if err != nil {
		return fmt.Errorf("failed load config file, path: %s, error: %w", configFile, err)
	}
	if err := requiredFieldsAreGiven(metaData); err != nil {
		return err
	}
	c.applyDefaults(repoPath)
	config = &c
	return nil
}

func GetConfig() *ComputeClient {
	return config
}

// SetConfig replaces the loaded config, used by commands that build it from flags.
func SetConfig(c *ComputeClient) {
	config = c
}

func (c *ComputeClient) applyDefaults(repoPath string) {
	if c.API.Port == 0 {
		c.API.Port = 8086
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = 30
	}
	if c.Policy.SessionTtlMinutes <= 0 {
		c.Policy.SessionTtlMinutes = 15
	}
	if c.Escrow.AllowancePollSeconds <= 0 {
		c.Escrow.AllowancePollSeconds = 2
	}
	if c.Escrow.AllowancePollAttempts <= 0 {
		c.Escrow.AllowancePollAttempts = 10
	}
	if c.Escrow.ReceiptTimeoutSeconds <= 0 {
		c.Escrow.ReceiptTimeoutSeconds = 180
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheLevelDb
	}
	if c.Cache.LevelDbDir == "" {
		c.Cache.LevelDbDir = filepath.Join(repoPath, "cache")
	}
	if c.Wallet.ChainName == "" {
		c.Wallet.ChainName = DefaultChainName
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = filepath.Join(repoPath, "assets")
	}
}

func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (p Policy) SessionTTL() time.Duration {
	return time.Duration(p.SessionTtlMinutes) * time.Minute
}

func (e Escrow) PollInterval() time.Duration {
	return time.Duration(e.AllowancePollSeconds) * time.Second
}

func (e Escrow) ReceiptTimeout() time.Duration {
	return time.Duration(e.ReceiptTimeoutSeconds) * time.Second
}

func requiredFieldsAreGiven(metaData toml.MetaData) error {
	requiredFields := [][]string{
		{"Provider"},
		{"Market"},

		{"Provider", "Url"},

		{"Market", "ChainId"},
		{"Market", "PaymentToken"},
	}

	var missing []string
	for _, v := range requiredFields {
		if !metaData.IsDefined(v...) {
			missing = append(missing, strings.Join(v, "."))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required fields not given: %s", strings.Join(missing, ", "))
	}
	return nil
}
