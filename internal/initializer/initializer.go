package initializer

import (
	"context"
	"fmt"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/conf"
	"github.com/lagrangedao/go-compute-to-data/internal/computing"
	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
	"github.com/lagrangedao/go-compute-to-data/wallet"
)

type Options struct {
	RepoPath string
	// Account overrides the configured wallet address.
	Account  string
	Prompter credential.Prompter
	Confirm  wallet.Confirmer
	Notify   func(string)
}

// Components is the wired client. Close releases the chain connection and the cache.
type Components struct {
	Config       *conf.ComputeClient
	Provider     *provider.Client
	Chain        *wallet.ChainClient
	Gate         *credential.Gate
	Orchestrator *computing.Orchestrator
	store        credential.Store
}

func (c *Components) Close() {
	if c.Chain != nil {
		c.Chain.Close()
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			logs.GetLogger().Errorf("close credential cache failed, error: %v", err)
		}
	}
}

func ProjectInit(opts Options) (*Components, error) {
	if err := conf.InitConfig(opts.RepoPath); err != nil {
		return nil, err
	}
	cfg := conf.GetConfig()

	providerClient := provider.NewClient(cfg.Provider.Url, cfg.Provider.Timeout(), cfg.Provider.RetryMax)

	store, err := NewCacheStore(cfg.Cache)
	if err != nil {
		return nil, err
	}
	comps := &Components{Config: cfg, Provider: providerClient, store: store}

	chain, err := openChain(cfg, opts)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Chain = chain

	comps.Gate = NewGate(cfg, providerClient, store, opts)
	comps.Orchestrator = computing.NewOrchestrator(computing.OrchestratorConfig{
		ChainID:      cfg.Market.ChainId,
		PaymentToken: cfg.Market.PaymentToken,
	}, computing.Deps{
		Provider: providerClient,
		Chain:    chain,
		Gate:     comps.Gate,
		Prices:   &computing.PriceCalculator{OrderFeePercent: cfg.Market.OrderFeePercent},
		Payer:    computing.NewEscrowPayer(chain, cfg.Escrow.PollInterval(), cfg.Escrow.AllowancePollAttempts),
	}, models.ConsumeMarketFee{
		Address: cfg.Market.ConsumeMarketFeeAddress,
		Token:   cfg.Market.ConsumeMarketFeeToken,
		Amount:  cfg.Market.ConsumeMarketFeeAmount,
	})

	logs.GetLogger().Infof("c2d client ready, provider: %s, account: %s, ssi: %v", cfg.Provider.Url, chain.Address(), cfg.Policy.SsiEnabled)
	return comps, nil
}

// NewCacheStore opens the configured credential cache backend.
func NewCacheStore(c conf.Cache) (credential.Store, error) {
	switch c.Backend {
	case conf.CacheMemory:
		return credential.NewMemoryStore(), nil
	case conf.CacheLevelDb, "":
		return credential.OpenLevelDBStore(c.LevelDbDir)
	case conf.CacheRedis:
		if c.RedisUrl == "" {
			return nil, fmt.Errorf("redis cache requires Cache.RedisUrl")
		}
		return credential.NewRedisStore(credential.NewRedisPool(c.RedisUrl, c.RedisPassword), 0), nil
	}
	return nil, fmt.Errorf("unknown cache backend: %s", c.Backend)
}

// NewGate wires the credential gate. A configured policy server URL is called
// directly, otherwise requests pass through the provider.
func NewGate(cfg *conf.ComputeClient, providerClient *provider.Client, store credential.Store, opts Options) *credential.Gate {
	var policy *credential.PolicyServer
	if cfg.Policy.ServerUrl != "" {
		policy = credential.NewDirectPolicyServer(cfg.Policy.ServerUrl, cfg.Provider.Timeout(), cfg.Provider.RetryMax)
	} else {
		policy = credential.NewPassthroughPolicyServer(providerClient)
	}
	ssiWallet := credential.NewSSIWallet(cfg.Policy.WalletApiUrl, cfg.Policy.WalletId, cfg.Policy.WalletToken,
		cfg.Provider.Timeout(), cfg.Provider.RetryMax)

	notify := opts.Notify
	if notify == nil {
		notify = func(text string) { logs.GetLogger().Info(text) }
	}
	return credential.NewGate(cfg.Policy.SsiEnabled, policy, ssiWallet,
		credential.NewCache(store, cfg.Policy.SessionTTL()), opts.Prompter,
		credential.WithNotifier(notify),
		credential.WithErrorCallback(func(err error) {
			logs.GetLogger().Errorf("credential exchange failed, error: %v", err)
		}),
	)
}

func openChain(cfg *conf.ComputeClient, opts Options) (*wallet.ChainClient, error) {
	localWallet, err := wallet.SetupWallet(wallet.WalletRepo)
	if err != nil {
		return nil, err
	}
	account := opts.Account
	if account == "" {
		account = cfg.Wallet.Address
	}
	if account == "" {
		addrs, err := localWallet.AddressList(context.TODO())
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no wallet key found, run 'c2d-client wallet new' first")
		}
		account = addrs[0]
	}
	confirm := opts.Confirm
	if confirm == nil {
		confirm = func(string) bool { return true }
	}
	return localWallet.NewChainClient(cfg.Wallet.ChainName, account, confirm, cfg.Escrow.ReceiptTimeout())
}
