package computing

import (
	"context"
	"math/big"

	"github.com/lagrangedao/go-compute-to-data/internal/credential"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
)

// EscrowChain is the token and escrow surface used to pay for resources.
// Transaction methods return once the transaction is confirmed.
type EscrowChain interface {
	Decimals(ctx context.Context, token string) (uint8, error)
	Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error)
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	Deposit(ctx context.Context, escrow, token string, amount *big.Int) (string, error)
	Authorize(ctx context.Context, escrow, token, payee string, maxLockedAmount *big.Int, maxLockSeconds, maxLockCounts int64) (string, error)
}

// OrderChain is the datatoken surface used to acquire and order asset access.
type OrderChain interface {
	DatatokenBalance(ctx context.Context, datatoken, owner string) (*big.Int, error)
	Dispense(ctx context.Context, datatoken string, amount *big.Int) (string, error)
	BuyDatatoken(ctx context.Context, exchangeID, baseToken string, amount *big.Int, consumeMarket string) (string, error)
	StartOrder(ctx context.Context, req models.StartOrderRequest) (string, error)
	ReuseOrder(ctx context.Context, datatoken, orderTx string, fee *models.ProviderFee) (string, error)
}

type TokenLookup interface {
	Symbol(ctx context.Context, token string) (string, error)
	Decimals(ctx context.Context, token string) (uint8, error)
}

type MessageSigner interface {
	Address() string
	SignRequest(ctx context.Context, msg string) (string, error)
}

// Chain is everything a job submission needs from the connected wallet.
type Chain interface {
	EscrowChain
	OrderChain
	MessageSigner
	Symbol(ctx context.Context, token string) (string, error)
}

type ProviderAPI interface {
	GetComputeEnvironments(ctx context.Context, chainID int64) ([]models.ComputeEnvironment, error)
	GetNonce(ctx context.Context, address string) (int64, error)
	InitializeCompute(ctx context.Context, req provider.InitializeComputeRequest) (*models.ProviderInitializationResult, error)
	ComputeStart(ctx context.Context, req provider.ComputeStartRequest) ([]models.ComputeJob, error)
	FreeComputeStart(ctx context.Context, req provider.ComputeStartRequest) ([]models.ComputeJob, error)
	ComputeStatus(ctx context.Context, consumer, jobID string) ([]models.ComputeJob, error)
}

// CredentialGate is the credential exchange as seen by the orchestrator.
type CredentialGate interface {
	Enabled() bool
	Verify(ctx context.Context, req credential.Request) (string, error)
	CheckSession(ctx context.Context, assetID, serviceID string) (string, error)
	Reset() error
}

// AssetResolver loads asset metadata and its pricing view.
type AssetResolver interface {
	GetAsset(ctx context.Context, did string) (*models.Asset, error)
	GetAccessDetails(ctx context.Context, asset *models.Asset, serviceID, account string) (*models.AccessDetails, error)
}
