package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/datatoken"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/dispenser"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/erc20"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/escrow"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract/fixedrate"
	"golang.org/x/xerrors"
)

const defaultReceiptTimeout = 3 * time.Minute

// ErrUserRejected is returned when the user declines to sign a transaction.
var ErrUserRejected = errors.New("user rejected transaction")

// Confirmer asks the user to approve an action before the key signs it.
type Confirmer func(action string) bool

// ChainClient signs and submits every transaction of a job submission with one local key.
// Transaction methods block until the receipt is confirmed.
type ChainClient struct {
	client         *ethclient.Client
	privateK       string
	address        string
	confirm        Confirmer
	receiptTimeout time.Duration
}

func (w *LocalWallet) NewChainClient(chainName, addr string, confirm Confirmer, receiptTimeout time.Duration) (*ChainClient, error) {
	ki, err := w.findKey(addr)
	if err != nil {
		return nil, err
	}
	if ki == nil {
		return nil, xerrors.Errorf("the address: %s, private key %w,", addr, ErrKeyInfoNotFound)
	}
	client, err := dialChain(chainName)
	if err != nil {
		return nil, err
	}
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}
	return &ChainClient{
		client:         client,
		privateK:       ki.PrivateKey,
		address:        addr,
		confirm:        confirm,
		receiptTimeout: receiptTimeout,
	}, nil
}

func (c *ChainClient) Close() {
	c.client.Close()
}

func (c *ChainClient) Address() string {
	return c.address
}

func (c *ChainClient) SignRequest(ctx context.Context, msg string) (string, error) {
	if err := c.approve("sign provider request"); err != nil {
		return "", err
	}
	return SignPersonal(c.privateK, msg)
}

func (c *ChainClient) Decimals(ctx context.Context, token string) (uint8, error) {
	stub, err := erc20.NewTokenStub(c.client, token)
	if err != nil {
		return 0, err
	}
	return stub.Decimals(ctx)
}

func (c *ChainClient) Symbol(ctx context.Context, token string) (string, error) {
	stub, err := erc20.NewTokenStub(c.client, token)
	if err != nil {
		return "", err
	}
	return stub.Symbol(ctx)
}

func (c *ChainClient) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	stub, err := erc20.NewTokenStub(c.client, token)
	if err != nil {
		return nil, err
	}
	return stub.Allowance(ctx, owner, spender)
}

func (c *ChainClient) Approve(ctx context.Context, token, spender string, amount *big.Int) (string, error) {
	if err := c.approve(fmt.Sprintf("approve %s of token %s for %s", amount, token, spender)); err != nil {
		return "", err
	}
	stub, err := erc20.NewTokenStub(c.client, token, erc20.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "approve", func() (string, error) {
		return stub.Approve(ctx, spender, amount)
	})
}

func (c *ChainClient) Deposit(ctx context.Context, escrowAddr, token string, amount *big.Int) (string, error) {
	if err := c.approve(fmt.Sprintf("deposit %s of token %s into escrow %s", amount, token, escrowAddr)); err != nil {
		return "", err
	}
	stub, err := escrow.NewEscrowStub(c.client, escrowAddr, escrow.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "deposit", func() (string, error) {
		return stub.Deposit(ctx, token, amount)
	})
}

func (c *ChainClient) Authorize(ctx context.Context, escrowAddr, token, payee string, maxLockedAmount *big.Int,
	maxLockSeconds, maxLockCounts int64) (string, error) {
	if err := c.approve(fmt.Sprintf("authorize %s to lock up to %s of token %s", payee, maxLockedAmount, token)); err != nil {
		return "", err
	}
	stub, err := escrow.NewEscrowStub(c.client, escrowAddr, escrow.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "authorize", func() (string, error) {
		return stub.Authorize(ctx, token, payee, maxLockedAmount, maxLockSeconds, maxLockCounts)
	})
}

func (c *ChainClient) DatatokenBalance(ctx context.Context, datatokenAddr, owner string) (*big.Int, error) {
	stub, err := datatoken.NewDatatokenStub(c.client, datatokenAddr, datatoken.WithPublicKey(owner))
	if err != nil {
		return nil, err
	}
	return stub.BalanceOf(ctx)
}

func (c *ChainClient) Dispense(ctx context.Context, datatokenAddr string, amount *big.Int) (string, error) {
	if err := c.approve(fmt.Sprintf("take %s free datatoken %s from the dispenser", amount, datatokenAddr)); err != nil {
		return "", err
	}
	stub, err := dispenser.NewDispenserStub(c.client, dispenser.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "dispense", func() (string, error) {
		return stub.Dispense(ctx, datatokenAddr, amount)
	})
}

// BuyDatatoken approves the quoted base token amount to the exchange and buys amount datatokens.
func (c *ChainClient) BuyDatatoken(ctx context.Context, exchangeID, baseToken string, amount *big.Int, consumeMarket string) (string, error) {
	exchange, err := fixedrate.NewFixedRateStub(c.client, fixedrate.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	maxBase, err := exchange.BaseInGivenOut(ctx, exchangeID, amount)
	if err != nil {
		return "", err
	}
	if _, err := c.Approve(ctx, baseToken, exchange.Address(), maxBase); err != nil {
		return "", err
	}
	if err := c.approve(fmt.Sprintf("buy %s datatokens on exchange %s", amount, exchangeID)); err != nil {
		return "", err
	}
	return c.submit(ctx, "buyDT", func() (string, error) {
		return exchange.BuyDT(ctx, exchangeID, amount, maxBase, consumeMarket)
	})
}

func (c *ChainClient) StartOrder(ctx context.Context, req models.StartOrderRequest) (string, error) {
	if err := c.approve(fmt.Sprintf("order datatoken %s for service %d", req.Datatoken, req.ServiceIndex)); err != nil {
		return "", err
	}
	stub, err := datatoken.NewDatatokenStub(c.client, req.Datatoken, datatoken.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "startOrder", func() (string, error) {
		return stub.StartOrder(ctx, req)
	})
}

func (c *ChainClient) ReuseOrder(ctx context.Context, datatokenAddr, orderTx string, fee *models.ProviderFee) (string, error) {
	if err := c.approve(fmt.Sprintf("reuse order %s of datatoken %s", orderTx, datatokenAddr)); err != nil {
		return "", err
	}
	stub, err := datatoken.NewDatatokenStub(c.client, datatokenAddr, datatoken.WithPrivateKey(c.privateK))
	if err != nil {
		return "", err
	}
	return c.submit(ctx, "reuseOrder", func() (string, error) {
		return stub.ReuseOrder(ctx, orderTx, fee)
	})
}

func (c *ChainClient) approve(action string) error {
	if c.confirm != nil && !c.confirm(action) {
		return ErrUserRejected
	}
	return nil
}

func (c *ChainClient) submit(ctx context.Context, name string, send func() (string, error)) (string, error) {
	txHash, err := send()
	if err != nil {
		return "", err
	}
	logs.GetLogger().Infof("%s tx sent: %s, waiting for confirmation", name, txHash)
	if err := contract.WaitForReceipt(ctx, c.client, txHash, c.receiptTimeout); err != nil {
		return "", err
	}
	return txHash, nil
}
