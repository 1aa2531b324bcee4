package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const receiptPollInterval = 3 * time.Second

// Keys holds the parsed private key of the sending account.
type Keys struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

func ParseKeys(privateK string) (*Keys, error) {
	if len(strings.TrimSpace(privateK)) == 0 {
		return nil, fmt.Errorf("wallet address private key must be not empty")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateK, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parses private key error: %+v", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("cannot assert type: publicKey is not of type *ecdsa.PublicKey")
	}
	return &Keys{PrivateKey: privateKey, Address: crypto.PubkeyToAddress(*publicKeyECDSA)}, nil
}

func CreateTransactOpts(ctx context.Context, client *ethclient.Client, keys *Keys) (*bind.TransactOpts, error) {
	nonce, err := client.PendingNonceAt(ctx, keys.Address)
	if err != nil {
		return nil, fmt.Errorf("address: %s, get nonce error: %+v", keys.Address, err)
	}

	suggestGasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("address: %s, retrieves the currently suggested gas price, error: %+v", keys.Address, err)
	}

	chainId, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("address: %s, get networkId, error: %+v", keys.Address, err)
	}

	txOptions, err := bind.NewKeyedTransactorWithChainID(keys.PrivateKey, chainId)
	if err != nil {
		return nil, fmt.Errorf("address: %s, create transaction, error: %+v", keys.Address, err)
	}
	txOptions.Nonce = big.NewInt(int64(nonce))
	suggestGasPrice = suggestGasPrice.Mul(suggestGasPrice, big.NewInt(3))
	suggestGasPrice = suggestGasPrice.Div(suggestGasPrice, big.NewInt(2))
	txOptions.GasFeeCap = suggestGasPrice
	txOptions.Context = ctx
	return txOptions, nil
}

// WaitForReceipt polls until the transaction is mined, fails, or timeout elapses.
func WaitForReceipt(ctx context.Context, client *ethclient.Client, txHash string, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("timeout waiting for transaction confirmation, tx: %s", txHash)
		case <-ticker.C:
			receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return fmt.Errorf("monitor tx %s, error: %+v", txHash, err)
			}
			if receipt == nil {
				continue
			}
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return fmt.Errorf("transaction execution failed, tx: %s", txHash)
		}
	}
}
