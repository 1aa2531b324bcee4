package escrow

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract"
)

type Stub struct {
	client   *ethclient.Client
	escrow   *Escrow
	privateK string
	publicK  string
}

type Option func(*Stub)

func WithPrivateKey(pk string) Option {
	return func(obj *Stub) {
		obj.privateK = pk
	}
}

func WithPublicKey(pk string) Option {
	return func(obj *Stub) {
		obj.publicK = pk
	}
}

func NewEscrowStub(client *ethclient.Client, escrowAddr string, options ...Option) (*Stub, error) {
	stub := &Stub{}
	for _, option := range options {
		option(stub)
	}

	if !common.IsHexAddress(escrowAddr) {
		return nil, fmt.Errorf("invalid escrow contract address: %s", escrowAddr)
	}
	escrowClient, err := NewEscrow(common.HexToAddress(escrowAddr), client)
	if err != nil {
		return nil, fmt.Errorf("create escrow contract client, error: %+v", err)
	}

	stub.escrow = escrowClient
	stub.client = client
	return stub, nil
}

func (s *Stub) Funds(ctx context.Context, token string) (UserFunds, error) {
	if len(strings.TrimSpace(s.publicK)) == 0 {
		return UserFunds{}, fmt.Errorf("wallet address must be not empty")
	}
	funds, err := s.escrow.GetUserFunds(&bind.CallOpts{Context: ctx}, common.HexToAddress(s.publicK), common.HexToAddress(token))
	if err != nil {
		return UserFunds{}, fmt.Errorf("address: %s, read escrow funds, error: %+v", s.publicK, err)
	}
	return funds, nil
}

func (s *Stub) Deposit(ctx context.Context, token string, amount *big.Int) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, escrow client create transaction, error: %+v", keys.Address, err)
	}

	transaction, err := s.escrow.Deposit(txOptions, common.HexToAddress(token), amount)
	if err != nil {
		return "", fmt.Errorf("address: %s, escrow deposit tx error: %+v", keys.Address, err)
	}
	return transaction.Hash().String(), nil
}

func (s *Stub) Authorize(ctx context.Context, token, payee string, maxLockedAmount *big.Int, maxLockSeconds, maxLockCounts int64) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, escrow client create transaction, error: %+v", keys.Address, err)
	}

	transaction, err := s.escrow.Authorize(txOptions, common.HexToAddress(token), common.HexToAddress(payee), maxLockedAmount,
		big.NewInt(maxLockSeconds), big.NewInt(maxLockCounts))
	if err != nil {
		return "", fmt.Errorf("address: %s, escrow authorize tx error: %+v", keys.Address, err)
	}
	return transaction.Hash().String(), nil
}
