package erc20

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
	token    *ERC20
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

func NewTokenStub(client *ethclient.Client, tokenAddr string, options ...Option) (*Stub, error) {
	stub := &Stub{}
	for _, option := range options {
		option(stub)
	}

	if !common.IsHexAddress(tokenAddr) {
		return nil, fmt.Errorf("invalid token contract address: %s", tokenAddr)
	}
	token, err := NewERC20(common.HexToAddress(tokenAddr), client)
	if err != nil {
		return nil, fmt.Errorf("create token contract client, error: %+v", err)
	}

	stub.token = token
	stub.client = client
	return stub, nil
}

func (s *Stub) BalanceOf(ctx context.Context) (*big.Int, error) {
	if len(strings.TrimSpace(s.publicK)) == 0 {
		return nil, fmt.Errorf("wallet address must be not empty")
	}
	publicAddress := common.HexToAddress(s.publicK)

	balance, err := s.token.BalanceOf(&bind.CallOpts{Context: ctx}, publicAddress)
	if err != nil {
		return nil, fmt.Errorf("address: %s, read token contract balance, error: %+v", publicAddress, err)
	}
	return balance, nil
}

func (s *Stub) Decimals(ctx context.Context) (uint8, error) {
	decimals, err := s.token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, fmt.Errorf("token: %s, read decimals, error: %+v", s.token.Address(), err)
	}
	return decimals, nil
}

func (s *Stub) Symbol(ctx context.Context) (string, error) {
	symbol, err := s.token.Symbol(&bind.CallOpts{Context: ctx})
	if err != nil {
		return "", fmt.Errorf("token: %s, read symbol, error: %+v", s.token.Address(), err)
	}
	return symbol, nil
}

func (s *Stub) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	allowance, err := s.token.Allowance(&bind.CallOpts{Context: ctx}, common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("owner: %s, read allowance for %s, error: %+v", owner, spender, err)
	}
	return allowance, nil
}

func (s *Stub) Approve(ctx context.Context, spender string, amount *big.Int) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}

	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, token client create transaction, error: %+v", keys.Address, err)
	}

	transaction, err := s.token.Approve(txOptions, common.HexToAddress(spender), amount)
	if err != nil {
		return "", fmt.Errorf("address: %s, token contract approve, error: %+v", keys.Address, err)
	}
	return transaction.Hash().String(), nil
}
