package dispenser

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lagrangedao/go-compute-to-data/wallet/conf"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract"
)

var DispenserMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"name":"datatoken","type":"address"},{"name":"amount","type":"uint256"},{"name":"destination","type":"address"}],"name":"dispense","outputs":[],"stateMutability":"payable","type":"function"}
]`,
}

type Dispenser struct {
	contract *bind.BoundContract
}

func NewDispenser(address common.Address, backend bind.ContractBackend) (*Dispenser, error) {
	parsed, err := DispenserMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &Dispenser{contract: bind.NewBoundContract(address, *parsed, backend, backend, backend)}, nil
}

func (d *Dispenser) Dispense(opts *bind.TransactOpts, datatoken common.Address, amount *big.Int, destination common.Address) (*types.Transaction, error) {
	return d.contract.Transact(opts, "dispense", datatoken, amount, destination)
}

type Stub struct {
	client    *ethclient.Client
	dispenser *Dispenser
	privateK  string
}

type Option func(*Stub)

func WithPrivateKey(pk string) Option {
	return func(obj *Stub) {
		obj.privateK = pk
	}
}

func NewDispenserStub(client *ethclient.Client, options ...Option) (*Stub, error) {
	stub := &Stub{}
	for _, option := range options {
		option(stub)
	}

	dispenserAddr, err := conf.GetContractAddressByName(conf.DispenserContract)
	if err != nil {
		return nil, fmt.Errorf("cannot found dispenser contract address")
	}
	dispenserClient, err := NewDispenser(common.HexToAddress(dispenserAddr), client)
	if err != nil {
		return nil, fmt.Errorf("create dispenser contract client, error: %+v", err)
	}

	stub.dispenser = dispenserClient
	stub.client = client
	return stub, nil
}

// Dispense takes amount of a free datatoken from the dispenser into the sender's wallet.
func (s *Stub) Dispense(ctx context.Context, datatoken string, amount *big.Int) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, dispenser client create transaction, error: %+v", keys.Address, err)
	}
	transaction, err := s.dispenser.Dispense(txOptions, common.HexToAddress(datatoken), amount, keys.Address)
	if err != nil {
		return "", fmt.Errorf("address: %s, dispense %s, error: %+v", keys.Address, datatoken, err)
	}
	return transaction.Hash().String(), nil
}
