package fixedrate

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

var FixedRateMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"datatokenAmount","type":"uint256"},{"name":"consumeMarketSwapFeeAmount","type":"uint256"}],"name":"calcBaseInGivenOutDT","outputs":[{"name":"baseTokenAmount","type":"uint256"},{"name":"oceanFeeAmount","type":"uint256"},{"name":"publishMarketFeeAmount","type":"uint256"},{"name":"consumeMarketFeeAmount","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"exchangeId","type":"bytes32"},{"name":"datatokenAmount","type":"uint256"},{"name":"maxBaseTokenAmount","type":"uint256"},{"name":"consumeMarketAddress","type":"address"},{"name":"consumeMarketSwapFeeAmount","type":"uint256"}],"name":"buyDT","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`,
}

type FixedRateExchange struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewFixedRateExchange(address common.Address, backend bind.ContractBackend) (*FixedRateExchange, error) {
	parsed, err := FixedRateMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	return &FixedRateExchange{address: address, contract: bind.NewBoundContract(address, *parsed, backend, backend, backend)}, nil
}

func (f *FixedRateExchange) CalcBaseInGivenOutDT(opts *bind.CallOpts, exchangeId [32]byte, datatokenAmount *big.Int,
	consumeMarketSwapFeeAmount *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := f.contract.Call(opts, &out, "calcBaseInGivenOutDT", exchangeId, datatokenAmount, consumeMarketSwapFeeAmount); err != nil {
		return nil, err
	}
	base, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected calcBaseInGivenOutDT output %T", out[0])
	}
	return base, nil
}

func (f *FixedRateExchange) BuyDT(opts *bind.TransactOpts, exchangeId [32]byte, datatokenAmount *big.Int, maxBaseTokenAmount *big.Int,
	consumeMarketAddress common.Address, consumeMarketSwapFeeAmount *big.Int) (*types.Transaction, error) {
	return f.contract.Transact(opts, "buyDT", exchangeId, datatokenAmount, maxBaseTokenAmount, consumeMarketAddress, consumeMarketSwapFeeAmount)
}

type Stub struct {
	client   *ethclient.Client
	exchange *FixedRateExchange
	privateK string
}

type Option func(*Stub)

func WithPrivateKey(pk string) Option {
	return func(obj *Stub) {
		obj.privateK = pk
	}
}

func NewFixedRateStub(client *ethclient.Client, options ...Option) (*Stub, error) {
	stub := &Stub{}
	for _, option := range options {
		option(stub)
	}

	exchangeAddr, err := conf.GetContractAddressByName(conf.FixedRateContract)
	if err != nil {
		return nil, fmt.Errorf("cannot found fixed rate exchange contract address")
	}
	exchange, err := NewFixedRateExchange(common.HexToAddress(exchangeAddr), client)
	if err != nil {
		return nil, fmt.Errorf("create fixed rate exchange client, error: %+v", err)
	}

	stub.exchange = exchange
	stub.client = client
	return stub, nil
}

func (s *Stub) Address() string {
	return s.exchange.address.Hex()
}

// BaseInGivenOut quotes the base token amount needed to buy datatokenAmount.
func (s *Stub) BaseInGivenOut(ctx context.Context, exchangeId string, datatokenAmount *big.Int) (*big.Int, error) {
	base, err := s.exchange.CalcBaseInGivenOutDT(&bind.CallOpts{Context: ctx}, common.HexToHash(exchangeId), datatokenAmount, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("exchange: %s, calcBaseInGivenOutDT, error: %+v", exchangeId, err)
	}
	return base, nil
}

func (s *Stub) BuyDT(ctx context.Context, exchangeId string, datatokenAmount, maxBaseTokenAmount *big.Int, consumeMarket string) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, exchange client create transaction, error: %+v", keys.Address, err)
	}
	transaction, err := s.exchange.BuyDT(txOptions, common.HexToHash(exchangeId), datatokenAmount, maxBaseTokenAmount,
		common.HexToAddress(consumeMarket), big.NewInt(0))
	if err != nil {
		return "", fmt.Errorf("address: %s, buyDT on exchange %s, error: %+v", keys.Address, exchangeId, err)
	}
	return transaction.Hash().String(), nil
}
