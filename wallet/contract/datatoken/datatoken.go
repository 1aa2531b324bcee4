package datatoken

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const providerFeeTuple = `{"components":[{"name":"providerFeeAddress","type":"address"},{"name":"providerFeeToken","type":"address"},{"name":"providerFeeAmount","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"},{"name":"validUntil","type":"uint256"},{"name":"providerData","type":"bytes"}],"name":"_providerFee","type":"tuple"}`

var DatatokenMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"name":"consumer","type":"address"},{"name":"serviceIndex","type":"uint256"},` + providerFeeTuple + `,{"components":[{"name":"consumeMarketFeeAddress","type":"address"},{"name":"consumeMarketFeeToken","type":"address"},{"name":"consumeMarketFeeAmount","type":"uint256"}],"name":"_consumeMarketFee","type":"tuple"}],"name":"startOrder","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"orderTxId","type":"bytes32"},` + providerFeeTuple + `],"name":"reuseOrder","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`,
}

// ProviderFee mirrors the provider fee tuple signed by the compute provider.
type ProviderFee struct {
	ProviderFeeAddress common.Address
	ProviderFeeToken   common.Address
	ProviderFeeAmount  *big.Int
	V                  uint8
	R                  [32]byte
	S                  [32]byte
	ValidUntil         *big.Int
	ProviderData       []byte
}

type ConsumeMarketFee struct {
	ConsumeMarketFeeAddress common.Address
	ConsumeMarketFeeToken   common.Address
	ConsumeMarketFeeAmount  *big.Int
}

type Datatoken struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewDatatoken(address common.Address, backend bind.ContractBackend) (*Datatoken, error) {
	parsed, err := DatatokenMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, *parsed, backend, backend, backend)
	return &Datatoken{address: address, contract: contract}, nil
}

func (d *Datatoken) BalanceOf(opts *bind.CallOpts, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := d.contract.Call(opts, &out, "balanceOf", account); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (d *Datatoken) StartOrder(opts *bind.TransactOpts, consumer common.Address, serviceIndex *big.Int,
	providerFee ProviderFee, consumeMarketFee ConsumeMarketFee) (*types.Transaction, error) {
	return d.contract.Transact(opts, "startOrder", consumer, serviceIndex, providerFee, consumeMarketFee)
}

func (d *Datatoken) ReuseOrder(opts *bind.TransactOpts, orderTxId [32]byte, providerFee ProviderFee) (*types.Transaction, error) {
	return d.contract.Transact(opts, "reuseOrder", orderTxId, providerFee)
}
