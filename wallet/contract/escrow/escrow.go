package escrow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var EscrowMetaData = &bind.MetaData{
	ABI: `[
{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"name":"deposit","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"token","type":"address"},{"name":"payee","type":"address"},{"name":"maxLockedAmount","type":"uint256"},{"name":"maxLockSeconds","type":"uint256"},{"name":"maxLockCounts","type":"uint256"}],"name":"authorize","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"payer","type":"address"},{"name":"token","type":"address"}],"name":"getUserFunds","outputs":[{"components":[{"name":"available","type":"uint256"},{"name":"locked","type":"uint256"}],"name":"","type":"tuple"}],"stateMutability":"view","type":"function"}
]`,
}

// UserFunds is the escrow balance of a payer for one token.
type UserFunds struct {
	Available *big.Int
	Locked    *big.Int
}

type Escrow struct {
	address  common.Address
	contract *bind.BoundContract
}

func NewEscrow(address common.Address, backend bind.ContractBackend) (*Escrow, error) {
	parsed, err := EscrowMetaData.GetAbi()
	if err != nil {
		return nil, err
	}
	contract := bind.NewBoundContract(address, *parsed, backend, backend, backend)
	return &Escrow{address: address, contract: contract}, nil
}

func (e *Escrow) GetUserFunds(opts *bind.CallOpts, payer common.Address, token common.Address) (UserFunds, error) {
	var out []interface{}
	if err := e.contract.Call(opts, &out, "getUserFunds", payer, token); err != nil {
		return UserFunds{}, err
	}
	return *abi.ConvertType(out[0], new(UserFunds)).(*UserFunds), nil
}

func (e *Escrow) Deposit(opts *bind.TransactOpts, token common.Address, amount *big.Int) (*types.Transaction, error) {
	return e.contract.Transact(opts, "deposit", token, amount)
}

func (e *Escrow) Authorize(opts *bind.TransactOpts, token common.Address, payee common.Address, maxLockedAmount *big.Int,
	maxLockSeconds *big.Int, maxLockCounts *big.Int) (*types.Transaction, error) {
	return e.contract.Transact(opts, "authorize", token, payee, maxLockedAmount, maxLockSeconds, maxLockCounts)
}
