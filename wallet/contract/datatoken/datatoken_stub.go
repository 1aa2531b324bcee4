package datatoken

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/wallet/contract"
)

type Stub struct {
	client    *ethclient.Client
	datatoken *Datatoken
	privateK  string
	publicK   string
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

func NewDatatokenStub(client *ethclient.Client, datatokenAddr string, options ...Option) (*Stub, error) {
	stub := &Stub{}
	for _, option := range options {
		option(stub)
	}

	if !common.IsHexAddress(datatokenAddr) {
		return nil, fmt.Errorf("invalid datatoken address: %s", datatokenAddr)
	}
	dt, err := NewDatatoken(common.HexToAddress(datatokenAddr), client)
	if err != nil {
		return nil, fmt.Errorf("create datatoken contract client, error: %+v", err)
	}

	stub.datatoken = dt
	stub.client = client
	return stub, nil
}

func (s *Stub) BalanceOf(ctx context.Context) (*big.Int, error) {
	if len(strings.TrimSpace(s.publicK)) == 0 {
		return nil, fmt.Errorf("wallet address must be not empty")
	}
	balance, err := s.datatoken.BalanceOf(&bind.CallOpts{Context: ctx}, common.HexToAddress(s.publicK))
	if err != nil {
		return nil, fmt.Errorf("address: %s, read datatoken balance, error: %+v", s.publicK, err)
	}
	return balance, nil
}

func (s *Stub) StartOrder(ctx context.Context, req models.StartOrderRequest) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	providerFee, err := ToProviderFee(req.ProviderFee)
	if err != nil {
		return "", err
	}
	marketFee, err := toConsumeMarketFee(req.ConsumeMarketFee)
	if err != nil {
		return "", err
	}

	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, datatoken client create transaction, error: %+v", keys.Address, err)
	}
	transaction, err := s.datatoken.StartOrder(txOptions, common.HexToAddress(req.Consumer), big.NewInt(int64(req.ServiceIndex)),
		providerFee, marketFee)
	if err != nil {
		return "", fmt.Errorf("address: %s, datatoken startOrder, error: %+v", keys.Address, err)
	}
	return transaction.Hash().String(), nil
}

func (s *Stub) ReuseOrder(ctx context.Context, orderTx string, fee *models.ProviderFee) (string, error) {
	keys, err := contract.ParseKeys(s.privateK)
	if err != nil {
		return "", err
	}
	providerFee, err := ToProviderFee(fee)
	if err != nil {
		return "", err
	}

	txOptions, err := contract.CreateTransactOpts(ctx, s.client, keys)
	if err != nil {
		return "", fmt.Errorf("address: %s, datatoken client create transaction, error: %+v", keys.Address, err)
	}
	transaction, err := s.datatoken.ReuseOrder(txOptions, common.HexToHash(orderTx), providerFee)
	if err != nil {
		return "", fmt.Errorf("address: %s, datatoken reuseOrder, error: %+v", keys.Address, err)
	}
	return transaction.Hash().String(), nil
}

// ToProviderFee converts the provider quote into the on-chain tuple.
func ToProviderFee(fee *models.ProviderFee) (ProviderFee, error) {
	if fee == nil {
		return ProviderFee{}, fmt.Errorf("provider fee is missing")
	}
	amount, ok := new(big.Int).SetString(defaultZero(fee.ProviderFeeAmount), 10)
	if !ok {
		return ProviderFee{}, fmt.Errorf("invalid provider fee amount: %s", fee.ProviderFeeAmount)
	}
	var data []byte
	if fee.ProviderData != "" {
		if strings.HasPrefix(fee.ProviderData, "0x") {
			decoded, err := hexutil.Decode(fee.ProviderData)
			if err != nil {
				return ProviderFee{}, fmt.Errorf("invalid provider data: %w", err)
			}
			data = decoded
		} else {
			data = []byte(fee.ProviderData)
		}
	}
	return ProviderFee{
		ProviderFeeAddress: common.HexToAddress(fee.ProviderFeeAddress),
		ProviderFeeToken:   common.HexToAddress(fee.ProviderFeeToken),
		ProviderFeeAmount:  amount,
		V:                  fee.V,
		R:                  common.HexToHash(fee.R),
		S:                  common.HexToHash(fee.S),
		ValidUntil:         big.NewInt(fee.ValidUntil),
		ProviderData:       data,
	}, nil
}

func toConsumeMarketFee(fee models.ConsumeMarketFee) (ConsumeMarketFee, error) {
	amount, ok := new(big.Int).SetString(defaultZero(fee.Amount), 10)
	if !ok {
		return ConsumeMarketFee{}, fmt.Errorf("invalid consume market fee amount: %s", fee.Amount)
	}
	return ConsumeMarketFee{
		ConsumeMarketFeeAddress: common.HexToAddress(fee.Address),
		ConsumeMarketFeeToken:   common.HexToAddress(fee.Token),
		ConsumeMarketFeeAmount:  amount,
	}, nil
}

func defaultZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
