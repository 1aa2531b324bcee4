package computing

import (
	"context"
	"fmt"
	"math/big"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

type OrderAction int

const (
	OrderReuse OrderAction = iota + 1
	OrderStartWithHeldToken
	OrderDispenseAndStart
	OrderBuyAndStart
)

func (a OrderAction) String() string {
	switch a {
	case OrderReuse:
		return "reuse"
	case OrderStartWithHeldToken:
		return "startWithHeldToken"
	case OrderDispenseAndStart:
		return "dispenseAndStart"
	case OrderBuyAndStart:
		return "buyAndStart"
	}
	return "unknown"
}

type orderKey struct {
	hasValidOrder bool
	hasDatatoken  bool
	isFree        bool
}

var orderDecisions = map[orderKey]OrderAction{
	{hasValidOrder: true, hasDatatoken: true, isFree: true}:    OrderReuse,
	{hasValidOrder: true, hasDatatoken: true, isFree: false}:   OrderReuse,
	{hasValidOrder: true, hasDatatoken: false, isFree: true}:   OrderReuse,
	{hasValidOrder: true, hasDatatoken: false, isFree: false}:  OrderReuse,
	{hasValidOrder: false, hasDatatoken: true, isFree: true}:   OrderStartWithHeldToken,
	{hasValidOrder: false, hasDatatoken: true, isFree: false}:  OrderStartWithHeldToken,
	{hasValidOrder: false, hasDatatoken: false, isFree: true}:  OrderDispenseAndStart,
	{hasValidOrder: false, hasDatatoken: false, isFree: false}: OrderBuyAndStart,
}

func DecideOrder(hasValidOrder, hasDatatoken, isFree bool) OrderAction {
	return orderDecisions[orderKey{hasValidOrder: hasValidOrder, hasDatatoken: hasDatatoken, isFree: isFree}]
}

// OrderInput is one asset to order for a compute job.
type OrderInput struct {
	Selection         *models.AssetSelection
	Price             *models.OrderPriceAndFees
	Initialize        *models.ProviderComputeInitialize
	Account           string
	HasDatatoken      bool
	VerifierSessionID string
	ConsumerAddress   string
	Step              string
}

func (in *OrderInput) validOrder() string {
	if in.Initialize != nil && in.Initialize.ValidOrder != "" {
		return in.Initialize.ValidOrder
	}
	if in.Selection.AccessDetails != nil {
		return in.Selection.AccessDetails.ValidOrderTx
	}
	return ""
}

func (in *OrderInput) providerFee() *models.ProviderFee {
	if in.Initialize != nil && in.Initialize.ProviderFee != nil {
		return in.Initialize.ProviderFee
	}
	if in.Price != nil {
		return in.Price.ProviderFee
	}
	return nil
}

func (in *OrderInput) datatoken() string {
	if in.Selection.Service != nil && in.Selection.Service.Datatoken != "" {
		return in.Selection.Service.Datatoken
	}
	if in.Selection.AccessDetails != nil {
		return in.Selection.AccessDetails.Datatoken.Address
	}
	return ""
}

// OrderExecutor turns asset selections into order transactions.
type OrderExecutor struct {
	chain            OrderChain
	consumeMarketFee models.ConsumeMarketFee
}

func NewOrderExecutor(chain OrderChain, consumeMarketFee models.ConsumeMarketFee) *OrderExecutor {
	return &OrderExecutor{chain: chain, consumeMarketFee: consumeMarketFee}
}

var oneDatatoken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// HasDatatoken reports whether account holds at least one datatoken of the selection.
func (o *OrderExecutor) HasDatatoken(ctx context.Context, sel *models.AssetSelection, account string) (bool, error) {
	in := OrderInput{Selection: sel}
	dt := in.datatoken()
	if dt == "" {
		return false, nil
	}
	balance, err := o.chain.DatatokenBalance(ctx, dt, account)
	if err != nil {
		return false, err
	}
	return balance.Cmp(oneDatatoken) >= 0, nil
}

// HandleComputeOrder returns the transfer tx id usable for the job: a reused valid
// order, or a new order.
func (o *OrderExecutor) HandleComputeOrder(ctx context.Context, in OrderInput) (string, error) {
	datatoken := in.datatoken()
	if datatoken == "" {
		return "", fmt.Errorf("%w: asset %s has no datatoken", ErrMissingOrder, in.Selection.AssetID())
	}
	validOrder := in.validOrder()
	isFree := in.Selection.AccessDetails == nil || in.Selection.AccessDetails.Type == constants.AccessTypeFree
	action := DecideOrder(validOrder != "", in.HasDatatoken, isFree)
	if in.VerifierSessionID != "" {
		logs.GetLogger().Infof("order asset: %s, service: %s, action: %s, verifier session: %s",
			in.Selection.AssetID(), in.Selection.ServiceID(), action, in.VerifierSessionID)
	} else {
		logs.GetLogger().Infof("order asset: %s, service: %s, action: %s", in.Selection.AssetID(), in.Selection.ServiceID(), action)
	}

	fee := in.providerFee()
	switch action {
	case OrderReuse:
		if !fee.HasAmount() {
			return validOrder, nil
		}
		return o.chain.ReuseOrder(ctx, datatoken, validOrder, fee)
	case OrderDispenseAndStart:
		if _, err := o.chain.Dispense(ctx, datatoken, oneDatatoken); err != nil {
			return "", err
		}
	case OrderBuyAndStart:
		ad := in.Selection.AccessDetails
		if !ad.IsPurchasable {
			return "", fmt.Errorf("asset %s is not purchasable", in.Selection.AssetID())
		}
		if _, err := o.chain.BuyDatatoken(ctx, ad.AddressOrID, ad.BaseToken.Address, oneDatatoken, o.consumeMarketFee.Address); err != nil {
			return "", err
		}
	}

	if fee == nil {
		return "", fmt.Errorf("%w: no provider fee for asset %s", ErrMissingOrder, in.Selection.AssetID())
	}
	return o.chain.StartOrder(ctx, models.StartOrderRequest{
		Datatoken:        datatoken,
		Consumer:         in.ConsumerAddress,
		ServiceIndex:     in.Selection.ServiceIndex,
		ProviderFee:      fee,
		ConsumeMarketFee: o.consumeMarketFee,
	})
}

// OrderAll orders every input in turn and stops at the first failure. before runs
// ahead of each order. The result is either complete or nil.
func (o *OrderExecutor) OrderAll(ctx context.Context, inputs []OrderInput, before func(context.Context, *OrderInput) error,
	onStep func(string)) ([]string, error) {
	txs := make([]string, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		if before != nil {
			if err := before(ctx, in); err != nil {
				return nil, err
			}
		}
		if in.Step != "" {
			step(onStep, in.Step)
		}
		tx, err := o.HandleComputeOrder(ctx, *in)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", in.Selection.AssetID(), err)
		}
		if tx == "" {
			return nil, fmt.Errorf("%w: asset %s", ErrMissingOrder, in.Selection.AssetID())
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
