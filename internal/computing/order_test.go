package computing

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideOrder(t *testing.T) {
	cases := []struct {
		hasValidOrder, hasDatatoken, isFree bool
		want                                OrderAction
	}{
		{true, true, true, OrderReuse},
		{true, true, false, OrderReuse},
		{true, false, true, OrderReuse},
		{true, false, false, OrderReuse},
		{false, true, true, OrderStartWithHeldToken},
		{false, true, false, OrderStartWithHeldToken},
		{false, false, true, OrderDispenseAndStart},
		{false, false, false, OrderBuyAndStart},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DecideOrder(c.hasValidOrder, c.hasDatatoken, c.isFree),
			"valid=%v held=%v free=%v", c.hasValidOrder, c.hasDatatoken, c.isFree)
	}
}

func orderInput(sel *models.AssetSelection, fee *models.ProviderFee) OrderInput {
	return OrderInput{
		Selection:       sel,
		Initialize:      &models.ProviderComputeInitialize{ProviderFee: fee},
		Account:         testAccount,
		ConsumerAddress: testPayee,
	}
}

func TestHandleComputeOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("reuse without fee returns the valid order", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "fixed", 1), testFee("0"))
		in.Initialize.ValidOrder = "0xvalid"
		tx, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "0xvalid", tx)
		assert.Empty(t, chain.Calls())
	})

	t.Run("reuse with fee calls reuseOrder", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "fixed", 1), testFee("100"))
		in.Initialize.ValidOrder = "0xvalid"
		tx, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "0xreuse-0xdt", tx)
		assert.Equal(t, []string{"reuseOrder 0xdt"}, chain.Calls())
	})

	t.Run("free asset is dispensed first", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "free", 0), testFee("0"))
		tx, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "0xorder-0xdt", tx)
		assert.Equal(t, []string{"dispense 0xdt", "startOrder 0xdt"}, chain.Calls())
	})

	t.Run("fixed asset is bought first", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "fixed", 1), testFee("0"))
		_, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, []string{"buy exchange-did:a", "startOrder 0xdt"}, chain.Calls())
	})

	t.Run("held datatoken starts directly", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "fixed", 1), testFee("0"))
		in.HasDatatoken = true
		_, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, []string{"startOrder 0xdt"}, chain.Calls())
	})

	t.Run("not purchasable", func(t *testing.T) {
		chain := newFakeChain()
		sel := testAsset("did:a", "0xdt", "fixed", 1)
		sel.AccessDetails.IsPurchasable = false
		_, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, orderInput(sel, testFee("0")))
		assert.Error(t, err)
		assert.Empty(t, chain.Calls())
	})

	t.Run("missing provider fee", func(t *testing.T) {
		chain := newFakeChain()
		in := orderInput(testAsset("did:a", "0xdt", "fixed", 1), nil)
		in.HasDatatoken = true
		_, err := NewOrderExecutor(chain, models.ConsumeMarketFee{}).HandleComputeOrder(ctx, in)
		assert.ErrorIs(t, err, ErrMissingOrder)
	})
}

func TestHasDatatoken(t *testing.T) {
	chain := newFakeChain()
	chain.balances["0xheld"] = new(big.Int).Set(oneDatatoken)
	chain.balances["0xdust"] = big.NewInt(1)
	exec := NewOrderExecutor(chain, models.ConsumeMarketFee{})

	held, err := exec.HasDatatoken(context.Background(), testAsset("did:a", "0xheld", "fixed", 1), testAccount)
	require.NoError(t, err)
	assert.True(t, held)

	held, err = exec.HasDatatoken(context.Background(), testAsset("did:b", "0xdust", "fixed", 1), testAccount)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestOrderAllIsAllOrNothing(t *testing.T) {
	chain := newFakeChain()
	chain.orderErr["0xdt2"] = errors.New("execution reverted")
	exec := NewOrderExecutor(chain, models.ConsumeMarketFee{})

	inputs := []OrderInput{
		orderInput(testAsset("did:a", "0xdt1", "free", 0), testFee("0")),
		orderInput(testAsset("did:b", "0xdt2", "free", 0), testFee("0")),
		orderInput(testAsset("did:c", "0xdt3", "free", 0), testFee("0")),
	}
	txs, err := exec.OrderAll(context.Background(), inputs, nil, nil)
	assert.Error(t, err)
	assert.Nil(t, txs)
	assert.NotContains(t, chain.Calls(), "startOrder 0xdt3")
}

func TestOrderAllRunsBeforeHook(t *testing.T) {
	chain := newFakeChain()
	exec := NewOrderExecutor(chain, models.ConsumeMarketFee{})
	stop := errors.New("session expired")

	inputs := []OrderInput{
		orderInput(testAsset("did:a", "0xdt1", "free", 0), testFee("0")),
		orderInput(testAsset("did:b", "0xdt2", "free", 0), testFee("0")),
	}
	var seen []string
	txs, err := exec.OrderAll(context.Background(), inputs, func(ctx context.Context, in *OrderInput) error {
		seen = append(seen, in.Selection.AssetID())
		if in.Selection.AssetID() == "did:b" {
			return stop
		}
		return nil
	}, nil)
	assert.ErrorIs(t, err, stop)
	assert.Nil(t, txs)
	assert.Equal(t, []string{"did:a", "did:b"}, seen)
	assert.Equal(t, []string{"dispense 0xdt1", "startOrder 0xdt1"}, chain.Calls())
}
