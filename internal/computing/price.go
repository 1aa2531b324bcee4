package computing

import (
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// PriceLine is one "you will pay" row.
type PriceLine struct {
	Value  float64 `json:"value"`
	Symbol string  `json:"symbol"`
}

type PriceCalculator struct {
	// OrderFeePercent is the consume market fee, in percent of the order price.
	OrderFeePercent float64
}

func (p *PriceCalculator) marketFee(price float64) float64 {
	return price * p.OrderFeePercent / 100
}

// DatasetPrice is zero when a still-valid order exists, else the access price.
func (p *PriceCalculator) DatasetPrice(ds *models.DatasetSelection, fee *models.ProviderFee, providerFeeAmount float64) *models.OrderPriceAndFees {
	var price, publisherFee float64
	if ds.AccessDetails != nil {
		publisherFee = ds.AccessDetails.PublisherMarketOrderFee
		if ds.AccessDetails.ValidOrderTx == "" {
			price = ds.AccessDetails.Price
		}
	}
	return &models.OrderPriceAndFees{
		Price:                   price,
		PublisherMarketOrderFee: publisherFee,
		ConsumeMarketOrderFee:   p.marketFee(price),
		ProviderFee:             fee,
		ProviderFeeAmount:       providerFeeAmount,
	}
}

// AlgorithmPrice is zero when the datatoken is already held or a valid order exists.
func (p *PriceCalculator) AlgorithmPrice(algo *models.AlgorithmSelection, hasDatatoken bool, fee *models.ProviderFee,
	providerFeeAmount float64) *models.OrderPriceAndFees {
	var price, publisherFee float64
	if algo.AccessDetails != nil {
		publisherFee = algo.AccessDetails.PublisherMarketOrderFee
		if !hasDatatoken && algo.AccessDetails.ValidOrderTx == "" {
			price = algo.AccessDetails.Price
		}
	}
	return &models.OrderPriceAndFees{
		Price:                   price,
		PublisherMarketOrderFee: publisherFee,
		ConsumeMarketOrderFee:   p.marketFee(price),
		ProviderFee:             fee,
		ProviderFeeAmount:       providerFeeAmount,
	}
}

// PriceInput is one priced asset of a submission.
type PriceInput struct {
	Symbol string
	Price  *models.OrderPriceAndFees
}

// Totals builds the per-symbol rows: one per dataset and the algorithm (price plus
// market fee), and one for compute (resource price plus every provider fee).
func Totals(datasets []PriceInput, algorithm PriceInput, c2dPrice float64, c2dSymbol string) []PriceLine {
	lines := make([]PriceLine, 0, len(datasets)+2)
	providerFees := 0.0
	add := func(in PriceInput) {
		if in.Price == nil {
			return
		}
		lines = append(lines, PriceLine{Value: in.Price.Price + in.Price.ConsumeMarketOrderFee, Symbol: in.Symbol})
		providerFees += in.Price.ProviderFeeAmount
	}
	for _, ds := range datasets {
		add(ds)
	}
	add(algorithm)
	lines = append(lines, PriceLine{Value: c2dPrice + providerFees, Symbol: c2dSymbol})
	return MergeBySymbol(lines)
}

// MergeBySymbol sums rows with the same symbol, keeping first-seen order.
func MergeBySymbol(lines []PriceLine) []PriceLine {
	index := make(map[string]int)
	var merged []PriceLine
	for _, l := range lines {
		if i, ok := index[l.Symbol]; ok {
			merged[i].Value += l.Value
			continue
		}
		index[l.Symbol] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
