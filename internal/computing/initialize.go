package computing

import (
	"context"
	"fmt"
	"strings"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
	"github.com/lagrangedao/go-compute-to-data/util"
)

type InitializeInput struct {
	Datasets              []*models.DatasetSelection
	Algorithm             *models.AlgorithmSelection
	Environment           *models.ComputeEnvironment
	Resources             *models.ResourceRequest
	Consumer              string
	ChainID               int64
	PaymentToken          string
	WithEscrow            bool
	AlgorithmHasDatatoken bool
	AlgorithmParams       map[string]interface{}
}

type InitializeOutput struct {
	Result         *models.ProviderInitializationResult
	DatasetPrices  []*models.OrderPriceAndFees
	AlgorithmPrice *models.OrderPriceAndFees
}

// ProviderInitializer quotes provider fees and payment instructions in a single call.
type ProviderInitializer struct {
	provider ProviderAPI
	tokens   TokenLookup
	prices   *PriceCalculator
}

func NewProviderInitializer(p ProviderAPI, tokens TokenLookup, prices *PriceCalculator) *ProviderInitializer {
	return &ProviderInitializer{provider: p, tokens: tokens, prices: prices}
}

// Initialize never retries; a failure fails the whole step.
func (pi *ProviderInitializer) Initialize(ctx context.Context, in InitializeInput) (*InitializeOutput, error) {
	req := provider.InitializeComputeRequest{
		Datasets:        datasetAssets(in.Datasets, nil),
		Algorithm:       algorithmAsset(in.Algorithm, "", in.AlgorithmParams),
		Environment:     in.Environment.ID,
		MaxJobDuration:  in.Resources.JobDuration,
		ConsumerAddress: in.Consumer,
		PolicyServer:    policyBindings(in.Algorithm, in.Datasets),
	}
	if in.WithEscrow && in.Resources.IsPaid() {
		req.Payment = &provider.ComputePayment{
			ChainID:   in.ChainID,
			Token:     paymentToken(in.Resources, in.PaymentToken),
			Resources: ResourceRequests(in.Environment, in.Resources),
		}
	}

	logs.GetLogger().Infof("initialize compute, environment: %s, datasets: %d, mode: %s", in.Environment.ID, len(in.Datasets), in.Resources.Mode)
	result, err := pi.provider.InitializeCompute(ctx, req)
	if err != nil {
		logs.GetLogger().Errorf("initialize compute failed, error: %v", err)
		return nil, err
	}
	if result == nil || result.Algorithm == nil || len(result.Datasets) != len(in.Datasets) {
		return nil, ErrProviderNoResponse
	}

	out := &InitializeOutput{Result: result, DatasetPrices: make([]*models.OrderPriceAndFees, len(in.Datasets))}
	for i, ds := range in.Datasets {
		fee := result.Datasets[i].ProviderFee
		if !priced(ds) || fee == nil {
			continue
		}
		amount, err := pi.feeAmount(ctx, fee)
		if err != nil {
			return nil, err
		}
		out.DatasetPrices[i] = pi.prices.DatasetPrice(ds, fee, amount)
	}
	if fee := result.Algorithm.ProviderFee; priced(in.Algorithm) && fee != nil {
		amount, err := pi.feeAmount(ctx, fee)
		if err != nil {
			return nil, err
		}
		out.AlgorithmPrice = pi.prices.AlgorithmPrice(in.Algorithm, in.AlgorithmHasDatatoken, fee, amount)
	}
	return out, nil
}

func (pi *ProviderInitializer) feeAmount(ctx context.Context, fee *models.ProviderFee) (float64, error) {
	if !fee.HasAmount() {
		return 0, nil
	}
	decimals, err := pi.tokens.Decimals(ctx, fee.ProviderFeeToken)
	if err != nil {
		return 0, fmt.Errorf("read provider fee token decimals: %w", err)
	}
	return util.FromBaseUnits(fee.ProviderFeeAmount, decimals)
}

// priced is false for free assets and for the zero-address access type.
func priced(sel *models.AssetSelection) bool {
	if sel == nil || sel.AccessDetails == nil {
		return false
	}
	ad := sel.AccessDetails
	return ad.Type != constants.AccessTypeFree && !strings.EqualFold(ad.AddressOrID, constants.ZeroAddress)
}

func paymentToken(res *models.ResourceRequest, fallback string) string {
	if res != nil && res.FeeToken != "" {
		return res.FeeToken
	}
	return fallback
}

func datasetAssets(datasets []*models.DatasetSelection, transferTxs []string) []provider.ComputeAsset {
	assets := make([]provider.ComputeAsset, 0, len(datasets))
	for i, ds := range datasets {
		asset := provider.ComputeAsset{
			DocumentID: ds.AssetID(),
			ServiceID:  ds.ServiceID(),
			Userdata:   ds.Userdata,
		}
		if transferTxs != nil {
			asset.TransferTxID = transferTxs[i]
		} else if ds.AccessDetails != nil {
			asset.TransferTxID = ds.AccessDetails.ValidOrderTx
		}
		assets = append(assets, asset)
	}
	return assets
}

func algorithmAsset(algo *models.AlgorithmSelection, transferTx string, params map[string]interface{}) provider.ComputeAlgorithm {
	out := provider.ComputeAlgorithm{
		ComputeAsset: provider.ComputeAsset{
			DocumentID:   algo.AssetID(),
			ServiceID:    algo.ServiceID(),
			TransferTxID: transferTx,
			Userdata:     algo.Userdata,
		},
		AlgoCustomData: params,
	}
	if transferTx == "" && algo.AccessDetails != nil {
		out.TransferTxID = algo.AccessDetails.ValidOrderTx
	}
	if algo.Asset != nil {
		out.Meta = algo.Asset.Metadata.Algorithm
	}
	return out
}

// policyBindings lists the verifier sessions, algorithm first.
func policyBindings(algo *models.AlgorithmSelection, datasets []*models.DatasetSelection) []provider.PolicyServerBinding {
	bindings := make([]provider.PolicyServerBinding, 0, len(datasets)+1)
	for _, sel := range append([]*models.AssetSelection{algo}, datasets...) {
		if sel == nil {
			continue
		}
		bindings = append(bindings, provider.PolicyServerBinding{
			DocumentID: sel.AssetID(),
			ServiceID:  sel.ServiceID(),
			SessionID:  sel.SessionID,
		})
	}
	return bindings
}
