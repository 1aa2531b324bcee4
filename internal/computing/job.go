package computing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
)

type StartInput struct {
	Datasets         []*models.DatasetSelection
	DatasetTxs       []string
	Algorithm        *models.AlgorithmSelection
	AlgorithmTx      string
	Environment      *models.ComputeEnvironment
	Resources        *models.ResourceRequest
	ChainID          int64
	PaymentToken     string
	CustomParameters map[string]interface{}
}

// JobStarter assembles the compute start request and calls the paid or free endpoint.
type JobStarter struct {
	provider ProviderAPI
	signer   MessageSigner
}

func NewJobStarter(p ProviderAPI, signer MessageSigner) *JobStarter {
	return &JobStarter{provider: p, signer: signer}
}

func (j *JobStarter) Start(ctx context.Context, in StartInput) (*models.ComputeJob, error) {
	if len(in.Datasets) == 0 {
		return nil, ErrNoDatasets
	}
	consumer := j.signer.Address()
	nonce, err := j.provider.GetNonce(ctx, consumer)
	if err != nil {
		return nil, err
	}
	nonce++
	signature, err := j.signer.SignRequest(ctx, provider.SignatureMessage(consumer, in.Datasets[0].AssetID(), nonce))
	if err != nil {
		return nil, err
	}

	req := provider.ComputeStartRequest{
		ConsumerAddress: consumer,
		Signature:       signature,
		Nonce:           strconv.FormatInt(nonce, 10),
		Environment:     in.Environment.ID,
		Resources:       ResourceRequests(in.Environment, in.Resources),
		MaxJobDuration:  in.Resources.JobDuration,
		PolicyServer:    policyBindings(in.Algorithm, in.Datasets),
	}

	var jobs []models.ComputeJob
	if in.Resources.IsPaid() {
		if len(in.DatasetTxs) != len(in.Datasets) || in.AlgorithmTx == "" {
			return nil, ErrMissingOrder
		}
		req.Datasets = datasetAssets(in.Datasets, in.DatasetTxs)
		req.Algorithm = algorithmAsset(in.Algorithm, in.AlgorithmTx, in.CustomParameters)
		req.Payment = &provider.ComputePayment{ChainID: in.ChainID, Token: paymentToken(in.Resources, in.PaymentToken)}
		jobs, err = j.provider.ComputeStart(ctx, req)
	} else {
		req.Datasets = bareAssets(in.Datasets)
		req.Algorithm = provider.ComputeAlgorithm{
			ComputeAsset: provider.ComputeAsset{DocumentID: in.Algorithm.AssetID(), ServiceID: in.Algorithm.ServiceID()},
		}
		jobs, err = j.provider.FreeComputeStart(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 || jobs[0].JobID == "" {
		return nil, ErrMissingJobID
	}
	logs.GetLogger().Infof("compute job started, job id: %s, environment: %s", jobs[0].JobID, in.Environment.ID)
	return &jobs[0], nil
}

func bareAssets(datasets []*models.DatasetSelection) []provider.ComputeAsset {
	assets := make([]provider.ComputeAsset, 0, len(datasets))
	for _, ds := range datasets {
		assets = append(assets, provider.ComputeAsset{DocumentID: ds.AssetID(), ServiceID: ds.ServiceID()})
	}
	return assets
}

// ResourceRequests takes the environment's in-use amount in free mode and the chosen amount in paid mode.
func ResourceRequests(env *models.ComputeEnvironment, res *models.ResourceRequest) []models.ComputeResourceRequest {
	requests := make([]models.ComputeResourceRequest, 0, len(resourceKinds))
	for _, kind := range resourceKinds {
		var amount float64
		if res.IsPaid() {
			amount = res.Amount(kind)
		} else if r := env.FreeResource(kind); r != nil {
			amount = r.InUse
		}
		requests = append(requests, models.ComputeResourceRequest{ID: kind, Amount: amount})
	}
	return requests
}

func describeJob(job *models.ComputeJob) string {
	if job == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", job.JobID, job.StatusText)
}
