package computing

import (
	"context"
	"errors"
	"fmt"

	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// ResolveJob loads every asset of req and turns it into a JobInput.
func ResolveJob(ctx context.Context, resolver AssetResolver, account string, req models.JobRequest) (JobInput, error) {
	if len(req.Datasets) == 0 {
		return JobInput{}, newError(ConfigurationError, constants.StepInitializing, ErrNoDatasets)
	}
	if req.Algorithm.Did == "" {
		return JobInput{}, newError(ConfigurationError, constants.StepInitializing, ErrNoAlgorithm)
	}

	algo, err := resolveSelection(ctx, resolver, account, req.Algorithm)
	if err != nil {
		return JobInput{}, classifyResolve(err, ErrAlgorithmService)
	}
	datasets := make([]*models.DatasetSelection, 0, len(req.Datasets))
	for _, ref := range req.Datasets {
		ds, err := resolveSelection(ctx, resolver, account, ref)
		if err != nil {
			return JobInput{}, classifyResolve(err, ErrNoDatasets)
		}
		datasets = append(datasets, ds)
	}
	return JobInput{
		Datasets:         datasets,
		Algorithm:        algo,
		Form:             FormValues{ComputeEnvID: req.ComputeEnv},
		Resources:        req.Resources,
		CustomParameters: req.CustomParameters,
	}, nil
}

type serviceNotFound struct {
	did, serviceID string
}

func (e serviceNotFound) Error() string {
	return fmt.Sprintf("service %q not found in asset %s", e.serviceID, e.did)
}

// classifyResolve treats an unknown asset or service as a missing selection.
func classifyResolve(err error, missing error) *SubmitError {
	var nf serviceNotFound
	if errors.As(err, &nf) || errors.Is(err, models.ErrAssetNotFound) {
		return newError(ConfigurationError, constants.StepInitializing, fmt.Errorf("%w: %v", missing, err))
	}
	return Classify(err, RemoteCallFailure, constants.StepInitializing)
}

func resolveSelection(ctx context.Context, resolver AssetResolver, account string, ref models.AssetRef) (*models.AssetSelection, error) {
	asset, err := resolver.GetAsset(ctx, ref.Did)
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", ref.Did, err)
	}
	serviceID := ref.ServiceID
	if serviceID == "" && len(asset.Services) > 0 {
		serviceID = asset.Services[0].ID
	}
	service, index := asset.ServiceByID(serviceID)
	if service == nil {
		return nil, serviceNotFound{did: ref.Did, serviceID: serviceID}
	}
	details, err := resolver.GetAccessDetails(ctx, asset, service.ID, account)
	if err != nil {
		return nil, fmt.Errorf("load access details of %s: %w", ref.Did, err)
	}
	return &models.AssetSelection{
		Asset:         asset,
		Service:       service,
		ServiceIndex:  index,
		AccessDetails: details,
		Userdata:      ref.Userdata,
	}, nil
}
