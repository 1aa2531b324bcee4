package computing

import (
	"strings"

	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

// IsOrderable reports whether the dataset service can run the algorithm. A compute
// algorithm must be served by the same provider endpoint as the dataset.
func IsOrderable(ds *models.DatasetSelection, algo *models.AlgorithmSelection) bool {
	if ds == nil || ds.Asset == nil || ds.Service == nil {
		return false
	}
	if _, idx := ds.Asset.ServiceByID(ds.Service.ID); idx < 0 {
		return false
	}
	if ds.Service.Type != constants.ServiceTypeCompute {
		return true
	}
	if algo == nil || algo.Asset == nil {
		return false
	}
	if algo.Service != nil && algo.Service.Type == constants.ServiceTypeCompute {
		if !sameEndpoint(algo.Service.ServiceEndpoint, ds.Service.ServiceEndpoint) {
			return false
		}
	}
	return algorithmTrusted(ds.Service.Compute, algo)
}

func sameEndpoint(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

// algorithmTrusted checks the publisher trust lists. Empty lists place no restriction.
func algorithmTrusted(opts *models.ServiceComputeOptions, algo *models.AlgorithmSelection) bool {
	if opts == nil || len(opts.PublisherTrustedAlgorithms) == 0 {
		return true
	}
	for _, t := range opts.PublisherTrustedAlgorithms {
		if t.Did == "*" || strings.EqualFold(t.Did, algo.AssetID()) {
			return true
		}
	}
	return false
}
