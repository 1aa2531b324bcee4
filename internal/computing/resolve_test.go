package computing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver struct {
	assets     map[string]*models.Asset
	detailsErr error
}

func (r *mapResolver) GetAsset(ctx context.Context, did string) (*models.Asset, error) {
	asset, ok := r.assets[did]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAssetNotFound, did)
	}
	return asset, nil
}

func (r *mapResolver) GetAccessDetails(ctx context.Context, asset *models.Asset, serviceID, account string) (*models.AccessDetails, error) {
	if r.detailsErr != nil {
		return nil, r.detailsErr
	}
	return &models.AccessDetails{Type: "free"}, nil
}

func testResolver() *mapResolver {
	return &mapResolver{assets: map[string]*models.Asset{
		"did:algo": testAsset("did:algo", "0xalgo", "free", 0).Asset,
		"did:ds":   testAsset("did:ds", "0xdt", "free", 0).Asset,
	}}
}

func TestResolveJob(t *testing.T) {
	in, err := ResolveJob(context.Background(), testResolver(), testAccount, models.JobRequest{
		Datasets:   []models.AssetRef{{Did: "did:ds"}},
		Algorithm:  models.AssetRef{Did: "did:algo", ServiceID: "svc-did:algo"},
		ComputeEnv: "env-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "svc-did:ds", in.Datasets[0].ServiceID())
	assert.Equal(t, "did:algo", in.Algorithm.AssetID())
	assert.Equal(t, "env-1", in.Form.ComputeEnvID)
}

func TestResolveJobMissingSelectionIsConfigurationError(t *testing.T) {
	cases := map[string]struct {
		req     models.JobRequest
		missing error
	}{
		"unknown dataset": {
			req:     models.JobRequest{Datasets: []models.AssetRef{{Did: "did:nope"}}, Algorithm: models.AssetRef{Did: "did:algo"}},
			missing: ErrNoDatasets,
		},
		"unknown algorithm": {
			req:     models.JobRequest{Datasets: []models.AssetRef{{Did: "did:ds"}}, Algorithm: models.AssetRef{Did: "did:nope"}},
			missing: ErrAlgorithmService,
		},
		"unknown algorithm service": {
			req:     models.JobRequest{Datasets: []models.AssetRef{{Did: "did:ds"}}, Algorithm: models.AssetRef{Did: "did:algo", ServiceID: "other"}},
			missing: ErrAlgorithmService,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ResolveJob(context.Background(), testResolver(), testAccount, tc.req)
			var se *SubmitError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, ConfigurationError, se.Kind)
			assert.False(t, se.Retryable())
			assert.ErrorIs(t, err, tc.missing)
		})
	}
}

func TestResolveJobRemoteFailureIsRetryable(t *testing.T) {
	r := testResolver()
	r.detailsErr = errors.New("connection refused")

	_, err := ResolveJob(context.Background(), r, testAccount, models.JobRequest{
		Datasets:  []models.AssetRef{{Did: "did:ds"}},
		Algorithm: models.AssetRef{Did: "did:algo"},
	})
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, RemoteCallFailure, se.Kind)
	assert.True(t, se.Retryable())
}
