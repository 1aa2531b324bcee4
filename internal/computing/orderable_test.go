package computing

import (
	"testing"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIsOrderable(t *testing.T) {
	algo := testAsset("did:algo", "0xalgo", "fixed", 1)

	ds := testAsset("did:ds", "0xdt", "fixed", 1)
	assert.True(t, IsOrderable(ds, algo))

	other := testAsset("did:algo2", "0xalgo2", "fixed", 1)
	other.Service.ServiceEndpoint = "https://other.example.com"
	assert.False(t, IsOrderable(ds, other))

	trusted := testAsset("did:ds2", "0xdt2", "fixed", 1)
	trusted.Service.Compute = &models.ServiceComputeOptions{
		PublisherTrustedAlgorithms: []models.TrustedAlgorithm{{Did: "did:someone-else"}},
	}
	assert.False(t, IsOrderable(trusted, algo))
	trusted.Service.Compute.PublisherTrustedAlgorithms = append(trusted.Service.Compute.PublisherTrustedAlgorithms,
		models.TrustedAlgorithm{Did: "did:algo"})
	assert.True(t, IsOrderable(trusted, algo))

	missing := testAsset("did:ds3", "0xdt3", "fixed", 1)
	missing.Service = &models.Service{ID: "unknown", Type: "compute"}
	assert.False(t, IsOrderable(missing, algo))
}
