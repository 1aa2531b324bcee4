package computing

import (
	"testing"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFreeModeIsNeverPriced(t *testing.T) {
	s := &ResourceSelector{ChainID: 11155111, PaymentToken: testToken}
	envs := []models.ComputeEnvironment{testEnvironment()}
	values := map[string]*models.EnvResourceValues{
		"env-1": {Free: &models.ResourceValues{CPU: 1, RAM: 1, Disk: 1, JobDuration: 600}},
	}

	env, res := s.Select(envs, values, FormValues{ComputeEnvID: "env-1"})
	require.NotNil(t, env)
	require.NotNil(t, res)
	assert.Equal(t, "free", res.Mode)
	assert.Zero(t, res.Price)
}

func TestSelectPaidPrice(t *testing.T) {
	s := &ResourceSelector{ChainID: 11155111, PaymentToken: testToken}
	envs := []models.ComputeEnvironment{testEnvironment()}
	values := map[string]*models.EnvResourceValues{
		"env-1": {
			Free: &models.ResourceValues{CPU: 1, JobDuration: 60},
			Paid: &models.ResourceValues{CPU: 3, JobDuration: 120},
		},
	}

	_, res := s.Select(envs, values, FormValues{ComputeEnvID: "env-1"})
	require.NotNil(t, res)
	assert.Equal(t, "paid", res.Mode)
	assert.Equal(t, 12.0, res.Price)
	assert.Equal(t, testToken, res.FeeToken)
}

func TestSelectModeFallback(t *testing.T) {
	s := &ResourceSelector{ChainID: 11155111}
	envs := []models.ComputeEnvironment{testEnvironment()}

	cases := []struct {
		name   string
		values *models.EnvResourceValues
		mode   string
	}{
		{"free usage wins over empty paid", &models.EnvResourceValues{Free: &models.ResourceValues{CPU: 1}, Paid: &models.ResourceValues{}}, "free"},
		{"empty paid bucket", &models.EnvResourceValues{Paid: &models.ResourceValues{}}, "paid"},
		{"empty free bucket", &models.EnvResourceValues{Free: &models.ResourceValues{}}, "free"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, res := s.Select(envs, map[string]*models.EnvResourceValues{"env-1": c.values}, FormValues{ComputeEnvID: "env-1"})
			require.NotNil(t, res)
			assert.Equal(t, c.mode, res.Mode)
		})
	}
}

func TestSelectUnresolved(t *testing.T) {
	s := &ResourceSelector{}
	envs := []models.ComputeEnvironment{testEnvironment()}

	env, res := s.Select(envs, nil, FormValues{ComputeEnvID: "missing"})
	assert.Nil(t, env)
	assert.Nil(t, res)

	env, res = s.Select(envs, nil, FormValues{ComputeEnvID: "env-1"})
	assert.NotNil(t, env)
	assert.Nil(t, res)

	env, res = s.Select(envs, map[string]*models.EnvResourceValues{"env-1": {}}, FormValues{ComputeEnvID: "env-1"})
	assert.NotNil(t, env)
	assert.Nil(t, res)
}

func TestResourcePriceRoundsUpMinutes(t *testing.T) {
	fee := &models.ComputeEnvFees{Prices: []models.ComputeResourcePrice{
		{ID: "cpu", Price: 1},
		{ID: "ram", Price: 0.5},
		{ID: "disk", Price: 0.1},
	}}
	price := ResourcePrice(fee, models.ResourceValues{CPU: 2, RAM: 4, Disk: 10, JobDuration: 90})
	assert.InDelta(t, 10.0, price, 1e-9)
	assert.Zero(t, ResourcePrice(nil, models.ResourceValues{CPU: 2, JobDuration: 90}))
}

func TestValidateResources(t *testing.T) {
	env := testEnvironment()

	cases := []struct {
		name string
		req  *models.ResourceRequest
		ok   bool
	}{
		{"free within limit", &models.ResourceRequest{Mode: "free", ResourceValues: models.ResourceValues{JobDuration: 600}}, true},
		{"free over limit", &models.ResourceRequest{Mode: "free", ResourceValues: models.ResourceValues{JobDuration: 601}}, false},
		{"zero duration", &models.ResourceRequest{Mode: "paid", ResourceValues: models.ResourceValues{CPU: 1, RAM: 1, Disk: 1}}, false},
		{"paid within limits", &models.ResourceRequest{Mode: "paid", ResourceValues: models.ResourceValues{CPU: 2, RAM: 2, Disk: 2, JobDuration: 3600}}, true},
		{"paid cpu over max", &models.ResourceRequest{Mode: "paid", ResourceValues: models.ResourceValues{CPU: 9, RAM: 2, Disk: 2, JobDuration: 60}}, false},
		{"paid ram under min", &models.ResourceRequest{Mode: "paid", ResourceValues: models.ResourceValues{CPU: 1, Disk: 2, JobDuration: 60}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := ValidateResources(&env, c.req)
			if c.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNoResources)
			}
		})
	}

	assert.ErrorIs(t, ValidateResources(nil, &models.ResourceRequest{}), ErrNoEnvironment)
	assert.ErrorIs(t, ValidateResources(&env, nil), ErrNoResources)
}
