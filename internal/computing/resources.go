package computing

import (
	"fmt"
	"math"

	"github.com/lagrangedao/go-compute-to-data/constants"
	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

var resourceKinds = []string{constants.ResourceCpu, constants.ResourceRam, constants.ResourceDisk}

// FormValues are the user's choices that are not per-environment resource amounts.
type FormValues struct {
	ComputeEnvID string `json:"computeEnv"`
}

// ResourceSelector resolves the environment and resources the user picked.
type ResourceSelector struct {
	ChainID      int64
	PaymentToken string
}

// Select returns nil for whatever cannot be resolved yet; that is not an error.
func (s *ResourceSelector) Select(envs []models.ComputeEnvironment, valuesByEnv map[string]*models.EnvResourceValues,
	form FormValues) (*models.ComputeEnvironment, *models.ResourceRequest) {
	var env *models.ComputeEnvironment
	for i := range envs {
		if envs[i].ID == form.ComputeEnvID {
			env = &envs[i]
			break
		}
	}
	if env == nil {
		return nil, nil
	}

	values := valuesByEnv[env.ID]
	if values == nil {
		return env, nil
	}

	var mode string
	var picked *models.ResourceValues
	switch {
	case values.Paid.HasUsage():
		mode, picked = constants.ResourceModePaid, values.Paid
	case values.Free.HasUsage():
		mode, picked = constants.ResourceModeFree, values.Free
	case values.Paid != nil:
		mode, picked = constants.ResourceModePaid, values.Paid
	case values.Free != nil:
		mode, picked = constants.ResourceModeFree, values.Free
	default:
		return env, nil
	}

	req := &models.ResourceRequest{ResourceValues: *picked, Mode: mode}
	if mode == constants.ResourceModePaid {
		if fee := env.FeeForToken(s.ChainID, s.PaymentToken); fee != nil {
			req.FeeToken = fee.FeeToken
			req.Price = ResourcePrice(fee, req.ResourceValues)
		}
	}
	return env, req
}

// ResourcePrice is the sum of units times unit price, multiplied by the job duration in started minutes.
func ResourcePrice(fee *models.ComputeEnvFees, v models.ResourceValues) float64 {
	if fee == nil {
		return 0
	}
	minutes := math.Ceil(float64(v.JobDuration) / 60)
	var perMinute float64
	for _, p := range fee.Prices {
		perMinute += v.Amount(p.ID) * p.Price
	}
	return perMinute * minutes
}

// ValidateResources checks the request against the environment limits of its mode.
func ValidateResources(env *models.ComputeEnvironment, req *models.ResourceRequest) error {
	if env == nil {
		return ErrNoEnvironment
	}
	if req == nil {
		return ErrNoResources
	}
	maxDuration := env.MaxJobDuration
	if !req.IsPaid() && env.Free != nil && env.Free.MaxJobDuration > 0 {
		maxDuration = env.Free.MaxJobDuration
	}
	if req.JobDuration <= 0 {
		return fmt.Errorf("%w: job duration must be positive", ErrNoResources)
	}
	if maxDuration > 0 && req.JobDuration > maxDuration {
		return fmt.Errorf("%w: job duration %ds exceeds the limit of %ds", ErrNoResources, req.JobDuration, maxDuration)
	}
	if !req.IsPaid() {
		return nil
	}
	for _, kind := range resourceKinds {
		limit := env.PaidResource(kind)
		amount := req.Amount(kind)
		if limit == nil {
			continue
		}
		if amount < limit.Min || (limit.Max > 0 && amount > limit.Max) {
			return fmt.Errorf("%w: %s %v is outside [%v, %v]", ErrNoResources, kind, amount, limit.Min, limit.Max)
		}
	}
	return nil
}
