package models

import (
	"strconv"
	"strings"
)

type ComputeResource struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind,omitempty"`
	Total float64 `json:"total,omitempty"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	InUse float64 `json:"inUse"`
}

type ComputeResourcePrice struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

type ComputeEnvFees struct {
	FeeToken string                 `json:"feeToken"`
	Prices   []ComputeResourcePrice `json:"prices"`
}

type FreeComputeEnvironment struct {
	MaxJobDuration int64             `json:"maxJobDuration"`
	Resources      []ComputeResource `json:"resources"`
}

// ComputeEnvironment is a snapshot of a provider environment, fetched once per session.
type ComputeEnvironment struct {
	ID              string                      `json:"id"`
	Description     string                      `json:"description,omitempty"`
	ConsumerAddress string                      `json:"consumerAddress"`
	Resources       []ComputeResource           `json:"resources"`
	Fees            map[string][]ComputeEnvFees `json:"fees"`
	Free            *FreeComputeEnvironment     `json:"free,omitempty"`
	MaxJobDuration  int64                       `json:"maxJobDuration"`
	MinJobDuration  int64                       `json:"minJobDuration,omitempty"`
	RunningJobs     int                         `json:"runningJobs,omitempty"`
}

func (e *ComputeEnvironment) PaidResource(id string) *ComputeResource {
	return findResource(e.Resources, id)
}

func (e *ComputeEnvironment) FreeResource(id string) *ComputeResource {
	if e.Free == nil {
		return nil
	}
	return findResource(e.Free.Resources, id)
}

// FeesForChain returns the fee table for chainID, or nil.
func (e *ComputeEnvironment) FeesForChain(chainID int64) []ComputeEnvFees {
	if e.Fees == nil {
		return nil
	}
	return e.Fees[strconv.FormatInt(chainID, 10)]
}

// FeeForToken picks the fee entry for token, falling back to the first entry.
func (e *ComputeEnvironment) FeeForToken(chainID int64, token string) *ComputeEnvFees {
	fees := e.FeesForChain(chainID)
	if len(fees) == 0 {
		return nil
	}
	for i := range fees {
		if strings.EqualFold(fees[i].FeeToken, token) {
			return &fees[i]
		}
	}
	return &fees[0]
}

func findResource(resources []ComputeResource, id string) *ComputeResource {
	for i := range resources {
		if resources[i].ID == id {
			return &resources[i]
		}
	}
	return nil
}

// ResourceValues are the amounts the user picked for one bucket of an environment.
type ResourceValues struct {
	CPU         float64 `json:"cpu" yaml:"cpu"`
	RAM         float64 `json:"ram" yaml:"ram"`
	Disk        float64 `json:"disk" yaml:"disk"`
	JobDuration int64   `json:"jobDuration" yaml:"jobDuration"`
}

func (v *ResourceValues) HasUsage() bool {
	return v != nil && (v.CPU > 0 || v.RAM > 0 || v.Disk > 0 || v.JobDuration > 0)
}

func (v *ResourceValues) Amount(id string) float64 {
	switch id {
	case "cpu":
		return v.CPU
	case "ram":
		return v.RAM
	case "disk":
		return v.Disk
	}
	return 0
}

type EnvResourceValues struct {
	Free *ResourceValues `json:"free,omitempty"`
	Paid *ResourceValues `json:"paid,omitempty"`
}

// ResourceRequest is the resolved resource selection; Price is always derived.
type ResourceRequest struct {
	ResourceValues
	Mode     string  `json:"mode"`
	Price    float64 `json:"price"`
	FeeToken string  `json:"feeToken,omitempty"`
}

func (r *ResourceRequest) IsPaid() bool {
	return r != nil && r.Mode == "paid"
}

type ComputeResourceRequest struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

type ComputeJob struct {
	JobID       string `json:"jobId"`
	Owner       string `json:"owner,omitempty"`
	Status      int    `json:"status,omitempty"`
	StatusText  string `json:"statusText,omitempty"`
	DateCreated string `json:"dateCreated,omitempty"`
	Environment string `json:"environment,omitempty"`
}
