package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
)

const (
	computeEnvironmentsPath = "/api/services/computeEnvironments"
	noncePath               = "/api/services/nonce"
	initializeComputePath   = "/api/services/initializeCompute"
	computePath             = "/api/services/compute"
	freeComputePath         = "/api/services/freeCompute"
	policyPassthroughPath   = "/api/services/PolicyServerPassthrough"
)

type ComputeAsset struct {
	DocumentID   string                 `json:"documentId"`
	ServiceID    string                 `json:"serviceId"`
	TransferTxID string                 `json:"transferTxId,omitempty"`
	Userdata     map[string]interface{} `json:"userdata,omitempty"`
}

type ComputeAlgorithm struct {
	ComputeAsset
	Meta           *models.AlgorithmMetadata `json:"meta,omitempty"`
	AlgoCustomData map[string]interface{}    `json:"algocustomdata,omitempty"`
}

type ComputePayment struct {
	ChainID   int64                           `json:"chainId"`
	Token     string                          `json:"token"`
	Resources []models.ComputeResourceRequest `json:"resources,omitempty"`
}

// PolicyServerBinding ties a verified credential session to one asset service.
type PolicyServerBinding struct {
	DocumentID string `json:"documentId"`
	ServiceID  string `json:"serviceId"`
	SessionID  string `json:"sessionId"`
}

type InitializeComputeRequest struct {
	Datasets        []ComputeAsset        `json:"datasets"`
	Algorithm       ComputeAlgorithm      `json:"algorithm"`
	Environment     string                `json:"environment"`
	Payment         *ComputePayment       `json:"payment,omitempty"`
	MaxJobDuration  int64                 `json:"maxJobDuration,omitempty"`
	ConsumerAddress string                `json:"consumerAddress"`
	PolicyServer    []PolicyServerBinding `json:"policyServer,omitempty"`
}

type ComputeStartRequest struct {
	ConsumerAddress string                          `json:"consumerAddress"`
	Signature       string                          `json:"signature"`
	Nonce           string                          `json:"nonce"`
	Environment     string                          `json:"environment"`
	Datasets        []ComputeAsset                  `json:"datasets"`
	Algorithm       ComputeAlgorithm                `json:"algorithm"`
	Resources       []models.ComputeResourceRequest `json:"resources,omitempty"`
	MaxJobDuration  int64                           `json:"maxJobDuration,omitempty"`
	Payment         *ComputePayment                 `json:"payment,omitempty"`
	PolicyServer    []PolicyServerBinding           `json:"policyServer,omitempty"`
}

// Client talks to one compute provider.
type Client struct {
	baseURL string
	http    *JSONClient
}

func NewClient(baseURL string, timeout time.Duration, retryMax int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    NewJSONClient(timeout, retryMax),
	}
}

func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) GetComputeEnvironments(ctx context.Context, chainID int64) ([]models.ComputeEnvironment, error) {
	query := url.Values{}
	query.Set("chainId", strconv.FormatInt(chainID, 10))

	var envs []models.ComputeEnvironment
	if err := c.http.Get(ctx, c.baseURL+computeEnvironmentsPath+"?"+query.Encode(), nil, &envs); err != nil {
		return nil, fmt.Errorf("get compute environments: %w", err)
	}
	return envs, nil
}

// GetNonce returns the last nonce the provider saw for address.
func (c *Client) GetNonce(ctx context.Context, address string) (int64, error) {
	query := url.Values{}
	query.Set("userAddress", address)

	var body struct {
		Nonce json.Number `json:"nonce"`
	}
	if err := c.http.Get(ctx, c.baseURL+noncePath+"?"+query.Encode(), nil, &body); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	if body.Nonce == "" {
		return 0, nil
	}
	nonce, err := strconv.ParseFloat(body.Nonce.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid nonce %q: %w", body.Nonce, err)
	}
	return int64(nonce), nil
}

func (c *Client) InitializeCompute(ctx context.Context, req InitializeComputeRequest) (*models.ProviderInitializationResult, error) {
	var result models.ProviderInitializationResult
	if err := c.http.Post(ctx, c.baseURL+initializeComputePath, nil, req, &result); err != nil {
		return nil, fmt.Errorf("initialize compute: %w", err)
	}
	return &result, nil
}

func (c *Client) ComputeStart(ctx context.Context, req ComputeStartRequest) ([]models.ComputeJob, error) {
	return c.startJob(ctx, computePath, req)
}

func (c *Client) FreeComputeStart(ctx context.Context, req ComputeStartRequest) ([]models.ComputeJob, error) {
	return c.startJob(ctx, freeComputePath, req)
}

func (c *Client) startJob(ctx context.Context, path string, req ComputeStartRequest) ([]models.ComputeJob, error) {
	var raw json.RawMessage
	if err := c.http.Post(ctx, c.baseURL+path, nil, req, &raw); err != nil {
		return nil, fmt.Errorf("start compute job: %w", err)
	}
	return decodeJobs(raw)
}

// ComputeStatus lists the jobs of consumer; jobID narrows it to one job.
func (c *Client) ComputeStatus(ctx context.Context, consumer, jobID string) ([]models.ComputeJob, error) {
	query := url.Values{}
	query.Set("consumerAddress", consumer)
	if jobID != "" {
		query.Set("jobId", jobID)
	}

	var raw json.RawMessage
	if err := c.http.Get(ctx, c.baseURL+computePath+"?"+query.Encode(), nil, &raw); err != nil {
		return nil, fmt.Errorf("get compute status: %w", err)
	}
	return decodeJobs(raw)
}

// PolicyServerPassthrough forwards a policy server action through the provider.
func (c *Client) PolicyServerPassthrough(ctx context.Context, payload interface{}, out interface{}) error {
	body := map[string]interface{}{"policyServerPassthrough": payload}
	return c.http.Post(ctx, c.baseURL+policyPassthroughPath, nil, body, out)
}

// decodeJobs accepts both a job array and a single job object.
func decodeJobs(raw json.RawMessage) ([]models.ComputeJob, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var jobs []models.ComputeJob
	if err := json.Unmarshal(raw, &jobs); err == nil {
		return jobs, nil
	}
	var job models.ComputeJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode compute jobs: %w", err)
	}
	return []models.ComputeJob{job}, nil
}

// SignatureMessage is the message a consumer signs to start or list jobs.
func SignatureMessage(consumer, documentID string, nonce int64) string {
	return consumer + documentID + strconv.FormatInt(nonce, 10)
}
