package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
)

const (
	actionInitiate       = "initiate"
	actionPresentationPD = "getPD"
	actionCheckSession   = "checkSessionId"
)

type policyResponse struct {
	Success    bool            `json:"success"`
	Message    json.RawMessage `json:"message"`
	HttpStatus int             `json:"httpStatus"`
}

// PolicyServer is the verifier side of the credential exchange.
type PolicyServer struct {
	post func(ctx context.Context, payload interface{}, out interface{}) error
}

// NewPassthroughPolicyServer reaches the policy server through the compute provider.
func NewPassthroughPolicyServer(client *provider.Client) *PolicyServer {
	return &PolicyServer{post: client.PolicyServerPassthrough}
}

// NewDirectPolicyServer talks to a policy server URL without the provider in between.
func NewDirectPolicyServer(serverURL string, timeout time.Duration, retryMax int) *PolicyServer {
	client := provider.NewJSONClient(timeout, retryMax)
	serverURL = strings.TrimRight(serverURL, "/")
	return &PolicyServer{post: func(ctx context.Context, payload interface{}, out interface{}) error {
		return client.Post(ctx, serverURL, nil, payload, out)
	}}
}

func (p *PolicyServer) call(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	var resp policyResponse
	if err := p.post(ctx, payload, &resp); err != nil {
		return nil, fmt.Errorf("policy server %s: %w", payload["action"], err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("policy server %s failed: %s", payload["action"], messageText(resp.Message))
	}
	return resp.Message, nil
}

// Initiate asks the verifier for a presentation request for the asset service.
// The answer is a redirect: either an openid4vp request or an already successful session.
func (p *PolicyServer) Initiate(ctx context.Context, req Request) (string, error) {
	msg, err := p.call(ctx, map[string]interface{}{
		"action": actionInitiate,
		"policyServer": map[string]string{
			"documentId":      req.AssetID,
			"serviceId":       req.ServiceID,
			"consumerAddress": req.AccountID,
		},
	})
	if err != nil {
		return "", err
	}
	return messageText(msg), nil
}

func (p *PolicyServer) PresentationDefinition(ctx context.Context, sessionID string) (*models.PresentationDefinition, error) {
	msg, err := p.call(ctx, map[string]interface{}{
		"action":    actionPresentationPD,
		"sessionId": sessionID,
	})
	if err != nil {
		return nil, err
	}
	var pd models.PresentationDefinition
	if err := json.Unmarshal(msg, &pd); err != nil {
		return nil, fmt.Errorf("decode presentation definition: %w", err)
	}
	return &pd, nil
}

// CheckSessionID reports whether the verifier still accepts sessionID.
func (p *PolicyServer) CheckSessionID(ctx context.Context, sessionID string) (bool, error) {
	msg, err := p.call(ctx, map[string]interface{}{
		"action":    actionCheckSession,
		"sessionId": sessionID,
	})
	if err != nil {
		return false, err
	}
	ok, err := strconv.ParseBool(strings.Trim(messageText(msg), `"`))
	if err != nil {
		return false, fmt.Errorf("unexpected checkSessionId answer %s", string(msg))
	}
	return ok, nil
}

// messageText unwraps a JSON string message, or returns the raw JSON.
func messageText(msg json.RawMessage) string {
	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return s
	}
	var obj struct {
		RedirectURI string `json:"redirectUri"`
	}
	if err := json.Unmarshal(msg, &obj); err == nil && obj.RedirectURI != "" {
		return obj.RedirectURI
	}
	return strings.TrimSpace(string(msg))
}
