package credential

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lagrangedao/go-compute-to-data/internal/models"
	"github.com/lagrangedao/go-compute-to-data/internal/provider"
)

// UseResult is the verifier answer to a submitted presentation.
type UseResult struct {
	RedirectURI  string `json:"redirectUri"`
	ErrorMessage string `json:"errorMessage"`
}

// SSIWallet is a client for the holder's SSI wallet API.
type SSIWallet struct {
	baseURL  string
	walletID string
	token    string
	http     *provider.JSONClient
}

func NewSSIWallet(baseURL, walletID, token string, timeout time.Duration, retryMax int) *SSIWallet {
	return &SSIWallet{
		baseURL:  strings.TrimRight(baseURL, "/"),
		walletID: walletID,
		token:    token,
		http:     provider.NewJSONClient(timeout, retryMax),
	}
}

func (w *SSIWallet) walletURL(path string) string {
	return fmt.Sprintf("%s/wallet-api/wallet/%s/%s", w.baseURL, url.PathEscape(w.walletID), path)
}

func (w *SSIWallet) headers() map[string]string {
	if w.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + w.token}
}

func (w *SSIWallet) MatchCredentials(ctx context.Context, pd *models.PresentationDefinition) ([]models.Credential, error) {
	var creds []models.Credential
	if err := w.http.Post(ctx, w.walletURL("exchange/matchCredentialsForPresentationDefinition"), w.headers(), pd, &creds); err != nil {
		return nil, fmt.Errorf("match credentials: %w", err)
	}
	return creds, nil
}

func (w *SSIWallet) Dids(ctx context.Context) ([]models.Did, error) {
	var dids []models.Did
	if err := w.http.Get(ctx, w.walletURL("dids"), w.headers(), &dids); err != nil {
		return nil, fmt.Errorf("get dids: %w", err)
	}
	return dids, nil
}

func (w *SSIWallet) ResolvePresentationRequest(ctx context.Context, request string) (string, error) {
	var resolved string
	if err := w.http.Post(ctx, w.walletURL("exchange/resolvePresentationRequest"), w.headers(), request, &resolved); err != nil {
		return "", fmt.Errorf("resolve presentation request: %w", err)
	}
	return resolved, nil
}

func (w *SSIWallet) UsePresentationRequest(ctx context.Context, did, request string, credentialIDs []string) (UseResult, error) {
	body := map[string]interface{}{
		"did":                 did,
		"presentationRequest": request,
		"selectedCredentials": credentialIDs,
	}
	var result UseResult
	if err := w.http.Post(ctx, w.walletURL("exchange/usePresentationRequest"), w.headers(), body, &result); err != nil {
		return UseResult{}, fmt.Errorf("use presentation request: %w", err)
	}
	return result, nil
}
