package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/filswan/go-swan-lib/logs"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/lagrangedao/go-compute-to-data/util"
)

// Error is a non-2xx answer from a remote service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote call failed with status %d", e.Status)
	}
	return e.Message
}

// JSONClient sends JSON requests; idempotent GETs are retried, everything else is sent once.
type JSONClient struct {
	get  *retryablehttp.Client
	post *retryablehttp.Client
}

func NewJSONClient(timeout time.Duration, retryMax int) *JSONClient {
	return &JSONClient{
		get:  newRetryClient(timeout, retryMax),
		post: newRetryClient(timeout, 0),
	}
}

func newRetryClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.RetryMax = retryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logs.GetLogger().Warnf("retrying %s %s, attempt: %d", req.Method, req.URL.Path, attempt)
			return
		}
		logs.GetLogger().Debugf("%s %s", req.Method, req.URL.String())
	}
	return client
}

func (c *JSONClient) Get(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(c.get, req, out)
}

func (c *JSONClient) Post(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed convert to json, error: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(c.post, req, out)
}

func (c *JSONClient) do(client *retryablehttp.Client, req *retryablehttp.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body, error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response of %s, error: %w", req.URL.Path, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Error != "" {
			return util.SanitizeMessage(body.Error)
		}
		if body.Message != "" {
			return util.SanitizeMessage(body.Message)
		}
	}
	return util.SanitizeMessage(string(data))
}
