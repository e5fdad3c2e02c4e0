// Package backend is the HTTP client of the evidence storage service that
// lists objects, issues SAS URLs and edits metadata.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"evidence-explorer/internal/model"
)

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	Logger   *slog.Logger
}

// Client calls the backend with the bearer token found on the request
// context. Network failures and 5xx responses are retried; 4xx never are.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

func NewClient(opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = opts.Timeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}

	return &Client{baseURL: opts.BaseURL, http: rc}
}

func (c *Client) List(ctx context.Context, container string, token string) (model.ListResult, error) {
	query := url.Values{}
	if token != "" {
		query.Set("continuationToken", token)
	}

	var result model.ListResult
	if err := c.do(ctx, http.MethodGet, containerPath(container, "objects"), query, nil, &result); err != nil {
		return model.ListResult{}, err
	}

	return result, nil
}

func (c *Client) GenerateUploadURL(ctx context.Context, container string) ([]model.SasUploadInfo, error) {
	var infos []model.SasUploadInfo
	if err := c.do(ctx, http.MethodPost, containerPath(container, "sas/upload"), nil, nil, &infos); err != nil {
		return nil, err
	}

	return infos, nil
}

func (c *Client) GenerateReadURL(ctx context.Context, container string, path string) (model.ReadURL, error) {
	var out model.ReadURL
	body := map[string]string{"path": path}
	if err := c.do(ctx, http.MethodPost, containerPath(container, "sas/read"), nil, body, &out); err != nil {
		return model.ReadURL{}, err
	}

	return out, nil
}

func (c *Client) DeleteObject(ctx context.Context, container string, path string) error {
	query := url.Values{"path": {path}}
	return c.do(ctx, http.MethodDelete, containerPath(container, "objects"), query, nil, nil)
}

func (c *Client) UpdateMetadata(ctx context.Context, container string, path string, metadata map[string]string) error {
	body := struct {
		Path     string            `json:"path"`
		Metadata map[string]string `json:"metadata"`
	}{Path: path, Metadata: metadata}

	return c.do(ctx, http.MethodPut, containerPath(container, "metadata"), nil, body, nil)
}

func (c *Client) GetMessageContent(ctx context.Context, container string, path string) (model.MessageContent, error) {
	var out model.MessageContent
	query := url.Values{"path": {path}}
	if err := c.do(ctx, http.MethodGet, containerPath(container, "messages"), query, nil, &out); err != nil {
		return model.MessageContent{}, err
	}

	return out, nil
}

func containerPath(container string, suffix string) string {
	return "/api/containers/" + url.PathEscape(container) + "/" + suffix
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// With the passthrough handler an exhausted retry of a 5xx still returns
	// the last response; only a missing response is a network failure.
	resp, err := c.http.Do(req)
	if resp == nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("backend request failed", "method", method, "path", path, "error", err)
		return networkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	return nil
}
