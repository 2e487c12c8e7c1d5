package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/transport/http/middleware"
)

// tokenTTL is how long a minted access token is valid for; cronhostctl
// mints a fresh one for every request, so this only needs to outlive one
// round trip.
const tokenTTL = time.Minute

// APIClient talks to a running cronhostd gateway over its REST API.
type APIClient struct {
	baseURL string
	client  *http.Client
	secret  string
}

func NewAPIClient(baseURL, secret string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		secret:  secret,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *APIClient) post(path string, body, out any) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *APIClient) patch(path string, body, out any) error {
	return c.do(http.MethodPatch, path, body, out)
}

func (c *APIClient) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *APIClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		token, err := middleware.IssueToken(c.secret, tokenTTL)
		if err != nil {
			return fmt.Errorf("mint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeErr(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeErr(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("cronhostd returned %s", resp.Status)
	}
	return fmt.Errorf("cronhostd: %s", body.Error)
}
