// Package api is the request helper used by the portal screens: one JSON
// request per call, no retries, no timeout, and no interpretation of the HTTP
// status. Callers inspect the payload themselves.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Endpoint paths consumed by the screens.
const (
	PathAuthLogin    = "/api/auth/login"
	PathRegistration = "/user/registration"
	PathRecovery     = "/user/recovery"
	PathProfile      = "/api/user/data"
	PathProfileSave  = "/api/user/data-update"
)

// Response carries the raw JSON body of a reply, whatever its status.
type Response struct {
	Status int
	Data   json.RawMessage
}

// Requester issues one request and returns the decoded reply.
type Requester interface {
	Request(ctx context.Context, path, method string, body any) (*Response, error)
}

// Client is the HTTP Requester.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client for baseURL. The jar, when set, carries the
// session cookie on every request.
func NewClient(baseURL string, jar http.CookieJar) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Jar: jar},
	}
}

func (c *Client) Request(ctx context.Context, path, method string, body any) (*Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	return &Response{Status: resp.StatusCode, Data: json.RawMessage(bytes.TrimSpace(raw))}, nil
}
