// Package civicapi is a client for the CivicAPI officials endpoint.
package civicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.civicapi.org"

// Client defines the CivicAPI operations.
type Client interface {
	Officials(ctx context.Context, state string) ([]Official, error)
}

// Official is one entry of the officials result set.
type Official struct {
	County  string `json:"county"`
	Office  string `json:"office"`
	Address string `json:"address"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

type officialsResponse struct {
	Results []Official `json:"results"`
}

// APIError is returned when CivicAPI responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("civicapi: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus reports the response status.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.hc = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	hc      *http.Client
	rc      *resty.Client
}

// NewClient creates a new CivicAPI client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.hc != nil {
		c.rc = resty.NewWithClient(c.hc)
	} else {
		c.rc = resty.New()
	}
	c.rc.SetTimeout(c.timeout).
		SetHeader("apikey", apiKey).
		SetHeader("Accept", "application/json")
	return c
}

func (c *httpClient) Officials(ctx context.Context, state string) ([]Official, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"state":  strings.ToUpper(state),
			"format": "json",
		}).
		Get(c.baseURL + "/officials")
	if err != nil {
		return nil, eris.Wrapf(err, "civicapi: get officials for %s", state)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var out officialsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, eris.Wrap(err, "civicapi: decode response")
	}
	return out.Results, nil
}
