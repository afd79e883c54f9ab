// Package voteamerica is a client for the VoteAmerica election-office API.
package voteamerica

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.voteamerica.com"

// Client defines the VoteAmerica API operations.
type Client interface {
	ElectionOffices(ctx context.Context, state string) ([]Office, error)
}

// Office is one election office as returned by GET /election-offices/{state}.
type Office struct {
	County   string `json:"county"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Official string `json:"official"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Website  string `json:"website"`
}

type officesResponse struct {
	Offices []Office `json:"offices"`
}

// APIError is returned when VoteAmerica responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voteamerica: HTTP %d: %s", e.StatusCode, e.Body)
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

// NewClient creates a new VoteAmerica client.
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
		SetAuthToken(apiKey).
		SetHeader("Accept", "application/json")
	return c
}

func (c *httpClient) ElectionOffices(ctx context.Context, state string) ([]Office, error) {
	endpoint := c.baseURL + "/election-offices/" + url.PathEscape(strings.ToUpper(state))

	resp, err := c.rc.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		return nil, eris.Wrapf(err, "voteamerica: get offices for %s", state)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var out officesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, eris.Wrap(err, "voteamerica: decode response")
	}
	return out.Offices, nil
}
