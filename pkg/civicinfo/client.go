// Package civicinfo is a client for the Google Civic Information
// representatives endpoint.
package civicinfo

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

const defaultBaseURL = "https://www.googleapis.com/civicinfo/v2"

// Client defines the Civic Information API operations.
type Client interface {
	Representatives(ctx context.Context, address string) (*RepresentativesResponse, error)
}

// RepresentativesResponse is the response from GET /representatives.
type RepresentativesResponse struct {
	NormalizedInput Address             `json:"normalizedInput"`
	Divisions       map[string]Division `json:"divisions"`
	Offices         []Office            `json:"offices"`
	Officials       []Official          `json:"officials"`
}

// Division is a political geography (state, county, district).
type Division struct {
	Name          string `json:"name"`
	OfficeIndices []int  `json:"officeIndices"`
}

// Office is an elected office; OfficialIndices index into Officials.
type Office struct {
	Name            string   `json:"name"`
	DivisionID      string   `json:"divisionId"`
	Levels          []string `json:"levels"`
	Roles           []string `json:"roles"`
	OfficialIndices []int    `json:"officialIndices"`
}

// Official is a person holding an office.
type Official struct {
	Name    string    `json:"name"`
	Address []Address `json:"address"`
	Party   string    `json:"party"`
	Phones  []string  `json:"phones"`
	URLs    []string  `json:"urls"`
	Emails  []string  `json:"emails"`
}

// Address is a postal address.
type Address struct {
	LocationName string `json:"locationName"`
	Line1        string `json:"line1"`
	Line2        string `json:"line2"`
	Line3        string `json:"line3"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// String joins the non-empty address parts on one line.
func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.LocationName, a.Line1, a.Line2, a.Line3} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(a.City+", "+a.State) + " " + a.Zip)
	tail = strings.Trim(tail, ", ")
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("civicinfo: HTTP %d: %s", e.StatusCode, e.Body)
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

// NewClient creates a new Civic Information client.
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
	c.rc.SetTimeout(c.timeout).SetHeader("Accept", "application/json")
	return c
}

func (c *httpClient) Representatives(ctx context.Context, address string) (*RepresentativesResponse, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetQueryParam("address", address).
		Get(c.baseURL + "/representatives")
	if err != nil {
		return nil, eris.Wrapf(err, "civicinfo: get representatives for %q", address)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var out RepresentativesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, eris.Wrap(err, "civicinfo: decode response")
	}
	return &out, nil
}
