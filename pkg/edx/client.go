package edx

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mitodl/edupipe/pkg/clients"
	"github.com/mitodl/edupipe/pkg/errors"
	"github.com/mitodl/edupipe/pkg/metrics"
)

const (
	mePath      = "/api/user/v1/me"
	coursesPath = "/api/courses/v1/courses/"
)

// Client is an authenticated session against one Open edX instance.
// The token is fixed at construction: authentication state is explicit
// and immutable for the lifetime of the session, never ambient.
type Client struct {
	baseURL    string
	token      *Token
	httpClient *clients.HTTPClient
	logger     *zap.Logger
}

// NewClient creates a client for baseURL authenticated with token.
func NewClient(baseURL string, token *Token, httpClient *clients.HTTPClient, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "edx_client")),
	}
}

// authHeaders returns the Authorization header for every API call.
func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": c.token.AuthScheme() + " " + c.token.AccessToken,
		"Accept":        "application/json",
	}
}

// WhoAmI resolves the username the token acts as, via the identity
// endpoint. Any failure here is an authentication failure: the token is
// either expired or not valid for this instance.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+mePath, c.authHeaders())
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeAuthentication, "identity request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return "", errors.Newf(errors.ErrorTypeAuthentication,
			"identity endpoint returned status %d", resp.StatusCode)
	}

	var me struct {
		Username string `json:"username"`
	}
	if err := gojson.NewDecoder(resp.Body).Decode(&me); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to decode identity response")
	}
	if me.Username == "" {
		return "", errors.New(errors.ErrorTypeData, "identity response missing username")
	}

	return me.Username, nil
}

// Courses resolves the acting username and returns a one-shot iterator
// over the course catalog pages scoped to it.
func (c *Client) Courses(ctx context.Context) (*PageIterator, error) {
	username, err := c.WhoAmI(ctx)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("resolved acting username", zap.String("username", username))

	return &PageIterator{
		client:   c,
		username: username,
	}, nil
}

// coursesResponse is one page of the course list endpoint.
type coursesResponse struct {
	Results    []map[string]interface{} `json:"results"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// PageIterator walks the paginated course list lazily, one page per
// Next call. It is forward-only and not restartable: once a page has
// been consumed there is no way back, and once exhausted (or failed)
// it stays exhausted. Each page's continuation cursor is threaded into
// the following request as the cursor query parameter.
//
// Not safe for concurrent use.
type PageIterator struct {
	client   *Client
	username string
	cursor   string
	started  bool
	done     bool
}

// Next fetches and returns the next page's results. It returns
// (nil, nil) once the sequence is exhausted. Any request failure
// aborts the sequence: the error is returned and the iterator latches
// into its exhausted state. No partial-page retry, no skip.
func (it *PageIterator) Next(ctx context.Context) ([]map[string]interface{}, error) {
	if it.done {
		return nil, nil
	}

	page, err := it.fetch(ctx)
	if err != nil {
		it.done = true
		metrics.PagesFetched.WithLabelValues("failure").Inc()
		return nil, err
	}

	it.started = true
	it.cursor = page.Pagination.Next
	if it.cursor == "" {
		// An absent cursor marks the final page.
		it.done = true
	}

	metrics.PagesFetched.WithLabelValues("success").Inc()
	metrics.CatalogRecords.Add(float64(len(page.Results)))

	results := page.Results
	if results == nil {
		// A nil return is reserved for exhaustion; an empty page is
		// still a page.
		results = []map[string]interface{}{}
	}

	return results, nil
}

// Exhausted reports whether the iterator has reached its terminal state.
func (it *PageIterator) Exhausted() bool {
	return it.done
}

func (it *PageIterator) fetch(ctx context.Context) (*coursesResponse, error) {
	params := url.Values{}
	params.Set("username", it.username)
	if it.cursor != "" {
		params.Set("cursor", it.cursor)
	}

	requestURL := it.client.baseURL + coursesPath + "?" + params.Encode()

	resp, err := it.client.httpClient.Get(ctx, requestURL, it.client.authHeaders())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFetch, "course page request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		drain(resp.Body)
		return nil, errors.Newf(errors.ErrorTypeFetch,
			"course endpoint returned status %d", resp.StatusCode)
	}

	var page coursesResponse
	if err := gojson.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode course page")
	}

	return &page, nil
}

// drain consumes a response body so the connection can be reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
