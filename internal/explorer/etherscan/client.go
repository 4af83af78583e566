// Package etherscan is a client for the Etherscan v2 contract verification API.
package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cyberduckcoin/cdc-deploy/internal/middleware/logging"
	"github.com/cyberduckcoin/cdc-deploy/internal/verification/domain"
)

// DefaultAPIURL is the multichain Etherscan v2 endpoint
const DefaultAPIURL = "https://api.etherscan.io/v2/api"

// Client talks to an Etherscan-compatible explorer
type Client struct {
	apiURL     string
	apiKey     string
	chainID    int64
	browserURL string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBrowserURL sets the explorer web UI base URL used for contract links
func WithBrowserURL(u string) Option {
	return func(client *Client) {
		client.browserURL = strings.TrimRight(u, "/")
	}
}

// New creates a new explorer client for one chain
func New(apiURL, apiKey string, chainID int64, opts ...Option) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &Client{
		apiURL:  apiURL,
		apiKey:  apiKey,
		chainID: chainID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Response is the envelope every API call returns
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// OK reports whether the call succeeded
func (r *Response) OK() bool {
	return r.Status == "1"
}

// APIError is a non-2xx HTTP answer from the explorer
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("explorer returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Result strings the explorer uses
const (
	resultPending         = "Pending in queue"
	resultPass            = "Pass - Verified"
	resultFailPrefix      = "Fail - Unable to verify"
	resultAlreadyVerified = "Already Verified"
	resultSourceVerified  = "Contract source code already verified"
	resultRateLimited     = "Max rate limit reached"
	resultNotIndexed      = "Unable to locate ContractCode"
)

// SubmitSource submits standard JSON input for verification and returns the GUID
func (c *Client) SubmitSource(ctx context.Context, sub domain.Submission) (string, error) {
	form := url.Values{}
	form.Set("module", "contract")
	form.Set("action", "verifysourcecode")
	form.Set("apikey", c.apiKey)
	form.Set("contractaddress", sub.Address)
	form.Set("sourceCode", sub.SourceCode)
	form.Set("codeformat", sub.CodeFormat)
	form.Set("contractname", sub.ContractName)
	form.Set("compilerversion", sub.CompilerVersion)
	// The explorer's field name is misspelled
	form.Set("constructorArguements", sub.ConstructorArguments)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}

	if !resp.OK() {
		return "", classifyError(resp)
	}
	return resp.Result, nil
}

// CheckStatus polls the status of a submission
func (c *Client) CheckStatus(ctx context.Context, guid string) (domain.Status, string, error) {
	q := url.Values{}
	q.Set("module", "contract")
	q.Set("action", "checkverifystatus")
	q.Set("guid", guid)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(q), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.do(req)
	if err != nil {
		return "", "", err
	}

	return classifyStatus(resp)
}

// ContractURL returns the explorer page for a verified contract
func (c *Client) ContractURL(address string) string {
	if c.browserURL == "" {
		return ""
	}
	return c.browserURL + "/address/" + address + "#code"
}

func (c *Client) endpoint(q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("chainid", strconv.FormatInt(c.chainID, 10))
	sep := "?"
	if strings.Contains(c.apiURL, "?") {
		sep = "&"
	}
	return c.apiURL + sep + q.Encode()
}

func (c *Client) do(req *http.Request) (*Response, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the request URL, which holds the API key on GET calls
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = logging.RedactURL(req.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading explorer response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding explorer response: %w", err)
	}
	return &r, nil
}

// classifyError maps a failed submission to a domain error
func classifyError(r *Response) error {
	switch {
	case strings.Contains(r.Result, resultSourceVerified), strings.Contains(r.Result, resultAlreadyVerified):
		return fmt.Errorf("%w: %s", domain.ErrAlreadyVerified, r.Result)
	case strings.Contains(r.Result, resultRateLimited):
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, r.Result)
	case strings.Contains(r.Result, resultNotIndexed):
		return fmt.Errorf("%w: %s", domain.ErrContractNotIndexed, r.Result)
	default:
		return fmt.Errorf("explorer rejected submission: %s: %s", r.Message, r.Result)
	}
}

// classifyStatus maps a status response to a domain status
func classifyStatus(r *Response) (domain.Status, string, error) {
	switch {
	case r.Result == resultPending:
		return domain.StatusPending, r.Result, nil
	case r.Result == resultPass:
		return domain.StatusPass, r.Result, nil
	case strings.HasPrefix(r.Result, resultFailPrefix):
		return domain.StatusFail, r.Result, nil
	case r.Result == resultAlreadyVerified, strings.Contains(r.Result, resultSourceVerified):
		return domain.StatusAlreadyVerified, r.Result, nil
	case strings.Contains(r.Result, resultRateLimited):
		return "", "", fmt.Errorf("%w: %s", domain.ErrRateLimited, r.Result)
	case r.OK():
		return domain.StatusPass, r.Result, nil
	default:
		return "", "", fmt.Errorf("unexpected verification status: %s: %s", r.Message, r.Result)
	}
}
