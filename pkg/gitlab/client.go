package gitlab

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

// TokenType selects the header the session authenticates with.
type TokenType string

const (
	TokenTypePrivate TokenType = "private" // PRIVATE-TOKEN
	TokenTypeOAuth   TokenType = "oauth"   // Authorization: Bearer
	TokenTypeJob     TokenType = "job"     // JOB-TOKEN
)

// DefaultUserAgent is sent unless SessionConfig.UserAgent overrides it.
const DefaultUserAgent = "gitlab-mr-review-mcp"

// SessionConfig is the validated input the session is built from. It is
// produced once at startup by the configuration loader.
type SessionConfig struct {
	// APIURL is the normalized API base, e.g. https://gitlab.example.com/api/v4.
	APIURL      string
	Token       string
	TokenType   TokenType
	Timeout     time.Duration
	InsecureTLS bool
	CACertPath  string
	UserAgent   string
	// HTTPClient replaces the client built from the TLS and timeout settings.
	HTTPClient *http.Client
}

// MergeRequestAPI is the set of GitLab operations the review tools need.
type MergeRequestAPI interface {
	GetMergeRequest(ctx context.Context, ref MergeRequestRef) (*gl.MergeRequest, error)
	GetMergeRequestChanges(ctx context.Context, ref MergeRequestRef) (*MergeRequestChanges, error)
	GetMergeRequestVersions(ctx context.Context, ref MergeRequestRef) ([]*gl.MergeRequestDiffVersion, error)
	CreateMergeRequestDiscussion(ctx context.Context, ref MergeRequestRef, body string, position *DiscussionPosition, resolve *bool) (*gl.Discussion, error)
	CreateMergeRequestNote(ctx context.Context, ref MergeRequestRef, body string, confidential *bool) (*gl.Note, error)
}

// MergeRequestChanges is the response of GET /merge_requests/:iid/changes:
// the merge request plus its file diffs.
type MergeRequestChanges struct {
	gl.MergeRequest
	Overflow bool                   `json:"overflow"`
	Changes  []*gl.MergeRequestDiff `json:"changes"`
}

// UnmarshalJSON decodes the embedded merge request and the diff list
// separately, since gl.MergeRequest brings its own UnmarshalJSON.
func (c *MergeRequestChanges) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.MergeRequest); err != nil {
		return err
	}
	var extra struct {
		Overflow bool                   `json:"overflow"`
		Changes  []*gl.MergeRequestDiff `json:"changes"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	c.Overflow = extra.Overflow
	c.Changes = extra.Changes
	return nil
}

// Client is the authenticated GitLab session. It holds no mutable state once
// built and is safe for concurrent use.
type Client struct {
	api    *gl.Client
	logger *log.Logger
}

var _ MergeRequestAPI = (*Client)(nil)

// NewClient builds the session. Retries and client-side rate limiting are
// switched off: every call reaches GitLab at most once.
func NewClient(cfg SessionConfig, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("GitLab token cannot be empty")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("GitLab API URL cannot be empty")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	opts := []gl.ClientOptionFunc{
		gl.WithBaseURL(cfg.APIURL),
		gl.WithHTTPClient(httpClient),
		gl.WithCustomRetry(noRetry),
		gl.WithCustomRetryMax(0),
		gl.WithCustomLimiter(rate.NewLimiter(rate.Inf, 0)),
	}

	var (
		api *gl.Client
		err error
	)
	switch cfg.TokenType {
	case TokenTypePrivate, "":
		api, err = gl.NewClient(cfg.Token, opts...)
	case TokenTypeOAuth:
		api, err = gl.NewOAuthClient(cfg.Token, opts...)
	case TokenTypeJob:
		api, err = gl.NewJobClient(cfg.Token, opts...)
	default:
		return nil, fmt.Errorf("unknown token type %q", cfg.TokenType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	api.UserAgent = DefaultUserAgent
	if cfg.UserAgent != "" {
		api.UserAgent = cfg.UserAgent
	}

	if logger == nil {
		logger = log.New()
	}
	return &Client{api: api, logger: logger}, nil
}

// noRetry disables go-retryablehttp's retry loop. A retried POST would
// create a duplicate comment, since GitLab has no idempotency keys here.
var noRetry retryablehttp.CheckRetry = func(_ context.Context, _ *http.Response, _ error) (bool, error) {
	return false, nil
}

// newHTTPClient builds the HTTP client with optional custom TLS settings.
func newHTTPClient(cfg SessionConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.InsecureTLS {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for self-signed instances
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate from %s: %w", cfg.CACertPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate from %s", cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}

	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport, Timeout: cfg.Timeout}, nil
}

// NormalizeAPIURL turns a GitLab instance URL into the API v4 base. Trailing
// slashes and an existing /api or /api/v4 suffix are tolerated.
func NormalizeAPIURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("GitLab URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid GitLab URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("GitLab URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("GitLab URL %q has no host", raw)
	}

	path := strings.TrimRight(u.Path, "/")
	switch {
	case strings.HasSuffix(path, "/api/v4"):
	case strings.HasSuffix(path, "/api"):
		path += "/v4"
	default:
		path += "/api/v4"
	}

	u.Path = path
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Do issues r and decodes a 2xx body into out (when out is non-nil). Any
// failure is returned as a classified *Error.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	if err := ctx.Err(); err != nil {
		return c.fail(r, ErrTransport("request was not sent because the call was cancelled", err))
	}

	req, err := c.api.NewRequest(r.Method, r.Path, r.Body, []gl.RequestOptionFunc{gl.WithContext(ctx)})
	if err != nil {
		return c.fail(r, ErrTransport("failed to build GitLab request", err))
	}

	var buf bytes.Buffer
	resp, err := c.api.Do(req, &buf)
	if err != nil {
		if resp == nil || resp.Response == nil {
			return c.fail(r, transportFailure(ctx, r, err))
		}
		var errResp *gl.ErrorResponse
		isErrResp := errors.As(err, &errResp)
		switch {
		case errors.Is(err, gl.ErrNotFound):
			return c.fail(r, classifyStatus(http.StatusNotFound, nil))
		case isErrResp && resp.StatusCode >= 200 && resp.StatusCode < 300:
			// client-go only accepts 200, 201, 202 and 204 as success.
			// Any other 2xx comes back as an ErrorResponse with the body.
			buf.Reset()
			buf.Write(errResp.Body)
		case isErrResp:
			return c.fail(r, classifyStatus(resp.StatusCode, errResp.Body))
		default:
			// The status was fine but the body could not be read.
			return c.fail(r, transportFailure(ctx, r, err))
		}
	}

	status := resp.StatusCode
	c.logger.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.Path,
		"status": status,
	}).Debug("GitLab request succeeded")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return c.fail(r, ErrTransport(fmt.Sprintf("GitLab returned an unexpected response body (status %d)", status), err))
	}
	return nil
}

// transportFailure describes a request that got no usable response. For
// writes the outcome on GitLab's side is unknown and the message says so.
func transportFailure(ctx context.Context, r Request, err error) *Error {
	cancelled := ctx.Err() != nil
	switch {
	case cancelled && r.IsWrite():
		return ErrTransport("call was cancelled while the request was in flight; GitLab may or may not have applied the write, check the merge request before retrying", err)
	case cancelled:
		return ErrTransport("call was cancelled while the request was in flight", err)
	case r.IsWrite():
		return ErrTransport("GitLab could not be reached or did not answer; the write may or may not have been applied, check the merge request before retrying", err)
	default:
		return ErrTransport("GitLab could not be reached or did not answer", err)
	}
}

func (c *Client) fail(r Request, e *Error) *Error {
	c.logger.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.Path,
		"kind":   e.Kind.String(),
		"status": e.Status,
	}).Warnf("GitLab request failed: %v", e)
	return e
}

func (c *Client) GetMergeRequest(ctx context.Context, ref MergeRequestRef) (*gl.MergeRequest, error) {
	var mr gl.MergeRequest
	if err := c.Do(ctx, BuildGetMergeRequest(ref), &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

func (c *Client) GetMergeRequestChanges(ctx context.Context, ref MergeRequestRef) (*MergeRequestChanges, error) {
	var changes MergeRequestChanges
	if err := c.Do(ctx, BuildGetMergeRequestChanges(ref), &changes); err != nil {
		return nil, err
	}
	return &changes, nil
}

func (c *Client) GetMergeRequestVersions(ctx context.Context, ref MergeRequestRef) ([]*gl.MergeRequestDiffVersion, error) {
	var versions []*gl.MergeRequestDiffVersion
	if err := c.Do(ctx, BuildGetMergeRequestVersions(ref), &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *Client) CreateMergeRequestDiscussion(ctx context.Context, ref MergeRequestRef, body string, position *DiscussionPosition, resolve *bool) (*gl.Discussion, error) {
	req, err := BuildCreateDiscussion(ref, body, position, resolve)
	if err != nil {
		return nil, err
	}
	var discussion gl.Discussion
	if err := c.Do(ctx, req, &discussion); err != nil {
		return nil, err
	}
	return &discussion, nil
}

func (c *Client) CreateMergeRequestNote(ctx context.Context, ref MergeRequestRef, body string, confidential *bool) (*gl.Note, error) {
	req, err := BuildCreateNote(ref, body, confidential)
	if err != nil {
		return nil, err
	}
	var note gl.Note
	if err := c.Do(ctx, req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}
