// Package matchclient talks to the remote résumé matching service.
package matchclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultPath    = "/match_resume"

	defaultTimeout   = 2 * time.Minute
	defaultUserAgent = "ai-resume-matcher"
)

var (
	ErrMissingInput    = errors.New("please provide a resume and a job description")
	ErrRequestInFlight = errors.New("a match request is already in progress")
)

// Options configures the client. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	Path      string
	Timeout   time.Duration
	UserAgent string
}

// Client submits résumés to the matching service. It allows a single
// outstanding request at a time.
type Client struct {
	logger     *zap.Logger
	endpoint   string
	HTTPClient *http.Client
	UserAgent  string

	inFlight atomic.Bool
}

func New(logger *zap.Logger, opts Options) (*Client, error) {
	endpoint, err := buildEndpoint(opts.BaseURL, opts.Path)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger:   logger,
		endpoint: endpoint,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: userAgent,
	}, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Match posts the résumé and job description and returns the analysis text.
func (c *Client) Match(ctx context.Context, req Request) (*Response, error) {
	if req.Resume == nil || strings.TrimSpace(req.JobDescription) == "" {
		return nil, ErrMissingInput
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRequestInFlight
	}
	defer c.inFlight.Store(false)

	return c.postMatch(ctx, req)
}

func buildEndpoint(baseURL, path string) (string, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultPath
	}

	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base url must use http or https: %q", baseURL)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("base url has no host: %q", baseURL)
	}

	return parsed.String() + "/" + strings.TrimLeft(path, "/"), nil
}
