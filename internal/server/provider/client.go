// Package provider is the protocol client for the external AI servers. It
// speaks MCP over streamable HTTP, opening one session per call, and turns
// tool results into search hits or image artifacts.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
	"github.com/dmitrijs2005/aiexplorer/internal/logging"
	"github.com/dmitrijs2005/aiexplorer/internal/netx"
	"github.com/dmitrijs2005/aiexplorer/internal/server/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

const clientName = "aiexplorer"

// Version is reported to provider servers during the MCP handshake.
var Version = "dev"

var (
	searchKeywords = []string{"search"}
	imageKeywords  = []string{"generate", "image", "flux"}
)

// TransportFactory opens the transport for one session against endpoint.
type TransportFactory func(endpoint string) mcp.Transport

// Options configures a Client. Zero retry values fall back to the defaults.
type Options struct {
	SearchURL string
	ImageURL  string
	APIKey    string

	// Tool names; empty means discover via tools/list by keyword.
	SearchTool string
	ImageTool  string

	MaxConcurrency int64
	RetryBase      time.Duration
	RetryCap       time.Duration
	MaxRetries     uint64

	HTTPClient *http.Client
	Transport  TransportFactory
	Logger     logging.Logger
}

const (
	DefaultRetryBase      = 200 * time.Millisecond
	DefaultRetryCap       = 2 * time.Second
	DefaultMaxRetries     = 3
	DefaultMaxConcurrency = 8
)

// Client is safe for concurrent use. It keeps no per-call state.
type Client struct {
	opts      Options
	mcp       *mcp.Client
	sem       *semaphore.Weighted
	transport TransportFactory
	log       logging.Logger
}

func New(opts Options) *Client {
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}
	if opts.RetryCap <= 0 {
		opts.RetryCap = DefaultRetryCap
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = netx.NewHTTPClient(0)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop{}
	}

	c := &Client{
		opts: opts,
		mcp:  mcp.NewClient(&mcp.Implementation{Name: clientName, Version: Version}, nil),
		sem:  semaphore.NewWeighted(opts.MaxConcurrency),
		log:  opts.Logger.With("module", "provider"),
	}
	c.transport = opts.Transport
	if c.transport == nil {
		c.transport = c.streamable
	}
	return c
}

func (c *Client) streamable(endpoint string) mcp.Transport {
	return &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: c.opts.HTTPClient,
	}
}

// endpoint appends the API key as the api_key query parameter.
func (c *Client) endpoint(base string) (string, error) {
	if c.opts.APIKey == "" {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bad endpoint: %v", common.ErrUpstreamUnavailable, err)
	}
	q := u.Query()
	q.Set("api_key", c.opts.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Search runs the search tool. A response that cannot be understood yields
// an empty slice rather than an error.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.ResultItem, error) {
	args := map[string]any{"query": query, "max_results": maxResults}

	res, err := c.call(ctx, c.opts.SearchURL, c.opts.SearchTool, searchKeywords, args)
	if err != nil {
		return nil, err
	}
	return parseSearch(res, query, maxResults), nil
}

// GenerateImage runs the image tool and returns exactly one artifact.
func (c *Client) GenerateImage(ctx context.Context, prompt string, p models.ImageParameters) (models.Artifact, error) {
	args := map[string]any{
		"prompt": prompt,
		"width":  p.Width,
		"height": p.Height,
		"steps":  p.Steps,
	}

	res, err := c.call(ctx, c.opts.ImageURL, c.opts.ImageTool, imageKeywords, args)
	if err != nil {
		return models.Artifact{}, err
	}
	return parseImage(res)
}

// call performs one logical tool call with retries. The returned error
// always matches one of the common.ErrUpstream* sentinels.
func (c *Client) call(ctx context.Context, base, tool string, keywords []string, args map[string]any) (*mcp.CallToolResult, error) {
	endpoint, err := c.endpoint(base)
	if err != nil {
		return nil, err
	}

	var result *mcp.CallToolResult
	attempt := 0

	err = retry.Do(ctx, c.backoff(ctx), func(ctx context.Context) error {
		attempt++
		res, err := c.attempt(ctx, endpoint, tool, keywords, args)
		if err != nil {
			if isTransient(err) {
				c.log.Warn(ctx, "provider call failed, may retry", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	return result, nil
}

func (c *Client) backoff(ctx context.Context) retry.Backoff {
	b := retry.NewExponential(c.opts.RetryBase)
	b = retry.WithCappedDuration(c.opts.RetryCap, b)
	b = retry.WithMaxRetries(c.opts.MaxRetries, b)
	return withDeadline(ctx, b)
}

// withDeadline stops retrying when the next wait would end at or past the
// context deadline.
func withDeadline(ctx context.Context, next retry.Backoff) retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		d, stop := next.Next()
		if stop {
			return 0, true
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d {
			return 0, true
		}
		return d, false
	})
}

// attempt opens a session, resolves the tool and calls it once.
func (c *Client) attempt(ctx context.Context, endpoint, tool string, keywords []string, args map[string]any) (*mcp.CallToolResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: waiting for a provider slot: %v", common.ErrUpstreamUnavailable, err)
	}
	defer c.sem.Release(1)

	ctx, rec := netx.WithStatusRecorder(ctx)

	session, err := c.mcp.Connect(ctx, c.transport(endpoint), nil)
	if err != nil {
		return nil, classify(ctx, rec.Status(), err)
	}
	defer session.Close()

	if tool == "" {
		tool, err = discoverTool(ctx, session, keywords)
		if err != nil {
			return nil, classify(ctx, rec.Status(), err)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, classify(ctx, rec.Status(), err)
	}

	if res.IsError {
		msg := resultText(res)
		if looksTransient(msg) {
			return nil, transientError{fmt.Errorf("%w: tool %s: %s", common.ErrUpstreamUnavailable, tool, msg)}
		}
		return nil, fmt.Errorf("%w: tool %s: %s", common.ErrUpstreamRejected, tool, msg)
	}

	return res, nil
}

var errNoTool = errors.New("no matching tool")

func discoverTool(ctx context.Context, session *mcp.ClientSession, keywords []string) (string, error) {
	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return "", err
	}
	for _, t := range res.Tools {
		name := strings.ToLower(t.Name)
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return t.Name, nil
			}
		}
	}
	return "", errNoTool
}

func resultText(res *mcp.CallToolResult) string {
	parts := make([]string, 0, len(res.Content))
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok && tc.Text != "" {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 {
		return "tool reported an error"
	}
	return strings.Join(parts, "; ")
}
