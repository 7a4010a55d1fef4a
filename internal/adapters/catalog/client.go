package catalog

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	perr "ngmeta/internal/platform/errors"
	"ngmeta/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUA        = "ngmeta-collector"
	defaultMaxRetry  = 3
	defaultRetryBase = 250 * time.Millisecond
	defaultRetryMax  = 10 * time.Second
	defaultMaxBody   = 64 << 20
)

// Options configures the Client
type Options struct {
	UserAgent string
	Timeout   time.Duration

	// Retry config for transport errors, 408, 429 and 5xx; MaxRetries < 0 disables retries
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration

	// RequestsPerSecond paces outgoing requests; zero disables pacing
	RequestsPerSecond float64
	Burst             int

	MaxBodyBytes int64
}

// Client GETs JSON documents with retries and optional pacing
type Client struct {
	http     *http.Client
	opts     Options
	limiter  *rate.Limiter
	log      logger.Logger
	requests atomic.Int64
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.RetryMax <= 0 {
		o.RetryMax = defaultRetryMax
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBody
	}
	c := &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("catalog"),
	}
	if o.RequestsPerSecond > 0 {
		burst := o.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(o.RequestsPerSecond), burst)
	}
	return c
}

// RequestCount is the number of HTTP requests issued, retries included
func (c *Client) RequestCount() int64 { return c.requests.Load() }

// Get returns the body of a 2xx response for uri
// Failures are NetworkError; a body over MaxBodyBytes is a ParseError
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	var body []byte
	attempt := 0

	op := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(perr.Wrapf(err, perr.ErrorCodeNetwork, "GET %s: rate wait", uri))
			}
		}
		b, err := c.once(ctx, uri)
		if err != nil {
			if perr.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.RetryBase
	eb.MaxInterval = c.opts.RetryMax
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.opts.MaxRetries)), ctx)

	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Str("uri", uri).Int("attempt", attempt).Dur("retry_in", wait).Msg("catalog fetch failed; retrying")
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if !perr.HasCode(err, perr.ErrorCodeNetwork) && !perr.HasCode(err, perr.ErrorCodeParse) {
			err = perr.Wrapf(err, perr.ErrorCodeNetwork, "GET %s", uri)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNetwork, "GET %s: bad request", uri)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.requests.Add(1)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNetwork, "GET %s", uri)
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug().Str("uri", uri).Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("catalog http response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, perr.FromStatus(resp.StatusCode, uri)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNetwork, "GET %s: read body", uri)
	}
	if int64(len(b)) > c.opts.MaxBodyBytes {
		return nil, perr.Parsef("GET %s: body exceeds %d bytes", uri, c.opts.MaxBodyBytes)
	}
	return b, nil
}
