package customerio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/getzep/cioexport/config"
	"github.com/getzep/cioexport/internal"
	"github.com/getzep/cioexport/pkg/models"
)

var log = internal.GetLogger()

// MaxAttempts bounds every outbound call: the original attempt plus exactly
// one retry on transport failure.
const MaxAttempts = 2

const formContentType = "application/x-www-form-urlencoded"

// Sender sends a single HTTP request to Customer.io.
type Sender interface {
	Send(ctx context.Context, method, url string, header http.Header, body []byte) (*Response, error)
}

// Response is a fully read Customer.io response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

var _ Sender = &RetryableTransport{}

// RetryableTransport retries a request once when no response was received at
// all. Any HTTP status, including 4xx and 5xx, is handed back to the caller
// untouched.
type RetryableTransport struct {
	client *retryablehttp.Client
}

// NewRetryableTransport returns a RetryableTransport with the given request
// timeout. base is the RoundTripper used for each attempt; when nil a pooled
// cleanhttp transport is used. Each attempt is traced with otelhttp.
func NewRetryableTransport(timeout time.Duration, base http.RoundTripper) *RetryableTransport {
	if base == nil {
		base = cleanhttp.DefaultPooledTransport()
	}

	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(
			base,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}
	retryableHTTPClient.RetryMax = MaxAttempts - 1
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = noBackoff
	retryableHTTPClient.CheckRetry = transportFailureRetryPolicy
	retryableHTTPClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &RetryableTransport{client: retryableHTTPClient}
}

// Send performs the request. body may be nil. The response body is read in
// full and closed before returning.
func (t *RetryableTransport) Send(
	ctx context.Context,
	method, url string,
	header http.Header,
	body []byte,
) (*Response, error) {
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, rawBody)
	if err != nil {
		return nil, fmt.Errorf("error creating %s request to %s: %w", method, url, err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("User-Agent", config.UserAgent())

	log.Debugf("%s %s (%s body)", method, url, humanize.Bytes(uint64(len(body))))

	resp, err := t.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, models.NewTransportError(method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewTransportError(method, url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// transportFailureRetryPolicy is a retryablehttp.CheckRetry function. Only
// requests that produced no response are retried.
func transportFailureRetryPolicy(ctx context.Context, _ *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	return err != nil, nil
}

// noBackoff retries immediately.
func noBackoff(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return 0
}
