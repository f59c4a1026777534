package customerio

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// fakeCustomerIO records every request and answers with the status chosen by
// respond.
type fakeCustomerIO struct {
	mu       sync.Mutex
	requests []recordedRequest
	server   *httptest.Server
}

func newFakeCustomerIO(t *testing.T, respond func(r *http.Request) int) *fakeCustomerIO {
	t.Helper()
	f := &fakeCustomerIO{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		f.mu.Unlock()
		w.WriteHeader(respond(r))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCustomerIO) endpoints() Endpoints {
	return Endpoints{InfoAPI: f.server.URL, TrackAPI: f.server.URL}
}

func (f *fakeCustomerIO) Requests() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// calls summarises the recorded requests as "METHOD path" strings.
func (f *fakeCustomerIO) calls() []string {
	var out []string
	for _, r := range f.Requests() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

// statusFor answers activity checks with activity, customer writes with
// create and everything else with other.
func statusFor(activity, create, other int) func(r *http.Request) int {
	return func(r *http.Request) int {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/api/activities":
			return activity
		case r.Method == http.MethodPut:
			return create
		default:
			return other
		}
	}
}

// flakyRoundTripper fails the first `failures` round trips before any
// response is received.
type flakyRoundTripper struct {
	failures int32
	calls    atomic.Int32
}

var errConnectionReset = errors.New("connection reset by peer")

func (f *flakyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, errConnectionReset
	}
	return http.DefaultTransport.RoundTrip(req)
}

func closedServerURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	u := srv.URL
	srv.Close()
	return u
}
