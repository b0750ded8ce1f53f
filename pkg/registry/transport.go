package registry

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// HTTPFetcher sends requests to the registration API.
type HTTPFetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// RealHTTPFetcher wraps http.Client for production use
type RealHTTPFetcher struct {
	client *http.Client
}

// NewRealHTTPFetcher creates a production HTTP fetcher
func NewRealHTTPFetcher(client *http.Client) HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &RealHTTPFetcher{client: client}
}

func (f *RealHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	return f.client.Do(req)
}

// RecordedRequest is a request captured by MockHTTPFetcher.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

type mockReply struct {
	status int
	body   string
	err    error
}

// MockHTTPFetcher answers requests from canned replies keyed by URL and
// records every request it receives. Unknown URLs get a 404.
type MockHTTPFetcher struct {
	mu       sync.Mutex
	replies  map[string]mockReply
	requests []RecordedRequest
}

// NewMockHTTPFetcher creates a mock HTTP fetcher
func NewMockHTTPFetcher() *MockHTTPFetcher {
	return &MockHTTPFetcher{replies: make(map[string]mockReply)}
}

// AddResponse registers a reply for a URL.
func (m *MockHTTPFetcher) AddResponse(urlStr string, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[urlStr] = mockReply{status: statusCode, body: body}
}

// AddError makes requests to a URL fail with err.
func (m *MockHTTPFetcher) AddError(urlStr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[urlStr] = mockReply{err: err}
}

// Requests returns every request seen so far.
func (m *MockHTTPFetcher) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

func (m *MockHTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	rec := RecordedRequest{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone()}
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		_ = req.Body.Close()
		rec.Body = string(b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, rec)

	reply, ok := m.replies[rec.URL]
	switch {
	case !ok:
		reply = mockReply{status: http.StatusNotFound, body: "Not Found"}
	case reply.err != nil:
		return nil, reply.err
	}
	return &http.Response{
		StatusCode: reply.status,
		Body:       io.NopCloser(strings.NewReader(reply.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}
