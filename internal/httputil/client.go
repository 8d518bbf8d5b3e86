package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Getter abstracts the single HTTP operation the drive loader needs,
// so remote-log fetching is testable without a network.
type Getter interface {
	Get(url string) (*http.Response, error)
}

// MockGetter serves canned responses keyed by URL and records requests.
type MockGetter struct {
	// Responses maps URL to response body. URLs not present yield a 404.
	Responses map[string]string
	// Status overrides the 200 status for matched URLs when nonzero.
	Status int
	// Err, when set, is returned for every request.
	Err error
	// Requested records the URLs fetched, in order.
	Requested []string
}

// Get returns the canned response for the URL.
func (m *MockGetter) Get(url string) (*http.Response, error) {
	m.Requested = append(m.Requested, url)
	if m.Err != nil {
		return nil, m.Err
	}
	body, ok := m.Responses[url]
	status := http.StatusOK
	if m.Status != 0 {
		status = m.Status
	}
	if !ok {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}
