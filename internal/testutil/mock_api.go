// Package testutil provides a configurable mock estimating API server for
// tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockResponse defines the behavior of one mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockAPI is a configurable mock estimating API server.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestsByPath    map[string]int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock server. The /login endpoint answers with a
// token by default.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		RequestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestsByPath[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestsByPath = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetScript configures a path to answer with a fixed sequence of responses,
// one per call; the last response repeats once the script is exhausted.
func (m *MockAPI) SetScript(path string, script []MockResponse) {
	var mu sync.Mutex
	call := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := script[min(call, len(script)-1)]
		call++
		mu.Unlock()
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the total number of requests seen.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests that hit one path.
func (m *MockAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestsByPath[path]
}

// defaultHandler serves the login endpoint and a generic created response.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.URL.Path == "/login" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"AccessToken": "test-token"}`))
		return
	}

	w.WriteHeader(http.StatusCreated)
	w.Write([]byte(`{"Item": {"ObjectID": "default-id", "Name": "default"}}`))
}

// NewCreatedResponse returns a 201 with an Item envelope for a named entity.
func NewCreatedResponse(objectID, name string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusCreated,
		Body:       fmt.Sprintf(`{"Item": {"ObjectID": %q, "Name": %q}}`, objectID, name),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewConflictResponse returns the 409 already-exists signal.
func NewConflictResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusConflict,
		Body:       `{"Message": "Violation of UNIQUE KEY constraint"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewExistsOKResponse returns the alternate already-exists signal: a bare
// 200 with no usable Item.
func NewExistsOKResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewTransientResponse returns the connection-pool-exhaustion signature
// that triggers a retry.
func NewTransientResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"Message": "Connection Timeout Expired. The timeout period elapsed while attempting to consume the pre-login handshake acknowledgement."}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewServerErrorResponse returns a hard 500 without the transient marker.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"Message": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// ListItem is one entity in a mock list response.
type ListItem struct {
	ObjectID    string `json:"ObjectID"`
	Name        string `json:"Name"`
	City        string `json:"City,omitempty"`
	CategoryREF string `json:"CategoryREF,omitempty"`
}

// NewListResponse returns a 200 list envelope. nextPage is the NextPage
// cursor; empty means last page.
func NewListResponse(items []ListItem, nextPage string) MockResponse {
	payload := map[string]any{
		"Items": items,
		"Pagination": map[string]any{
			"NextPage":   nextPage,
			"TotalItems": len(items),
		},
	}
	body, _ := json.Marshal(payload)
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}
