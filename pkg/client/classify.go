package client

import (
	"bytes"
	"net/http"
)

// Request is a single write call destined for the remote API. Path is
// relative to the base URL; Body is JSON-marshaled when non-nil.
type Request struct {
	Method string
	Path   string
	Body   any
}

// Response pairs a dispatched request with its remote result. Index is the
// position of the originating request in the dispatched slice; it is the
// correlation id that survives partial retries, so callers never depend on
// array position alone.
//
// A zero StatusCode means the transport failed before any status was
// received; Body then carries the transport error text.
type Response struct {
	Index      int
	StatusCode int
	Body       []byte
}

// Class is the closed classification of a remote create response.
type Class int

const (
	// ClassCreated means the server created the record and echoed it back.
	ClassCreated Class = iota

	// ClassConflict means the record already exists. The server signals this
	// either with 409 or with a bare 200 carrying no new record; neither is
	// a failure, but the existing identifier must be fetched separately.
	ClassConflict

	// ClassTransient means the connection-pool-exhaustion signature (or a
	// transport-level failure); the request is eligible for retry.
	ClassTransient

	// ClassHardFailure means any other error status; the entity is abandoned.
	ClassHardFailure
)

// String returns the class name for logs.
func (c Class) String() string {
	switch c {
	case ClassCreated:
		return "created"
	case ClassConflict:
		return "conflict"
	case ClassTransient:
		return "transient"
	default:
		return "hard_failure"
	}
}

// Classify computes the classification of a response once, from its status
// code plus the message-substring check for the transient case. Call sites
// switch on the result instead of re-inspecting raw text.
func (cfg Config) Classify(resp Response) Class {
	switch {
	case resp.StatusCode == cfg.TransientStatus &&
		bytes.Contains(resp.Body, []byte(cfg.TransientMarker)):
		return ClassTransient
	case resp.StatusCode == 0:
		// Transport failure before any status arrived. Retried like the
		// remote transient signature.
		return ClassTransient
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusOK:
		return ClassConflict
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return ClassCreated
	default:
		return ClassHardFailure
	}
}

// Classify classifies a response under the client's configuration.
func (c *Client) Classify(resp Response) Class {
	return c.config.Classify(resp)
}
