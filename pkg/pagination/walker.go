// Package pagination follows the remote API's next-page cursor for
// list-style endpoints, concatenating every page's items.
package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Pagination is the cursor block returned by every list endpoint. An empty
// NextPage means the current page is the last.
type Pagination struct {
	CurrentPage  string `json:"CurrentPage"`
	ItemsOnPage  int    `json:"ItemsOnPage"`
	NextPage     string `json:"NextPage"`
	PageSize     int    `json:"PageSize"`
	PreviousPage string `json:"PreviousPage"`
	TotalItems   int    `json:"TotalItems"`
}

// FetchError reports a non-200 response from a list endpoint.
type FetchError struct {
	Kind       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s failed with status %d: %s", e.Kind, e.StatusCode, e.Body)
}

// Getter is the single-request surface the walker needs from the API client.
type Getter interface {
	Get(ctx context.Context, pathAndQuery string) (*http.Response, error)
}

// ListAll issues a GET with the initial query, then follows the NextPage
// cursor until the server omits it, appending every page's Items. Traversal
// is an explicit loop; depth equals page count and termination relies on the
// server eventually ending the chain. Item order is the server's.
func ListAll[T any](ctx context.Context, c Getter, kind, path, query string) ([]T, error) {
	var all []T
	pages := 0

	for {
		resp, err := c.Get(ctx, path+query)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("read %s page: %w", kind, readErr)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &FetchError{Kind: kind, StatusCode: resp.StatusCode, Body: string(body)}
		}

		var page struct {
			Items      []T        `json:"Items"`
			Pagination Pagination `json:"Pagination"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", kind, err)
		}
		all = append(all, page.Items...)
		pages++

		next := page.Pagination.NextPage
		if next == "" {
			log.Debug().
				Str("kind", kind).
				Int("pages", pages).
				Int("items", len(all)).
				Msg("List traversal complete")
			return all, nil
		}
		query = queryPortion(next)
		log.Debug().
			Str("kind", kind).
			Int("page", pages+1).
			Msg("Following next-page cursor")
	}
}

// queryPortion extracts everything from the first "?" of a next-page URL
// fragment. A fragment without one is taken verbatim.
func queryPortion(next string) string {
	if i := strings.Index(next, "?"); i >= 0 {
		return next[i:]
	}
	return next
}
