package external

import (
	"context"
	"fmt"
	"net/url"
)

// GDC endpoints queried by the catalog client.
const (
	EndpointFiles = "files"
	EndpointCases = "cases"
)

// CatalogAPI executes one query against a catalog endpoint and returns the
// raw response body. Implementations may add rate limiting, caching or
// circuit breaking around the transport.
type CatalogAPI interface {
	Query(ctx context.Context, endpoint string, params url.Values) ([]byte, error)
}

// APIError reports a non-200 response from the catalog.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GDC %s endpoint returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Pagination is the paging block of a GDC response.
type Pagination struct {
	Count int    `json:"count"`
	Total int    `json:"total"`
	Size  int    `json:"size"`
	From  int    `json:"from"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
	Sort  string `json:"sort,omitempty"`
}

// Truncated reports whether the response holds fewer hits than matched.
func (p Pagination) Truncated() bool {
	return p.Total > p.Count
}
