package external

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

const (
	defaultGDCBaseURL   = "https://api.gdc.cancer.gov"
	defaultGDCUserAgent = "gdc-multiomics-manifest/1.0"
	maxErrorBodyExcerpt = 512
)

// GDCAPI handles HTTP interactions with the Genomic Data Commons API
type GDCAPI struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewGDCAPI creates a new GDC API transport
func NewGDCAPI(config domain.GDCConfig) *GDCAPI {
	if config.BaseURL == "" {
		config.BaseURL = defaultGDCBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 3
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultGDCUserAgent
	}

	return &GDCAPI{
		baseURL:   strings.TrimRight(config.BaseURL, "/"),
		userAgent: config.UserAgent,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Query performs one GET against endpoint. Non-200 responses become an
// *APIError carrying an excerpt of the body. There is no retry.
func (g *GDCAPI) Query(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if err := g.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", g.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		excerpt := string(body)
		if len(excerpt) > maxErrorBodyExcerpt {
			excerpt = excerpt[:maxErrorBodyExcerpt]
		}
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: excerpt}
	}

	return body, nil
}
