package service

import (
	"errors"

	"github.com/gdc-multiomics-manifest/internal/domain"
	"github.com/gdc-multiomics-manifest/internal/store"
	"github.com/gdc-multiomics-manifest/pkg/external"
)

// ErrRunStore marks failures to record a run or its rows.
var ErrRunStore = errors.New("run store")

// ErrorCode maps a build or lookup failure to its ManifestError code.
func ErrorCode(err error) string {
	var malformed *domain.MalformedRecordError
	var incomplete *domain.IncompleteCohortSourceError
	var validation *domain.ValidationError
	var apiErr *external.APIError

	switch {
	case errors.As(err, &validation):
		return domain.ErrValidation
	case errors.Is(err, store.ErrRunNotFound), errors.Is(err, store.ErrManifestNotFound):
		return domain.ErrNotFound
	case errors.As(err, &malformed):
		return domain.ErrMalformedRecord
	case errors.As(err, &incomplete):
		return domain.ErrIncompleteCohortSource
	case errors.As(err, &apiErr), errors.Is(err, external.ErrCatalogUnavailable):
		return domain.ErrCatalogFetch
	case errors.Is(err, ErrRunStore):
		return domain.ErrStore
	default:
		return domain.ErrInternal
	}
}
