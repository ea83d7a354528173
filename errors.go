package compsearch

import "github.com/kailas-cloud/compsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation        = domain.ErrValidation
	ErrEmptyParentFilter = domain.ErrEmptyParentFilter
	ErrSearchTransport   = domain.ErrSearchTransport
	ErrChannelClosed     = domain.ErrChannelClosed
	ErrResponseTimeout   = domain.ErrResponseTimeout
	ErrDatasetNotFound   = domain.ErrDatasetNotFound
	ErrSessionNotFound   = domain.ErrSessionNotFound
	ErrItemNotFound      = domain.ErrItemNotFound
	ErrExportNotOpen     = domain.ErrExportNotOpen
	ErrNothingSelected   = domain.ErrNothingSelected
)
