package models

import "errors"

var (
	ErrInvalidQuery      = errors.New("invalid query")
	ErrInvalidProjection = errors.New("invalid projection")
	ErrInvalidPage       = errors.New("invalid page")
	ErrInvalidUpdate     = errors.New("invalid update")
	ErrInvalidPipeline   = errors.New("invalid pipeline")
	ErrInvalidIndex      = errors.New("invalid index")
	ErrUnsupported       = errors.New("unsupported by backend")
)

// IsInvalid reports whether err was caused by a malformed request rather than
// by the store.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidQuery) ||
		errors.Is(err, ErrInvalidProjection) ||
		errors.Is(err, ErrInvalidPage) ||
		errors.Is(err, ErrInvalidUpdate) ||
		errors.Is(err, ErrInvalidPipeline) ||
		errors.Is(err, ErrInvalidIndex)
}
