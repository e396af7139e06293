package quota

import "errors"

var (
	ErrQuotaExceeded = errors.New("monthly AI quota exceeded")
	ErrInvalidLimits = errors.New("quota limits must not be negative")
)
