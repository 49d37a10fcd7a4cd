package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument  = 1000
	ErrCodeInvalidJSON      = 1001
	ErrCodeRequestTooLarge  = 1002
	ErrCodeInvalidQuery     = 1003
	ErrCodeInvalidID        = 1004
	ErrCodeInvalidType      = 1006
	ErrCodeInvalidKind      = 1007
	ErrCodeInvalidVector    = 1008
	ErrCodeMissingRequired  = 1009
	ErrCodeInvalidMultipart = 1010

	// Domain state (2xxx)
	ErrCodeRecordNotFound = 2001
	ErrCodeBlobNotFound   = 2002
	ErrCodeStaleHandle    = 2003

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal         = 4001
	ErrCodeStoreFailure     = 4002
	ErrCodeVaultUnavailable = 4003
	ErrCodeNotImplemented   = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeRecordNotFound
	case 410:
		return ErrCodeStaleHandle
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 501:
		return ErrCodeNotImplemented
	case 503:
		return ErrCodeVaultUnavailable
	default:
		return 0
	}
}
