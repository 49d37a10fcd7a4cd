package models

import "errors"

var (
	// ErrNetworkUnavailable marks a failed remote fetch or probe.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrNotFound           = errors.New("not found")
	// ErrStorageUnavailable marks an inaccessible ledger or vault.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedPayload   = errors.New("malformed payload")
	// ErrUnreadableReply marks a 2xx response whose body could not be
	// decoded: the write happened but its result is unknown.
	ErrUnreadableReply = errors.New("unreadable reply")
)
