package errors

import "errors"

var (
	ErrTargetNotFound    = errors.New("target not found")
	ErrSnapshotMissing   = errors.New("snapshot not found")
	ErrFeedUnavailable   = errors.New("price feed unavailable")
	ErrFeedEmpty         = errors.New("price feed returned empty markup")
	ErrNoQuotes          = errors.New("no quotes extracted from feed markup")
	ErrRenderFailed      = errors.New("snapshot render failed")
	ErrSessionNotFound   = errors.New("messaging session not found")
	ErrSendFailed        = errors.New("message send failed")
	ErrLoginNotFound     = errors.New("login flow not found")
	ErrInvalidTransition = errors.New("invalid login state transition")
	ErrInternal          = errors.New("internal error")
)
