package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so the session layer can decide how a failure folds
// into a snapshot:
// - ErrNotFound: record does not exist in the store
// - ErrUnavailable: backing service temporarily unreachable
// - ErrInvalidState: caller asked for something the current state forbids
//
// Anything wrapping ErrUnavailable is treated as a resolution failure and
// denies access.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
