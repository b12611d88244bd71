package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Snapshot and audit stores return
// these (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: nothing persisted under the requested name
// - ErrUnavailable: backing service temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
