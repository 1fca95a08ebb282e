package core

import "errors"

// Error taxonomy surfaced by the debate subsystem. State machine errors
// (ErrNotFound, ErrInvalidParameters, ErrInvalidState) pass through to
// callers verbatim; collaborator failures are coarsened into
// ErrGenerationFailed or ErrContextUnavailable before leaving the engine.
var (
	// ErrNotFound means a referenced debate or channel does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameters means required fields are missing from a request.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrInvalidState means the requested transition is illegal given the
	// debate's current status or turn count.
	ErrInvalidState = errors.New("invalid state")

	// ErrGenerationFailed means the upstream text-generation call errored
	// or produced no usable output.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrContextUnavailable means the retrieval collaborator failed. It is
	// logged and degraded to empty context, never propagated to callers.
	ErrContextUnavailable = errors.New("context unavailable")
)
