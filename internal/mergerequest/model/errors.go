package model

import "errors"

var (
	// ErrCapabilityFailure marks a whole channel unusable for the rest of
	// the run (invalid API credential, unauthenticated browser session).
	ErrCapabilityFailure = errors.New("channel capability failure")

	// ErrNotFound is a per-request failure: the merge request does not exist
	// or is hidden from the caller.
	ErrNotFound = errors.New("merge request not found")

	// ErrForbidden is a per-request failure: the credential is valid but
	// lacks permission on this project.
	ErrForbidden = errors.New("access forbidden")

	// ErrEnrichmentUnavailable means the analysis channel timed out or
	// produced sub-threshold content. Soft: triggers the fallback document.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

	// ErrNoViableChannel aborts the run: neither the API nor the UI channel
	// is usable after interactive login retries are exhausted.
	ErrNoViableChannel = errors.New("no viable access channel")

	// ErrLoginNotCompleted means the operator did not finish interactive
	// sign-in within the allowed retries.
	ErrLoginNotCompleted = errors.New("interactive login not completed")
)
