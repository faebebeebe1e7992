package models

import "errors"

// Refresh-cycle error taxonomy. Every failure inside a cycle wraps one of
// these sentinels so the orchestrator can log and count each path
// separately before resolving it to a skip.
var (
	// ErrStoreUnavailable indicates the analytics store could not be
	// reached at all (connection refused, timeout, DNS failure).
	ErrStoreUnavailable = errors.New("analytics store unavailable")

	// ErrStoreQuery indicates the store was reached but rejected or failed
	// the query.
	ErrStoreQuery = errors.New("analytics store query failed")

	// ErrEmptyWindow is a skip signal, not a true failure: the queried
	// window matched zero events and the previous briefing must be kept.
	ErrEmptyWindow = errors.New("no events in window")

	// ErrSummarizationUnavailable indicates the summarization service
	// could not be reached or returned a service-level error.
	ErrSummarizationUnavailable = errors.New("summarization service unavailable")

	// ErrSummarizationParse indicates the summarization service answered
	// with text that does not contain a decodable JSON object.
	ErrSummarizationParse = errors.New("summarization response not parseable")

	// ErrValidation indicates a decoded briefing is missing one of its
	// three required fields.
	ErrValidation = errors.New("briefing validation failed")
)
