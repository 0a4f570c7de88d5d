// Package errs defines the error taxonomy shared by every component.
// Expected outcomes are sentinel values matched with errors.Is; anything
// else reaching a state-machine boundary is an unexpected fault and is
// propagated wrapped.
package errs

import "errors"

var (
	// ErrNotFound: channel, chat, request or session row is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState: operation attempted outside its legal
	// state-machine transition (e.g. processing a non-queued request).
	ErrInvalidState = errors.New("invalid state")

	// ErrUpstreamUnavailable: the video platform kept failing after all
	// retry attempts were exhausted.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrRateLimited: the platform asked us to back off. Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoTranscript: no transcript exists for a video in any requested
	// language or tier. Permanent; never retried.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrNoContent: onboarding found zero indexable videos.
	ErrNoContent = errors.New("no indexable content")

	// ErrGenerationFailed: the chat backend produced no stream or raised
	// mid-stream.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrChannelNotActive: chat requested against a channel that has not
	// finished onboarding.
	ErrChannelNotActive = errors.New("channel not active")
)
