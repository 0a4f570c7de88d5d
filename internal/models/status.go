package models

import "fmt"

// Status values are closed string types validated at every boundary:
// an unknown value coming out of the database or a request body is an
// error, never a silent default.

type ChannelStatus string

const (
	ChannelInactive ChannelStatus = "inactive"
	ChannelActive   ChannelStatus = "active"
)

func (s ChannelStatus) Valid() bool {
	switch s {
	case ChannelInactive, ChannelActive:
		return true
	}
	return false
}

func ParseChannelStatus(s string) (ChannelStatus, error) {
	st := ChannelStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown channel status %q", s)
	}
	return st, nil
}

type OnboardingStatus string

const (
	OnboardingPending       OnboardingStatus = "pending"
	OnboardingQueued        OnboardingStatus = "queued"
	OnboardingProcessing    OnboardingStatus = "processing"
	OnboardingCompleted     OnboardingStatus = "completed"
	OnboardingFailed        OnboardingStatus = "failed"
	OnboardingRejected      OnboardingStatus = "rejected"
	OnboardingAutocompleted OnboardingStatus = "autocompleted"
)

func (s OnboardingStatus) Valid() bool {
	switch s {
	case OnboardingPending, OnboardingQueued, OnboardingProcessing,
		OnboardingCompleted, OnboardingFailed, OnboardingRejected,
		OnboardingAutocompleted:
		return true
	}
	return false
}

// Terminal reports whether a request in this status may never change again.
func (s OnboardingStatus) Terminal() bool {
	switch s {
	case OnboardingCompleted, OnboardingFailed, OnboardingRejected, OnboardingAutocompleted:
		return true
	}
	return false
}

// CanTransitionTo enforces the legal request lifecycle:
// pending -> queued -> processing -> completed|failed, plus the
// pending -> autocompleted shortcut and queued -> rejected.
func (s OnboardingStatus) CanTransitionTo(next OnboardingStatus) bool {
	switch s {
	case OnboardingPending:
		return next == OnboardingQueued || next == OnboardingAutocompleted
	case OnboardingQueued:
		return next == OnboardingProcessing || next == OnboardingRejected || next == OnboardingCompleted
	case OnboardingProcessing:
		return next == OnboardingCompleted || next == OnboardingFailed
	}
	return false
}

func ParseOnboardingStatus(s string) (OnboardingStatus, error) {
	st := OnboardingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown onboarding request status %q", s)
	}
	return st, nil
}

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

func ParseMessageRole(s string) (MessageRole, error) {
	r := MessageRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown message role %q", s)
	}
	return r, nil
}

type ChatResponseStatus string

const (
	ResponseInProgress  ChatResponseStatus = "in_progress"
	ResponseCompleted   ChatResponseStatus = "completed"
	ResponseFailed      ChatResponseStatus = "failed"
	ResponseRejected    ChatResponseStatus = "rejected"
	ResponseRegenerated ChatResponseStatus = "regenerated"
)

func (s ChatResponseStatus) Valid() bool {
	switch s {
	case ResponseInProgress, ResponseCompleted, ResponseFailed,
		ResponseRejected, ResponseRegenerated:
		return true
	}
	return false
}

func ParseChatResponseStatus(s string) (ChatResponseStatus, error) {
	st := ChatResponseStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown chat response status %q", s)
	}
	return st, nil
}
