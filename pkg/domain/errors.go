package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrLeadNotFound is returned when no lead exists for a session.
var ErrLeadNotFound = errors.New("lead not found")

// ErrNodeNotFound is returned when a node reference does not resolve in the flow definition.
var ErrNodeNotFound = errors.New("node not found")

// ErrClassifierFailed is returned when the LLM classifier cannot produce a usable result.
var ErrClassifierFailed = errors.New("classifier failed")

// ErrInvalidMessage is returned for transcript entries or chat input that cannot be accepted.
var ErrInvalidMessage = errors.New("invalid message")

// ErrSessionClaimed is returned when a human agent already holds the session.
var ErrSessionClaimed = errors.New("session claimed by another agent")

// ErrInvalidFlow is returned when a flow document cannot be compiled.
var ErrInvalidFlow = errors.New("invalid flow definition")
