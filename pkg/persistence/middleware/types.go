package middleware

import "github.com/aretw0/leadflow/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// TranscriptMiddleware allows wrapping a TranscriptStore to add behavior.
type TranscriptMiddleware func(ports.TranscriptStore) ports.TranscriptStore
