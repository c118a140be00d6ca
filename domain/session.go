package domain

// SessionID is the opaque identifier of one live connection.
// It is assigned by the transport at connect time and never persisted.
type SessionID string
