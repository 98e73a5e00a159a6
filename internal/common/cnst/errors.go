package cnst

import "errors"

var (
	// ErrInvalidSessionID is returned when a session id fails validation
	ErrInvalidSessionID = errors.New("invalid session id")
	// ErrSessionExists is returned when a session with the same id is already registered
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound is returned when no session is registered under the id
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotOpen is returned when an operation needs an authenticated connection
	ErrSessionNotOpen = errors.New("session is not connected")
	// ErrRetryBudgetExhausted is returned when a session ran out of reconnect attempts
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
	// ErrPairingTimeout is returned when no pairing code was scanned within the timeout
	ErrPairingTimeout = errors.New("pairing timed out")
	// ErrArtifactNotAvailable is returned when no pairing code is currently pending
	ErrArtifactNotAvailable = errors.New("pairing code not available")
	// ErrShuttingDown is returned when the orchestrator no longer accepts starts
	ErrShuttingDown = errors.New("gateway is shutting down")
)
