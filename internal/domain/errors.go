package domain

import "errors"

var (
	// ErrBuild signals bad entity data that prevented building a document.
	// Recovered locally: the entity is skipped and logged, never fatal.
	ErrBuild = errors.New("document build failed")
	// ErrTransport signals a network or engine failure talking to the
	// external search engine. Recovered locally on every sync path.
	ErrTransport = errors.New("search engine transport error")
	// ErrConfig signals missing or invalid engine configuration.
	// Fatal at startup or operator-command time.
	ErrConfig = errors.New("invalid configuration")
	// ErrEngineUnavailable signals that the engine failed its health ping.
	ErrEngineUnavailable = errors.New("search engine unavailable")
	// ErrUnknownKind signals an entity kind with no registered spec.
	ErrUnknownKind = errors.New("unknown entity kind")
)
