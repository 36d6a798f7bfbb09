package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestID correlates one probe with the request it produced.
type RequestID = uuid.UUID

// NewRequestID returns a fresh random (version 4) request identifier.
func NewRequestID() RequestID {
	return uuid.New()
}

// Kind classifies the outcome of a single dispatched probe.
type Kind int

const (
	// Success is any completed HTTP exchange, whatever the status code.
	Success Kind = iota
	// ConnectionFailure means no connection to the endpoint could be established.
	ConnectionFailure
	// OtherFailure is any other exchange-level error (timeout, malformed response).
	OtherFailure
	// UnrecognizedFailure ends the probing run.
	UnrecognizedFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ConnectionFailure:
		return "connection_failure"
	case OtherFailure:
		return "other_failure"
	case UnrecognizedFailure:
		return "unrecognized_failure"
	default:
		return "unknown"
	}
}

// Probe is one unit of work created by a tick.
type Probe struct {
	ID       RequestID
	TickedAt time.Time
}

// Result stores the outcome of a single dispatched probe.
type Result struct {
	ProbeID    RequestID
	StartedAt  time.Time
	Latency    time.Duration
	StatusCode int   // Zero when no response was received
	Err        error // Nil on a completed exchange
}
