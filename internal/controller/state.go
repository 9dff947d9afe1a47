// Package controller holds the per-screen state machines of sheetdesk.
//
// Every controller moves through idle → loading → success|error and keeps
// a success message next to the data that the user can dismiss on its
// own. Methods block on the network; front-ends call them from their own
// goroutines and read state back through the getters, which are safe for
// concurrent use.
//
// Each kind of load carries a monotonic sequence number. A response that
// arrives after a newer request was issued is dropped and the method
// returns ErrSuperseded.
package controller

import (
	"errors"
	"sync"

	"github.com/studiowebux/sheetdesk/internal/apierr"
)

// ErrSuperseded is returned when a response was discarded because a newer
// request of the same kind had been issued.
var ErrSuperseded = errors.New("superseded by a newer request")

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Connection is the last known reachability of the backend.
type Connection int

const (
	ConnectionUnknown Connection = iota
	ConnectionUp
	ConnectionDown
)

func (c Connection) String() string {
	switch c {
	case ConnectionUp:
		return "connected"
	case ConnectionDown:
		return "disconnected"
	default:
		return "unknown"
	}
}

// connectionAfter is the connection implied by a call outcome. Any reply,
// including an HTTP error or an unreadable body, proves the backend is up.
func connectionAfter(err error) Connection {
	if err != nil && apierr.Classify(err, "").Category == apierr.CategoryConnectivity {
		return ConnectionDown
	}
	return ConnectionUp
}

// state is embedded by every controller. mu also guards the embedding
// controller's own fields.
type state struct {
	mu     sync.RWMutex
	status Status
	errMsg string
	okMsg  string
}

func (s *state) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *state) Loading() bool {
	return s.Status() == StatusLoading
}

// ErrorMessage returns the message of the last failure, if any.
func (s *state) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *state) SuccessMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.okMsg
}

func (s *state) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	if s.status == StatusError {
		s.status = StatusIdle
	}
}

func (s *state) ClearSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.okMsg = ""
}

// The helpers below expect mu to be held.

func (s *state) startLocked() {
	s.status = StatusLoading
	s.errMsg = ""
}

func (s *state) failLocked(msg string) {
	s.status = StatusError
	s.errMsg = msg
}

func (s *state) doneLocked(okMsg string) {
	s.status = StatusSuccess
	if okMsg != "" {
		s.okMsg = okMsg
	}
}

func (s *state) resetLocked() {
	s.status = StatusIdle
	s.errMsg = ""
}

// sequence numbers requests of one kind. Guarded by the controller mutex.
type sequence uint64

func (q *sequence) next() uint64 {
	*q++
	return uint64(*q)
}

func (q *sequence) current(token uint64) bool {
	return uint64(*q) == token
}
