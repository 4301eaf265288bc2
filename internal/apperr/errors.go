// Package apperr defines the error taxonomy for the data-access core.
//
// Three failure families exist: the network path is down
// (ConnectivityError), the server is reachable but answered with an error
// status (ProtocolError), or the local store failed (PersistenceError).
// A local lookup miss is none of these; it is a valid absent value and is
// returned as (nil, nil) by the stores.
//
// Errors are matched with errors.As through arbitrary fmt.Errorf wrapping,
// so callers classify without string inspection.
package apperr

import (
	"errors"
	"strconv"
)

// ConnectivityError means the remote endpoint could not be reached at all:
// DNS failure, refused connection, or a timed-out request.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	if e.Err != nil {
		return e.Op + ": network unavailable: " + e.Err.Error()
	}
	return e.Op + ": network unavailable"
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NewConnectivity wraps a transport-layer failure for the given operation.
func NewConnectivity(op string, err error) *ConnectivityError {
	return &ConnectivityError{Op: op, Err: err}
}

// ProtocolError means the server responded with a non-2xx status.
// Body carries the response payload, truncated by the client.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return "remote returned status " + strconv.Itoa(e.StatusCode)
	}
	return "remote returned status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

// NewProtocol records a non-2xx response.
func NewProtocol(statusCode int, body string) *ProtocolError {
	return &ProtocolError{StatusCode: statusCode, Body: body}
}

// PersistenceError means a local store read or write failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + ": persistence failure"
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistence wraps a local store failure for the given operation.
func NewPersistence(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

// IsConnectivity reports whether err wraps a ConnectivityError.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsProtocol reports whether err wraps a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsRemote reports whether err is either remote failure family. The
// repository uses this to decide the cache-fallback path: both families
// degrade the same way.
func IsRemote(err error) bool {
	return IsConnectivity(err) || IsProtocol(err)
}

// IsPersistence reports whether err wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
