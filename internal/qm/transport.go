// Package qm speaks the wire protocols of the multi-value database server.
// Two back ends implement the same verb set: a persistent socket session and
// a stateless HTTP/JSON bridging service.
package qm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound reports a read of a record ID the file does not hold.
var ErrNotFound = errors.New("record not found")

// ServerError is a failure the server itself reported: a rejected login, a
// refused write, an ERROR response to a select.
type ServerError struct {
	Op       string
	Response string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected %s: %s", e.Op, e.Response)
}

// ProtocolError reports a malformed exchange: a response that violates the
// negotiated framing or an otherwise unreadable reply.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %s", e.Op, e.Detail)
}

// Transport is the verb-level contract shared by both back ends. Absent
// records surface as ErrNotFound, server rejections as *ServerError and
// framing violations as *ProtocolError; network failures are returned
// wrapped. Implementations never panic on server input.
type Transport interface {
	// Execute runs a server command and returns its raw output.
	Execute(ctx context.Context, command string) (string, error)
	// ReadRecord returns the encoded record stored under id in file.
	ReadRecord(ctx context.Context, file, id string) (string, error)
	// WriteRecord stores data under id in file, creating or replacing it.
	WriteRecord(ctx context.Context, file, id, data string) error
	// DeleteRecord removes id from file.
	DeleteRecord(ctx context.Context, file, id string) error
	// SelectIDs runs a select statement against file and returns the
	// matching record IDs. No matches is an empty slice, not an error.
	SelectIDs(ctx context.Context, file, query string) ([]string, error)
	// Close releases the connection. Safe to call more than once.
	Close() error
}
