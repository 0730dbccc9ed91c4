package qm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/config"
	"github.com/emailorg/mvmail/internal/record"
)

// Wire verbs of the socket protocol. Every request is a single frame of
// field-mark separated tokens, verb first.
const (
	verbExecute = "EXECUTE"
	verbRead    = "READ"
	verbWrite   = "WRITE"
	verbDelete  = "DELETE"
	verbSelect  = "SELECT"
	verbLogout  = "LOGOUT"
)

const (
	// framingToken in the login OK line switches responses to explicit
	// length-prefixed framing.
	framingToken = "FRAMING=LEN"
	// lenHeaderSize is the width of the ASCII decimal length header.
	lenHeaderSize = 10
	// readChunkSize matches the server's write granularity; the legacy
	// framing heuristic depends on it.
	readChunkSize = 4096

	transportSocket = "socket"
)

// SocketTransport is a persistent authenticated session over the server's
// native TCP protocol. Responses use the legacy heuristic (read until a
// chunk ends in NUL or comes up short) unless the server advertised
// FRAMING=LEN at login, in which case every response carries a ten-digit
// length header. Not safe for concurrent use: the protocol is a single
// request/response conversation per connection.
type SocketTransport struct {
	username  string
	password  string
	account   string
	ioTimeout time.Duration
	logger    zerolog.Logger

	conn      net.Conn
	lenFramed bool
}

// DialSocket connects and authenticates. The login frame carries username,
// password and account; anything but an OK response fails the dial.
func DialSocket(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*SocketTransport, error) {
	dialer := &net.Dialer{
		Timeout: cfg.DialTimeout,
	}

	addr := net.JoinHostPort(cfg.ServerHost, strconv.Itoa(cfg.ServerPort))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	t := &SocketTransport{
		username:  cfg.Username,
		password:  cfg.Password,
		account:   cfg.Account,
		ioTimeout: cfg.RequestTimeout,
		logger:    logger,
		conn:      conn,
	}

	if err := t.login(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return t, nil
}

func (t *SocketTransport) login(ctx context.Context) error {
	t.setDeadline(ctx)

	frame := t.username + record.FieldMark + t.password + record.FieldMark + t.account
	if _, err := t.conn.Write([]byte(frame)); err != nil {
		return fmt.Errorf("failed to send login: %w", err)
	}

	buf := make([]byte, 1024)
	n, err := t.conn.Read(buf)
	if err != nil && n == 0 {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	resp := strings.TrimRight(string(buf[:n]), "\x00")
	if !strings.HasPrefix(resp, "OK") {
		return &ServerError{Op: "login", Response: resp}
	}

	t.lenFramed = strings.Contains(resp, framingToken)
	t.logger.Debug().
		Str("account", t.account).
		Bool("length_framed", t.lenFramed).
		Msg("logged in to database server")

	return nil
}

// Execute runs a server command and returns its raw output, including any
// ERROR text the command printed.
func (t *SocketTransport) Execute(ctx context.Context, command string) (string, error) {
	resp, err := t.roundTrip(ctx, verbExecute, command)
	observe(transportSocket, "execute", err)
	return resp, err
}

func (t *SocketTransport) ReadRecord(ctx context.Context, file, id string) (string, error) {
	resp, err := t.roundTrip(ctx, verbRead, file, id)
	if err == nil && strings.HasPrefix(resp, "ERROR") {
		resp, err = "", ErrNotFound
	}
	observe(transportSocket, "read", err)
	return resp, err
}

func (t *SocketTransport) WriteRecord(ctx context.Context, file, id, data string) error {
	resp, err := t.roundTrip(ctx, verbWrite, file, id, data)
	if err == nil && !strings.HasPrefix(resp, "OK") {
		err = &ServerError{Op: "write", Response: resp}
	}
	observe(transportSocket, "write", err)
	return err
}

func (t *SocketTransport) DeleteRecord(ctx context.Context, file, id string) error {
	resp, err := t.roundTrip(ctx, verbDelete, file, id)
	if err == nil && !strings.HasPrefix(resp, "OK") {
		err = &ServerError{Op: "delete", Response: resp}
	}
	observe(transportSocket, "delete", err)
	return err
}

func (t *SocketTransport) SelectIDs(ctx context.Context, file, query string) ([]string, error) {
	args := []string{file}
	if query != "" {
		args = append(args, query)
	}

	resp, err := t.roundTrip(ctx, verbSelect, args...)
	if err == nil && strings.HasPrefix(resp, "ERROR") {
		err = &ServerError{Op: "select", Response: resp}
	}
	observe(transportSocket, "select", err)
	if err != nil {
		return nil, err
	}

	if resp == "" {
		return []string{}, nil
	}
	return strings.Split(resp, record.ValueMark), nil
}

// Close sends a LOGOUT frame and drops the connection. Farewell errors are
// ignored; the server treats a vanished client the same way.
func (t *SocketTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	_ = t.conn.SetDeadline(time.Now().Add(time.Second))
	_, _ = t.conn.Write([]byte(verbLogout))
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *SocketTransport) roundTrip(ctx context.Context, verb string, args ...string) (string, error) {
	if t.conn == nil {
		return "", fmt.Errorf("transport is closed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.setDeadline(ctx)

	frame := strings.Join(append([]string{verb}, args...), record.FieldMark)
	if _, err := t.conn.Write([]byte(frame)); err != nil {
		return "", fmt.Errorf("failed to send %s: %w", verb, err)
	}

	if t.lenFramed {
		return t.receiveFramed(verb)
	}
	return t.receiveLegacy(verb)
}

// receiveLegacy accumulates chunks until one ends in NUL or comes up short,
// then strips trailing NULs. A response of exactly readChunkSize bytes with
// no trailing NUL would be misread here; length framing exists for servers
// that can negotiate it.
func (t *SocketTransport) receiveLegacy(verb string) (string, error) {
	var data bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		n, err := t.conn.Read(chunk)
		if n > 0 {
			data.Write(chunk[:n])
			if chunk[n-1] == 0 || n < readChunkSize {
				break
			}
		}
		if err != nil {
			// EOF after data is the server closing once done; EOF with
			// nothing read means the connection died under us.
			if errors.Is(err, io.EOF) && data.Len() > 0 {
				break
			}
			return "", fmt.Errorf("failed to read %s response: %w", verb, err)
		}
	}
	return strings.TrimRight(data.String(), "\x00"), nil
}

func (t *SocketTransport) receiveFramed(verb string) (string, error) {
	header := make([]byte, lenHeaderSize)
	if _, err := io.ReadFull(t.conn, header); err != nil {
		return "", fmt.Errorf("failed to read %s length header: %w", verb, err)
	}

	size, err := strconv.Atoi(string(header))
	if err != nil || size < 0 {
		return "", &ProtocolError{Op: verb, Detail: fmt.Sprintf("bad length header %q", header)}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(t.conn, payload); err != nil {
		return "", fmt.Errorf("failed to read %s payload: %w", verb, err)
	}
	return string(payload), nil
}

// setDeadline covers the next round trip with the shorter of the transport
// timeout and the context deadline.
func (t *SocketTransport) setDeadline(ctx context.Context) {
	var dl time.Time
	if t.ioTimeout > 0 {
		dl = time.Now().Add(t.ioTimeout)
	}
	if ctxDl, ok := ctx.Deadline(); ok && (dl.IsZero() || ctxDl.Before(dl)) {
		dl = ctxDl
	}
	_ = t.conn.SetDeadline(dl)
}
