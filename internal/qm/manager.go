package qm

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emailorg/mvmail/internal/config"
)

// State describes the manager's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager owns a single transport and connects it lazily: every operation
// first ensures a live connection, making at most one connect attempt, so a
// dead connection costs each call exactly one reconnect and never a retry
// loop. The transport is chosen from the configuration, the web service
// bridge when use_websvc is set and the socket protocol otherwise.
//
// A Manager over the socket transport is a single protocol conversation and
// is not safe for concurrent use; callers serialize access or configure the
// stateless web service transport.
type Manager struct {
	cfg    *config.Config
	logger zerolog.Logger

	dial      func(ctx context.Context) (Transport, error)
	transport Transport
	state     State
}

// NewManager returns a disconnected manager; the first operation connects.
func NewManager(cfg *config.Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		state:  StateDisconnected,
	}
	m.dial = func(ctx context.Context) (Transport, error) {
		if cfg.UseWebSvc {
			return NewServiceTransport(cfg, logger), nil
		}
		return DialSocket(ctx, cfg, logger)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Connect establishes the connection now instead of on first use.
func (m *Manager) Connect(ctx context.Context) error {
	return m.ensureConnected(ctx)
}

func (m *Manager) Execute(ctx context.Context, command string) (string, error) {
	if err := m.ensureConnected(ctx); err != nil {
		return "", err
	}
	resp, err := m.transport.Execute(ctx, command)
	m.noteResult(err)
	return resp, err
}

func (m *Manager) ReadRecord(ctx context.Context, file, id string) (string, error) {
	if err := m.ensureConnected(ctx); err != nil {
		return "", err
	}
	resp, err := m.transport.ReadRecord(ctx, file, id)
	m.noteResult(err)
	return resp, err
}

func (m *Manager) WriteRecord(ctx context.Context, file, id, data string) error {
	if err := m.ensureConnected(ctx); err != nil {
		return err
	}
	err := m.transport.WriteRecord(ctx, file, id, data)
	m.noteResult(err)
	return err
}

func (m *Manager) DeleteRecord(ctx context.Context, file, id string) error {
	if err := m.ensureConnected(ctx); err != nil {
		return err
	}
	err := m.transport.DeleteRecord(ctx, file, id)
	m.noteResult(err)
	return err
}

func (m *Manager) SelectIDs(ctx context.Context, file, query string) ([]string, error) {
	if err := m.ensureConnected(ctx); err != nil {
		return nil, err
	}
	ids, err := m.transport.SelectIDs(ctx, file, query)
	m.noteResult(err)
	return ids, err
}

// Close drops the connection. The manager stays usable; the next operation
// reconnects.
func (m *Manager) Close() error {
	var err error
	if m.transport != nil {
		err = m.transport.Close()
		m.transport = nil
	}
	m.state = StateDisconnected
	return err
}

// ensureConnected makes at most one connect attempt. A failed attempt leaves
// the manager in StateFailed; the next call attempts again.
func (m *Manager) ensureConnected(ctx context.Context) error {
	if m.state == StateConnected && m.transport != nil {
		return nil
	}

	m.state = StateConnecting
	transport, err := m.dial(ctx)
	if err != nil {
		m.state = StateFailed
		m.logger.Error().Err(err).Msg("failed to connect to database server")
		return fmt.Errorf("failed to connect: %w", err)
	}

	m.transport = transport
	m.state = StateConnected
	m.logger.Debug().Str("host", m.cfg.ServerHost).Msg("database connection established")
	return nil
}

// noteResult discards the connection after a failure that leaves the wire in
// an unknown state. Server-level outcomes (a rejected write, a missing
// record) keep the connection: the server answered, the conversation is
// still in sync.
func (m *Manager) noteResult(err error) {
	if !isConnectionFatal(err) {
		return
	}
	m.logger.Warn().Err(err).Msg("connection lost, reconnecting on next call")
	if m.transport != nil {
		_ = m.transport.Close()
		m.transport = nil
	}
	m.state = StateDisconnected
}

func isConnectionFatal(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) {
		return false
	}
	var serverErr *ServerError
	return !errors.As(err, &serverErr)
}
