// internal/poller/link.go
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Conn is one open Modbus connection.
// Only read-input-registers is needed.
type Conn interface {
	ReadInputRegisters(slaveID uint8, addr, qty uint16) ([]uint16, error)
	Close() error
}

// Dialer opens a connection. ONE attempt per call.
type Dialer func() (Conn, error)

// Link owns the connection lifecycle to one slave.
// Reads are issued by one poll at a time; state is readable from any goroutine.
type Link struct {
	dial    Dialer
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *zap.Logger

	mu      sync.RWMutex
	conn    Conn
	state   LinkState
	lastErr string
	closed  bool
}

// NewLink creates a disconnected link. Nothing is dialed until EnsureConnected.
func NewLink(dial Dialer, backoff time.Duration, logger *zap.Logger) *Link {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Link{
		dial:    dial,
		backoff: backoff,
		sleep:   sleepCtx,
		logger:  logger,
		state:   LinkDisconnected,
	}
}

// State returns the current state and the last error text.
func (l *Link) State() (LinkState, string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.lastErr
}

// Connected reports whether the link believes it holds a usable connection.
func (l *Link) Connected() bool {
	s, _ := l.State()
	return s == LinkConnected
}

// EnsureConnected dials once if not connected. It never loops.
func (l *Link) EnsureConnected() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return &ConnectError{Cause: ErrLinkClosed}
	}
	if l.conn != nil && l.state == LinkConnected {
		l.mu.Unlock()
		return nil
	}
	stale := l.conn
	l.conn = nil
	l.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}

	conn, err := l.dial()
	if err != nil {
		l.fail(err)
		return &ConnectError{Cause: err}
	}

	if err := l.install(conn); err != nil {
		return &ConnectError{Cause: err}
	}
	l.logger.Info("Modbus link connected")
	return nil
}

// ReadInputRegisters issues one blocking read on the current connection.
// Any failure (transport or exception response) is a ReadError and drops the link to Disconnected.
func (l *Link) ReadInputRegisters(slaveID uint8, addr, qty uint16) ([]uint16, error) {
	l.mu.RLock()
	conn := l.conn
	l.mu.RUnlock()

	if conn == nil {
		return nil, &ReadError{Cause: errNotConnected}
	}

	words, err := conn.ReadInputRegisters(slaveID, addr, qty)
	if err != nil {
		l.mu.Lock()
		l.state = LinkDisconnected
		l.lastErr = err.Error()
		l.mu.Unlock()
		return nil, &ReadError{Cause: err}
	}

	return words, nil
}

// ForceReconnect closes the connection (idempotent), waits the backoff, then dials once.
// Close failures are logged and absorbed. A failed dial leaves the link Disconnected.
func (l *Link) ForceReconnect(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return &ReconnectError{Cause: ErrLinkClosed}
	}
	conn := l.conn
	l.conn = nil
	l.state = LinkReconnecting
	l.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			l.logger.Warn("Modbus close failed during reconnect", zap.Error(err))
		}
	}

	if err := l.sleep(ctx, l.backoff); err != nil {
		l.fail(err)
		return &ReconnectError{Cause: err}
	}

	next, err := l.dial()
	if err != nil {
		l.fail(err)
		l.logger.Error("Modbus reconnect failed", zap.Error(err))
		return &ReconnectError{Cause: err}
	}

	if err := l.install(next); err != nil {
		return &ReconnectError{Cause: err}
	}
	l.logger.Info("Modbus link reconnected")
	return nil
}

// Close tears the connection down for good. A dial still in flight is
// closed as soon as it returns. Safe to call repeatedly.
func (l *Link) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.state = LinkDisconnected
	l.closed = true
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// install makes conn current unless the link was closed meanwhile.
func (l *Link) install(conn Conn) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		if err := conn.Close(); err != nil {
			l.logger.Warn("Modbus close failed after link close", zap.Error(err))
		}
		return ErrLinkClosed
	}
	l.state = LinkConnected
	l.conn = conn
	l.lastErr = ""
	l.mu.Unlock()
	return nil
}

func (l *Link) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = LinkDisconnected
	l.conn = nil
	l.lastErr = err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
