// internal/poller/types.go
package poller

import (
	"errors"
	"fmt"
)

// LinkState is the connection state owned by the Link.
type LinkState uint8

const (
	LinkDisconnected LinkState = iota
	LinkConnected
	LinkReconnecting
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnected:
		return "connected"
	case LinkReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Poll results, as reported to the Recorder.
const (
	ResultOK           = "ok"
	ResultConnectError = "connect_error"
	ResultReadError    = "read_error"
	ResultDecodeError  = "decode_error"
	ResultSkipped      = "skipped"
)

// Error codes surfaced as last_error_code.
const (
	CodeGeneric   uint16 = 1
	CodeConnect   uint16 = 2
	CodeRead      uint16 = 3
	CodeDecode    uint16 = 4
	CodeReconnect uint16 = 5

	// CodeException is OR-ed with the Modbus exception code.
	CodeException uint16 = 0x100
)

var errNotConnected = errors.New("poller: not connected")

// ErrLinkClosed is returned once the link has been closed.
var ErrLinkClosed = errors.New("poller: link closed")

// ---- error taxonomy ----

// ConnectError is a failed connect attempt. Retried on the next tick.
type ConnectError struct{ Cause error }

func (e *ConnectError) Error() string { return fmt.Sprintf("connect: %v", e.Cause) }
func (e *ConnectError) Unwrap() error { return e.Cause }
func (e *ConnectError) Code() uint16  { return CodeConnect }

// ReadError is a transport or protocol failure during a read.
type ReadError struct{ Cause error }

func (e *ReadError) Error() string { return fmt.Sprintf("read input registers: %v", e.Cause) }
func (e *ReadError) Unwrap() error { return e.Cause }

// Code reports CodeException|exception for Modbus exception responses, CodeRead otherwise.
func (e *ReadError) Code() uint16 {
	var ex interface{ ExceptionCode() byte }
	if errors.As(e.Cause, &ex) {
		return CodeException | uint16(ex.ExceptionCode())
	}
	return CodeRead
}

// DecodeError is a malformed raw block. Recovered like a ReadError.
type DecodeError struct{ Cause error }

func (e *DecodeError) Error() string { return fmt.Sprintf("decode: %v", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }
func (e *DecodeError) Code() uint16  { return CodeDecode }

// ReconnectError is a failed forced reconnect. Logged and absorbed.
type ReconnectError struct{ Cause error }

func (e *ReconnectError) Error() string { return fmt.Sprintf("reconnect: %v", e.Cause) }
func (e *ReconnectError) Unwrap() error { return e.Cause }
func (e *ReconnectError) Code() uint16  { return CodeReconnect }
