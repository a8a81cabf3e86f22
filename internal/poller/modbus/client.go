// internal/poller/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Client implements poller.Conn using Modbus TCP.
// This adapter is geometry-only: it issues read-input-registers and unpacks raw words.
type Client struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
	closed  bool
}

// Config is minimal transport config.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// ExceptionError is a Modbus exception response from the device.
type ExceptionError struct {
	Function  byte
	Exception byte
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// ExceptionCode returns the raw exception code.
func (e *ExceptionError) ExceptionCode() byte { return e.Exception }

// New creates a connected Modbus TCP client. ONE connect attempt.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("modbus client: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}

	return &Client{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

// Close closes the TCP connection. Closing twice is a no-op.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.handler == nil {
		return nil
	}
	c.closed = true
	return c.handler.Close()
}

// ReadInputRegisters issues function 0x04 against slaveID.
func (c *Client) ReadInputRegisters(slaveID uint8, addr, qty uint16) ([]uint16, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.handler == nil {
		return nil, errors.New("modbus client: not connected")
	}
	if qty == 0 {
		return nil, nil
	}

	c.handler.SlaveId = slaveID

	raw, err := c.client.ReadInputRegisters(addr, qty)
	if err != nil {
		var merr *modbus.ModbusError
		if errors.As(err, &merr) {
			return nil, &ExceptionError{Function: merr.FunctionCode, Exception: merr.ExceptionCode}
		}
		return nil, err
	}

	if len(raw)%2 != 0 {
		return nil, errors.New("modbus: read-registers byte count not even")
	}

	return unpackRegisters(raw), nil
}

// ---- helpers (pure geometry) ----

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
