// internal/poller/modbus/client_test.go
package modbus

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// fakeSlave answers read-input-registers requests on a local listener.
// When exception is non-zero every request gets that exception code.
type fakeSlave struct {
	ln        net.Listener
	regs      []uint16
	exception byte
	lastUnit  chan byte
}

func startFakeSlave(t *testing.T, regs []uint16, exception byte) *fakeSlave {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSlave{ln: ln, regs: regs, exception: exception, lastUnit: make(chan byte, 16)}
	t.Cleanup(func() { _ = ln.Close() })

	go s.serve()
	return s
}

func (s *fakeSlave) addr() string { return s.ln.Addr().String() }

func (s *fakeSlave) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSlave) handle(conn net.Conn) {
	defer conn.Close()

	req := make([]byte, 12) // MBAP(7) + FC(1) + addr(2) + qty(2)
	for {
		if _, err := io.ReadFull(conn, req); err != nil {
			return
		}

		tid := binary.BigEndian.Uint16(req[0:2])
		unit := req[6]
		fc := req[7]
		addr := binary.BigEndian.Uint16(req[8:10])
		qty := binary.BigEndian.Uint16(req[10:12])

		select {
		case s.lastUnit <- unit:
		default:
		}

		var pdu []byte
		if s.exception != 0 {
			pdu = []byte{fc | 0x80, s.exception}
		} else {
			pdu = []byte{fc, byte(qty * 2)}
			for i := uint16(0); i < qty; i++ {
				var w uint16
				if int(addr+i) < len(s.regs) {
					w = s.regs[addr+i]
				}
				pdu = append(pdu, byte(w>>8), byte(w))
			}
		}

		resp := make([]byte, 7, 7+len(pdu))
		binary.BigEndian.PutUint16(resp[0:2], tid)
		binary.BigEndian.PutUint16(resp[2:4], 0)
		binary.BigEndian.PutUint16(resp[4:6], uint16(len(pdu)+1))
		resp[6] = unit
		resp = append(resp, pdu...)

		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func TestClient_ReadInputRegisters(t *testing.T) {
	s := startFakeSlave(t, []uint16{0, 100, 0x8000, 50}, 0)

	c, err := New(Config{Endpoint: s.addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	defer c.Close()

	regs, err := c.ReadInputRegisters(7, 1, 3)
	if err != nil {
		t.Fatalf("read err=%v", err)
	}

	want := []uint16{100, 0x8000, 50}
	if len(regs) != len(want) {
		t.Fatalf("expected %d registers, got %d", len(want), len(regs))
	}
	for i := range want {
		if regs[i] != want[i] {
			t.Fatalf("reg %d: got=%d want=%d", i, regs[i], want[i])
		}
	}

	if unit := <-s.lastUnit; unit != 7 {
		t.Fatalf("slave id on wire: got=%d want=7", unit)
	}
}

func TestClient_ExceptionResponse(t *testing.T) {
	s := startFakeSlave(t, nil, 2)

	c, err := New(Config{Endpoint: s.addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	defer c.Close()

	_, err = c.ReadInputRegisters(1, 0, 4)
	var ex *ExceptionError
	if !errors.As(err, &ex) {
		t.Fatalf("expected ExceptionError, got %v", err)
	}
	if ex.ExceptionCode() != 2 {
		t.Fatalf("exception code: got=%d want=2", ex.ExceptionCode())
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	s := startFakeSlave(t, nil, 0)

	c, err := New(Config{Endpoint: s.addr(), Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first close err=%v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close err=%v", err)
	}

	if _, err := c.ReadInputRegisters(1, 0, 1); err == nil {
		t.Fatalf("expected error reading from closed client")
	}
}

func TestNew_Failures(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	if _, err := New(Config{Endpoint: addr, Timeout: 200 * time.Millisecond}); err == nil {
		t.Fatalf("expected connect error for closed port")
	}
}

func TestUnpackRegisters(t *testing.T) {
	got := unpackRegisters([]byte{0x01, 0x02, 0xFF, 0xFE})
	if len(got) != 2 || got[0] != 0x0102 || got[1] != 0xFFFE {
		t.Fatalf("unexpected unpack: %v", got)
	}
}
