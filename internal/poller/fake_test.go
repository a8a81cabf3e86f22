// internal/poller/fake_test.go
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// fakeDevice hands out connections and logs every wire operation in order.
type fakeDevice struct {
	mu      sync.Mutex
	dialErr  error
	readErr  error
	closeErr error
	words   func(qty uint16) []uint16
	events  []string

	inflight   atomic.Int32
	overlapped atomic.Bool

	// when hold is set, reads signal entered and block until hold is closed
	hold    chan struct{}
	entered chan struct{}

	// same for dials
	dialHold    chan struct{}
	dialEntered chan struct{}
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		words:       func(qty uint16) []uint16 { return make([]uint16, qty) },
		entered:     make(chan struct{}, 1),
		dialEntered: make(chan struct{}, 1),
	}
}

func (d *fakeDevice) dial() (Conn, error) {
	d.mu.Lock()
	hold := d.dialHold
	d.mu.Unlock()
	if hold != nil {
		select {
		case d.dialEntered <- struct{}{}:
		default:
		}
		<-hold
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, "dial")
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return &fakeConn{dev: d}, nil
}

func (d *fakeDevice) set(fn func(d *fakeDevice)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d)
}

func (d *fakeDevice) log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

func (d *fakeDevice) count(ev string) int {
	n := 0
	for _, e := range d.log() {
		if e == ev {
			n++
		}
	}
	return n
}

type fakeConn struct {
	dev *fakeDevice
}

func (c *fakeConn) ReadInputRegisters(slaveID uint8, addr, qty uint16) ([]uint16, error) {
	d := c.dev
	if d.inflight.Add(1) > 1 {
		d.overlapped.Store(true)
	}
	defer d.inflight.Add(-1)

	d.mu.Lock()
	hold := d.hold
	d.mu.Unlock()
	if hold != nil {
		select {
		case d.entered <- struct{}{}:
		default:
		}
		<-hold
	}

	d.mu.Lock()
	d.events = append(d.events, "read")
	err, words := d.readErr, d.words
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return words(qty), nil
}

func (c *fakeConn) Close() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	c.dev.events = append(c.dev.events, "close")
	return c.dev.closeErr
}

type fakeException struct{ code byte }

func (e fakeException) Error() string       { return "modbus exception" }
func (e fakeException) ExceptionCode() byte { return e.code }

// fakeRecorder counts Recorder callbacks.
type fakeRecorder struct {
	mu         sync.Mutex
	results    map[string]int
	reconnects map[bool]int
	published  []uint64
	linkUp     bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{results: map[string]int{}, reconnects: map[bool]int{}}
}

func (r *fakeRecorder) PollDone(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

func (r *fakeRecorder) Reconnect(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconnects[ok]++
}

func (r *fakeRecorder) LinkUp(up bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linkUp = up
}

func (r *fakeRecorder) Published(gen uint64, _ registers.Values) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, gen)
}

func (r *fakeRecorder) result(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[name]
}

func testTable(t *testing.T) *registers.Table {
	t.Helper()
	tbl, err := registers.NewTable([]registers.Spec{
		{Address: 3, Name: "Grid Power", Unit: "W", Scale: 1, Signed: true},
		{Address: 4, Name: "Grid AC Volts", Unit: "V", Scale: 0.1},
	})
	require.NoError(t, err)
	return tbl
}

func newTestLink(d *fakeDevice) *Link {
	l := NewLink(d.dial, time.Second, nil)
	l.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return l
}

func newTestPoller(t *testing.T, d *fakeDevice, opts ...Option) *Poller {
	t.Helper()
	p, err := New(Config{
		DeviceID: "test",
		SlaveID:  1,
		Start:    1,
		Count:    3,
		Interval: 10 * time.Millisecond,
	}, newTestLink(d), testTable(t), status.NewStore(), nil, opts...)
	require.NoError(t, err)
	return p
}
