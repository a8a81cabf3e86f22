// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// Recorder observes poll outcomes. Implemented by the metrics package.
type Recorder interface {
	PollDone(result string, took time.Duration)
	Reconnect(ok bool)
	LinkUp(up bool)
	Published(generation uint64, mapped registers.Values)
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	DeviceID string
	SlaveID  uint8
	Start    uint16
	Count    uint16
	Interval time.Duration
}

// Poller is the clock-driven coordinator for one device.
// It is the only writer of the link and the store.
type Poller struct {
	cfg    Config
	link   *Link
	table  *registers.Table
	store  *status.Store
	rec    Recorder
	logger *zap.Logger
	now    func() time.Time

	// held for the whole of one poll cycle
	busy sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Poller.
type Option func(*Poller)

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Poller) {
		if r != nil {
			p.rec = r
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// New creates a poller with immutable config.
func New(cfg Config, link *Link, table *registers.Table, store *status.Store, logger *zap.Logger, opts ...Option) (*Poller, error) {
	if cfg.DeviceID == "" {
		return nil, errors.New("poller: device id required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Count == 0 {
		return nil, errors.New("poller: register count must be > 0")
	}
	if link == nil || table == nil || store == nil {
		return nil, errors.New("poller: link, table and store required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		cfg:    cfg,
		link:   link,
		table:  table,
		store:  store,
		rec:    nopRecorder{},
		logger: logger.With(zap.String("device", cfg.DeviceID)),
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Link exposes the link state to read-only consumers.
func (p *Poller) Link() *Link { return p.link }

// Store exposes the snapshot store to read-only consumers.
func (p *Poller) Store() *status.Store { return p.store }

// Tick performs one poll cycle unless one is already in flight.
// Reports whether the cycle ran.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.busy.TryLock() {
		p.logger.Debug("Poll skipped, previous cycle still running")
		p.rec.PollDone(ResultSkipped, 0)
		return false
	}
	defer p.busy.Unlock()

	_ = p.cycle(ctx)
	return true
}

// PollOnce performs exactly one poll cycle, waiting for any cycle in flight.
// All-or-nothing: a failed cycle never replaces the published snapshot.
// The returned error is already recorded in the store.
func (p *Poller) PollOnce(ctx context.Context) error {
	p.busy.Lock()
	defer p.busy.Unlock()

	return p.cycle(ctx)
}

func (p *Poller) cycle(ctx context.Context) (err error) {
	started := p.now()

	// nothing crosses the tick boundary
	defer func() {
		if r := recover(); r != nil {
			// the connection may be mid-transaction: recover like a read error
			err = &ReadError{Cause: fmt.Errorf("panic in poll cycle: %v", r)}
			p.logger.Error("Poll cycle panicked, reconnecting", zap.Any("panic", r))
			p.fail(ctx, err, ResultReadError, started)
		}
		p.rec.LinkUp(p.link.Connected())
	}()

	// 1. connect if needed
	if !p.link.Connected() {
		err := p.link.EnsureConnected()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			p.logger.Warn("Modbus connect failed", zap.Error(err))
			p.store.RecordFailure(err, p.now())
			p.rec.PollDone(ResultConnectError, p.now().Sub(started))
			return err
		}
	}

	// 2. one bounded read
	words, err := p.link.ReadInputRegisters(p.cfg.SlaveID, p.cfg.Start, p.cfg.Count)
	// stopped while the read was in flight: nothing may be published after teardown
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		p.logger.Warn("Modbus read failed, reconnecting", zap.Error(err))
		p.fail(ctx, err, ResultReadError, started)
		return err
	}

	// 3. decode, then publish the whole snapshot
	values, derr := registers.Decode(registers.Block{
		Start: p.cfg.Start,
		Count: p.cfg.Count,
		Words: words,
	}, p.table)
	if derr != nil {
		err := &DecodeError{Cause: derr}
		p.logger.Warn("Register block rejected, reconnecting", zap.Error(err))
		p.fail(ctx, err, ResultDecodeError, started)
		return err
	}

	snap := p.store.Publish(values, p.now())
	p.rec.Published(snap.Generation, values.Mapped(p.table))
	p.rec.PollDone(ResultOK, p.now().Sub(started))

	p.logger.Debug("Snapshot published",
		zap.Uint64("generation", snap.Generation),
		zap.Int("registers", len(values)))

	return nil
}

// fail records the failure, then resets the link for the next cycle.
func (p *Poller) fail(ctx context.Context, err error, result string, started time.Time) {
	p.store.RecordFailure(err, p.now())

	// ReconnectError is logged by the link and absorbed here
	rerr := p.link.ForceReconnect(ctx)
	p.rec.Reconnect(rerr == nil)
	p.rec.PollDone(result, p.now().Sub(started))
}

type nopRecorder struct{}

func (nopRecorder) PollDone(string, time.Duration)     {}
func (nopRecorder) Reconnect(bool)                     {}
func (nopRecorder) LinkUp(bool)                        {}
func (nopRecorder) Published(uint64, registers.Values) {}
