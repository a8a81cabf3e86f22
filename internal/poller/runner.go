// internal/poller/runner.go
package poller

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Run refreshes once immediately, then ticks every interval until ctx is done.
// One goroutine per device. No overlap.
func (p *Poller) Run(ctx context.Context) {
	p.Tick(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Start launches Run on a dedicated goroutine so a hanging read never stalls the caller.
func (p *Poller) Start(ctx context.Context) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.cancel != nil {
		return errors.New("poller: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(runCtx)
	}(p.done)

	p.logger.Info("Poller started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Uint16("register_start", p.cfg.Start),
		zap.Uint16("register_count", p.cfg.Count))

	return nil
}

// Stop cancels the timer, waits up to timeout for the cycle in flight, then closes the link.
// A cycle still running after timeout is abandoned; its read is bounded by the transport timeout,
// it publishes nothing, and a connection it dials afterwards is closed at once.
// The link stays closed: a stopped poller is not restarted.
func (p *Poller) Stop(timeout time.Duration) error {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	var stopErr error

	if cancel != nil {
		cancel()

		wait := time.NewTimer(timeout)
		defer wait.Stop()

		select {
		case <-done:
		case <-wait.C:
			stopErr = errors.New("poller: in-flight poll abandoned after shutdown timeout")
			p.logger.Warn("Poll still running at shutdown, abandoning", zap.Duration("timeout", timeout))
		}
	}

	if err := p.link.Close(); err != nil {
		p.logger.Warn("Modbus close failed", zap.Error(err))
	}

	p.logger.Info("Poller stopped")
	return stopErr
}
