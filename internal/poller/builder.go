// internal/poller/builder.go
package poller

import (
	"go.uber.org/zap"

	cfg "github.com/tamzrod/sunhome-poller/internal/config"
	pmodbus "github.com/tamzrod/sunhome-poller/internal/poller/modbus"
	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// Build constructs a Poller and wires the Modbus connection lifecycle.
// Nothing is dialed here: the first refresh connects, and a dead device
// at startup is just a failing poll, not a fatal error.
func Build(c *cfg.Config, table *registers.Table, store *status.Store, logger *zap.Logger, opts ...Option) (*Poller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	devLogger := logger.With(zap.String("device", c.Device.ID))

	// connection factory: ONE attempt per call
	dial := func() (Conn, error) {
		cl, err := pmodbus.New(pmodbus.Config{
			Endpoint: c.Device.Endpoint(),
			Timeout:  c.Device.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return cl, nil
	}

	link := NewLink(dial, c.Poll.ReconnectBackoff, devLogger)

	return New(
		Config{
			DeviceID: c.Device.ID,
			SlaveID:  uint8(c.Device.SlaveID),
			Start:    uint16(c.Device.RegisterStart),
			Count:    uint16(c.Device.RegisterCount),
			Interval: c.Poll.Interval,
		},
		link,
		table,
		store,
		logger,
		opts...,
	)
}
