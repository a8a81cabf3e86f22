// internal/api/websocket/bridge.go
package websocket

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// Forward drains sub and broadcasts every store event in order.
// Returns when ctx is done or the subscription is closed.
func Forward(ctx context.Context, sub *status.Subscription, h *Hub, t *registers.Table) {
	var dropped uint64
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				h.logger.Debug("Store subscription closed, stopping feed")
				return
			}
			h.Broadcast(NewEventMessage(ev.Kind, status.Encode(ev.View, t, time.Now())))
			if n := sub.Dropped(); n > dropped {
				h.logger.Warn("Store events dropped for live feed", zap.Uint64("dropped", n-dropped))
				dropped = n
			}
		}
	}
}
