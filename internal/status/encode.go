// internal/status/encode.go
package status

import (
	"time"

	"github.com/tamzrod/sunhome-poller/internal/registers"
)

// Document is the consumer-facing form of a View.
type Document struct {
	Generation     uint64     `json:"generation"`
	Timestamp      *time.Time `json:"timestamp,omitempty"`
	Health         string     `json:"health"`
	HealthCode     uint16     `json:"health_code"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorCode  uint16     `json:"last_error_code"`
	FailingSince   *time.Time `json:"failing_since,omitempty"`
	SecondsInError uint16     `json:"seconds_in_error"`
	Values         []Reading  `json:"values"`
}

// Reading is one named register value.
type Reading struct {
	Address registers.Address `json:"address"`
	Name    string            `json:"name"`
	Unit    string            `json:"unit,omitempty"`
	Value   registers.Value   `json:"value"`
}

// Encode converts a View into a Document.
// Only addresses known to the table are included, in address order.
// No IO. No side effects.
func Encode(v View, t *registers.Table, now time.Time) Document {
	d := Document{
		Health:     HealthName(v.Health),
		HealthCode: v.Health,
		Values:     []Reading{},
	}

	if v.Snapshot != nil {
		ts := v.Snapshot.Timestamp
		d.Generation = v.Snapshot.Generation
		d.Timestamp = &ts

		for _, spec := range t.Specs() {
			val, ok := v.Snapshot.Values[spec.Address]
			if !ok {
				continue
			}
			d.Values = append(d.Values, Reading{
				Address: spec.Address,
				Name:    spec.Name,
				Unit:    spec.Unit,
				Value:   val,
			})
		}
	}

	if f := v.Failure; f != nil {
		since := f.Since
		d.LastError = f.Reason
		d.LastErrorCode = f.Code
		d.FailingSince = &since
		d.SecondsInError = secondsInError(f.Since, now)
	}

	return d
}

// secondsInError saturates at MaxSecondsInError. It never wraps.
func secondsInError(since, now time.Time) uint16 {
	secs := now.Sub(since) / time.Second
	if secs < 0 {
		return 0
	}
	if secs > MaxSecondsInError {
		return MaxSecondsInError
	}
	return uint16(secs)
}
