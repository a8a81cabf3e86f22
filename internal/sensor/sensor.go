// internal/sensor/sensor.go
package sensor

import (
	"fmt"

	"github.com/tamzrod/sunhome-poller/internal/registers"
	"github.com/tamzrod/sunhome-poller/internal/status"
)

// UniquePrefix is prepended to the register address to form a sensor id.
const UniquePrefix = "esy_sunhome_"

// Reader is the read side of the snapshot store.
type Reader interface {
	Get() status.View
}

// Sensor is one named value plus unit, backed by the latest snapshot.
// Sensors never poll; they read whatever the store holds.
type Sensor struct {
	UniqueID string            `json:"unique_id"`
	Name     string            `json:"name"`
	Unit     string            `json:"unit,omitempty"`
	Address  registers.Address `json:"address"`

	reader Reader
}

// UniqueID returns the stable id for a register address.
func UniqueID(addr registers.Address) string {
	return fmt.Sprintf("%s%d", UniquePrefix, addr)
}

// New binds one register spec to a reader.
func New(spec registers.Spec, r Reader) Sensor {
	return Sensor{
		UniqueID: UniqueID(spec.Address),
		Name:     spec.Name,
		Unit:     spec.Unit,
		Address:  spec.Address,
		reader:   r,
	}
}

// BuildAll creates one sensor per table entry, in address order.
// The result depends only on the table, so repeated setups yield equal sets.
func BuildAll(t *registers.Table, r Reader) []Sensor {
	specs := t.Specs()
	out := make([]Sensor, 0, len(specs))
	for _, s := range specs {
		out = append(out, New(s, r))
	}
	return out
}

// Value returns the current decoded value: a float64 or an enum label.
// Reports false when no snapshot holds this address.
func (s Sensor) Value() (any, bool) {
	if s.reader == nil {
		return nil, false
	}
	v, ok := lookup(s.reader.Get(), s.Address)
	if !ok {
		return nil, false
	}
	return v.Any(), true
}

// Available reports whether the sensor currently has a fresh value.
// A stale snapshot is still served but marks the sensor unavailable.
func (s Sensor) Available() bool {
	if s.reader == nil {
		return false
	}
	v := s.reader.Get()
	if v.Health != status.HealthOK {
		return false
	}
	_, ok := lookup(v, s.Address)
	return ok
}

// State is a point-in-time reading of a sensor, for serialization.
type State struct {
	Sensor
	Value     any  `json:"value"`
	Available bool `json:"available"`
}

// Read captures the sensor state from a single store read.
func (s Sensor) Read() State {
	st := State{Sensor: s}
	if s.reader == nil {
		return st
	}
	v := s.reader.Get()
	if val, ok := lookup(v, s.Address); ok {
		st.Value = val.Any()
		st.Available = v.Health == status.HealthOK
	}
	return st
}

func lookup(v status.View, addr registers.Address) (registers.Value, bool) {
	if v.Snapshot == nil {
		return registers.Value{}, false
	}
	val, ok := v.Snapshot.Values[addr]
	return val, ok
}
