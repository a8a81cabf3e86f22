// internal/api/websocket/messages.go
package websocket

import (
	"time"

	"github.com/tamzrod/sunhome-poller/internal/status"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Sent once, right after the upgrade
	MessageTypeSnapshot MessageType = "snapshot"

	// Store events
	MessageTypeSnapshotPublished MessageType = "snapshot_published"
	MessageTypePollFailed        MessageType = "poll_failed"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewEventMessage maps a store event onto its message type.
func NewEventMessage(kind status.EventKind, doc status.Document) Message {
	msgType := MessageTypeSnapshotPublished
	if kind == status.EventFailed {
		msgType = MessageTypePollFailed
	}
	return NewMessage(msgType, doc)
}
