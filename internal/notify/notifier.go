// Package notify carries short user-facing messages out of the core
// components. Delivery is fire-and-forget: sinks never report back.
package notify

import (
	"context"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a short human-readable message for display.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message}
}

func Error(message string) Notification {
	return Notification{Level: LevelError, Message: message}
}

func Info(message string) Notification {
	return Notification{Level: LevelInfo, Message: message}
}

// Sink accepts notifications. Implementations must not block for long and
// must be safe for concurrent use.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// Func adapts a plain function to a Sink.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Multi delivers every notification to each sink in order. Nil sinks are skipped.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}

// Discard drops every notification.
var Discard Sink = Func(func(context.Context, Notification) {}) //nolint:gochecknoglobals // stateless sink
