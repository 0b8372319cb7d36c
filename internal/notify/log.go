package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes notifications to the global zerolog logger. Errors are
// logged at warn level, everything else at info.
type LogSink struct {
	Component string
}

func (s LogSink) Notify(_ context.Context, n Notification) {
	var ev *zerolog.Event
	if n.Level == LevelError {
		ev = log.Warn()
	} else {
		ev = log.Info()
	}
	ev.Str("component", s.Component).Str("level", string(n.Level)).Msg(n.Message)
}
