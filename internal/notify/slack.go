package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

const slackPostTimeout = 5 * time.Second

var levelEmoji = map[Level]string{ //nolint:gochecknoglobals // static lookup
	LevelSuccess: ":white_check_mark:",
	LevelError:   ":x:",
	LevelInfo:    ":information_source:",
}

// SlackSink posts notifications to a Slack incoming webhook. Posting failures
// are logged and dropped.
type SlackSink struct {
	webhookURL string
	channel    string
}

// NewSlackSink returns nil when webhookURL is empty so callers can place the
// result straight into a Multi.
func NewSlackSink(webhookURL, channel string) *SlackSink {
	if webhookURL == "" {
		return nil
	}
	return &SlackSink{webhookURL: webhookURL, channel: channel}
}

func (s *SlackSink) Notify(ctx context.Context, n Notification) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), slackPostTimeout)
	defer cancel()

	msg := &slack.WebhookMessage{
		Channel: s.channel,
		Text:    levelEmoji[n.Level] + " " + n.Message,
	}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		log.Warn().Err(err).Msg("notify.SlackSink: post webhook")
	}
}
