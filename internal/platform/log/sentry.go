package log

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrylogrus "github.com/getsentry/sentry-go/logrus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const defaultFlushTimeout = 2 * time.Second

// SentrySettings represents the configuration required to bootstrap Sentry.
// Entries at ForwardLevel or more severe are sent as events; the zero value
// forwards errors and above.
type SentrySettings struct {
	DSN          string
	Environment  string
	Release      string
	ForwardLevel logrus.Level
	FlushTimeout time.Duration
}

// InitSentry connects Sentry to the provided logger. Without a DSN it returns a
// nil hub and a no-op flush.
func InitSentry(logger *logrus.Logger, settings SentrySettings) (*sentry.Hub, func(), error) {
	if settings.DSN == "" {
		return nil, func() {}, nil
	}
	if logger == nil {
		return nil, nil, eris.New("logger is required for sentry")
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          settings.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "error initializing sentry client")
	}

	scope := sentry.NewScope()
	scope.SetTag("service", "announcements")
	hub := sentry.NewHub(client, scope)

	logger.AddHook(sentrylogrus.NewLogHookFromClient(forwardedLevels(settings.ForwardLevel), client))

	timeout := settings.FlushTimeout
	if timeout <= 0 {
		timeout = defaultFlushTimeout
	}

	return hub, func() { hub.Flush(timeout) }, nil
}

// forwardedLevels lists min and every more severe level. logrus orders levels
// from PanicLevel (0) upwards, so anything above ErrorLevel is clamped to it.
func forwardedLevels(min logrus.Level) []logrus.Level {
	if min == logrus.PanicLevel || min > logrus.ErrorLevel {
		min = logrus.ErrorLevel
	}

	levels := make([]logrus.Level, 0, int(min)+1)
	for level := logrus.PanicLevel; level <= min; level++ {
		levels = append(levels, level)
	}
	return levels
}
