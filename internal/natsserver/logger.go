package natsserver

import (
	"fmt"

	"github.com/rs/zerolog"
)

// busLogger routes nats-server log lines into zerolog. Fatal lines are logged
// at error level; shutting the host down is left to the daemon, which sees
// the server stop.
type busLogger struct {
	logger zerolog.Logger
}

func newZerologAdapter(l zerolog.Logger) *busLogger {
	return &busLogger{logger: l.With().Str("component", "bus").Logger()}
}

func (b *busLogger) log(ev *zerolog.Event, format string, v []any) {
	ev.Msg(fmt.Sprintf(format, v...))
}

func (b *busLogger) Noticef(format string, v ...any) { b.log(b.logger.Info(), format, v) }
func (b *busLogger) Warnf(format string, v ...any)   { b.log(b.logger.Warn(), format, v) }
func (b *busLogger) Errorf(format string, v ...any)  { b.log(b.logger.Error(), format, v) }
func (b *busLogger) Debugf(format string, v ...any)  { b.log(b.logger.Debug(), format, v) }
func (b *busLogger) Tracef(format string, v ...any)  { b.log(b.logger.Trace(), format, v) }
func (b *busLogger) Fatalf(format string, v ...any) {
	b.log(b.logger.Error().Bool("fatal", true), format, v)
}
