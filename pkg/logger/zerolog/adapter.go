package zerolog

import (
	"fmt"

	"github.com/raykavin/stratfuse/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog.Logger through the logger.Logger interface
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps a zerolog logger
func NewAdapter(l *zerolog.Logger) *Adapter {
	return &Adapter{l}
}

// Nop returns an adapter that discards every entry, handy in tests
func Nop() *Adapter {
	l := zerolog.Nop()
	return &Adapter{&l}
}

// GetLevel implements logger.Logger.
func (z *Adapter) GetLevel() logger.Level {
	return toLevel(z.Logger.GetLevel())
}

// SetLevel implements logger.Logger.
func (z *Adapter) SetLevel(level logger.Level) {
	l := z.Logger.Level(toZerologLevel(level))
	z.Logger = &l
}

func (z *Adapter) Trace(args ...any) { z.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Info(args ...any)  { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Warn(args ...any)  { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Tracef(format string, args ...any) { z.Logger.Trace().Msgf(format, args...) }
func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z *Adapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z *Adapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }
func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }

// WithError implements Logger.
func (z *Adapter) WithError(err error) logger.Logger {
	newLogger := z.With().Err(err).Logger()
	return &Adapter{&newLogger}
}

// WithField implements Logger.
func (z *Adapter) WithField(key string, value any) logger.Logger {
	newLogger := z.With().Interface(key, value).Logger()
	return &Adapter{&newLogger}
}

// WithFields implements Logger.
func (z *Adapter) WithFields(fields map[string]any) logger.Logger {
	newLogger := z.With().Fields(fields).Logger()
	return &Adapter{&newLogger}
}

var levelPairs = []struct {
	ours   logger.Level
	theirs zerolog.Level
}{
	{logger.Disabled, zerolog.Disabled},
	{logger.NoLevel, zerolog.NoLevel},
	{logger.TraceLevel, zerolog.TraceLevel},
	{logger.DebugLevel, zerolog.DebugLevel},
	{logger.InfoLevel, zerolog.InfoLevel},
	{logger.WarnLevel, zerolog.WarnLevel},
	{logger.ErrorLevel, zerolog.ErrorLevel},
}

// toLevel converts zerolog.Level to logger.Level.
func toLevel(level zerolog.Level) logger.Level {
	for _, p := range levelPairs {
		if p.theirs == level {
			return p.ours
		}
	}
	return logger.NoLevel
}

// toZerologLevel converts logger.Level to zerolog.Level.
func toZerologLevel(level logger.Level) zerolog.Level {
	for _, p := range levelPairs {
		if p.ours == level {
			return p.theirs
		}
	}
	return zerolog.NoLevel
}
