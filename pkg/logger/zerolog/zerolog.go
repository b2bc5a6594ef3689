package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	messageWidth = 80
	fileWidth    = 18
	lineWidth    = 4
)

type paintFunc func(format string, args ...interface{}) string

func plain(format string, args ...interface{}) string { return fmt.Sprintf(format, args...) }

type levelStyle struct {
	label string
	paint paintFunc
}

var levelStyles = map[string]levelStyle{
	zerolog.LevelTraceValue: {"TRC", term.Cyanf},
	zerolog.LevelDebugValue: {"DBG", term.Cyanf},
	zerolog.LevelInfoValue:  {"INF", term.Greenf},
	zerolog.LevelWarnValue:  {"WAR", term.Yellowf},
	zerolog.LevelErrorValue: {"ERR", term.Redf},
	zerolog.LevelFatalValue: {"FTL", term.Redf},
	zerolog.LevelPanicValue: {"PAN", term.Redf},
}

// New builds a zerolog logger writing to out. Console output is column aligned
// and optionally colourised, jsonFormat writes raw JSON lines instead.
func New(level, dateTimeLayout string, colored, jsonFormat bool, out io.Writer) (*zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logMode, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if out == nil {
		out = os.Stdout
	}

	if jsonFormat {
		l := zerolog.New(out).Level(logMode).With().Timestamp().Logger()
		return &l, nil
	}

	l := zerolog.New(newConsole(out, dateTimeLayout, colored)).
		Level(logMode).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &l, nil
}

func newConsole(out io.Writer, layout string, colored bool) zerolog.ConsoleWriter {
	f := formatter{layout: layout, colored: colored}
	return zerolog.ConsoleWriter{
		Out:             out,
		NoColor:         !colored,
		TimeFormat:      layout,
		FormatLevel:     f.level,
		FormatMessage:   f.message,
		FormatCaller:    f.caller,
		FormatTimestamp: f.timestamp,
	}
}

type formatter struct {
	layout  string
	colored bool
}

func (f formatter) paint(p paintFunc) paintFunc {
	if !f.colored {
		return plain
	}
	return p
}

func (f formatter) level(i interface{}) string {
	level, _ := i.(string)
	style, ok := levelStyles[level]
	if !ok {
		return f.paint(term.Whitef)("[UNK]")
	}
	return f.paint(style.paint)("[%s]", style.label)
}

func (f formatter) message(i interface{}) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}
	return f.paint(term.Whitef)("> %-*.*s", messageWidth, messageWidth, msg)
}

// caller renders file:line padded to a fixed width, long line numbers keep their last digits
func (f formatter) caller(i interface{}) string {
	name, ok := i.(string)
	if !ok || name == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(name), ":")
	if !found {
		return filepath.Base(name)
	}
	if len(line) > lineWidth {
		line = line[len(line)-lineWidth:]
	}
	return f.paint(term.Yellowf)("[%-*.*s:%*s]", fileWidth, fileWidth, file, lineWidth, line)
}

func (f formatter) timestamp(i interface{}) string {
	cyan := f.paint(term.Cyanf)

	value, ok := i.(string)
	if !ok {
		return cyan("[%v]", i)
	}
	if ts, err := time.ParseInLocation(time.RFC3339, value, time.Local); err == nil {
		value = ts.In(time.Local).Format(f.layout)
	}
	return cyan("[%s]", value)
}
