package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/casks-mutters/state-delta-audit/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI once the project
// configuration is known. Each package should create its own sub-logger from it.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a custom logging object that can log events to any number of writers, in structured (JSON) or
// unstructured (console) format, optionally colorized.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// fields describes the key-value context attached to every event logged by this Logger and its sub-loggers.
	fields []field

	// structuredLogger describes a logger that outputs JSON log events to structuredWriters.
	structuredLogger zerolog.Logger
	// structuredWriters describes the writers that receive JSON log events.
	structuredWriters []io.Writer

	// unstructuredLogger describes a logger that outputs plain console formatted events to unstructuredWriters.
	unstructuredLogger zerolog.Logger
	// unstructuredWriters describes the writers that receive plain console formatted events.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger describes a logger that outputs colorized console formatted events to
	// unstructuredColorWriters.
	unstructuredColorLogger zerolog.Logger
	// unstructuredColorWriters describes the writers that receive colorized console formatted events.
	unstructuredColorWriters []io.Writer
}

// field is a single key-value pair of logger context.
type field struct {
	key   string
	value string
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger creates a new Logger with the given level and no writers.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{level: level}
	l.rebuild()
	return l
}

// NewSubLogger creates a new Logger which shares the writers of this Logger and attaches the given key-value pair to
// every event. Each package should have its own sub-logger so that logs can be filtered by module.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	sub := &Logger{
		level:                    l.level,
		fields:                   append(append([]field(nil), l.fields...), field{key: key, value: value}),
		structuredWriters:        append([]io.Writer(nil), l.structuredWriters...),
		unstructuredWriters:      append([]io.Writer(nil), l.unstructuredWriters...),
		unstructuredColorWriters: append([]io.Writer(nil), l.unstructuredColorWriters...),
	}
	sub.rebuild()
	return sub
}

// AddWriter adds a writer to the channels where log output is sent. Unstructured writers may be colorized. Adding a
// writer which is already present for the given format is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for _, w := range *writers {
		if w == writer {
			return
		}
	}
	*writers = append(*writers, writer)
	l.rebuild()
}

// RemoveWriter removes a writer from the channels where log output is sent. If the writer is not present, this is a
// no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	writers := l.writersFor(format, colored)
	for i, w := range *writers {
		if w == writer {
			*writers = append((*writers)[:i], (*writers)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// writersFor returns the writer list for a given format and coloring.
func (l *Logger) writersFor(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writers, level and context fields.
func (l *Logger) rebuild() {
	l.structuredLogger = l.newZerologLogger(l.structuredWriters, func(w io.Writer) io.Writer {
		return w
	}, true)
	l.unstructuredLogger = l.newZerologLogger(l.unstructuredWriters, func(w io.Writer) io.Writer {
		return setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
	}, false)
	l.unstructuredColorLogger = l.newZerologLogger(l.unstructuredColorWriters, func(w io.Writer) io.Writer {
		return setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: false}, l.level)
	}, false)
}

// newZerologLogger creates a zerolog.Logger over the given writers, disabled if there are none.
func (l *Logger) newZerologLogger(writers []io.Writer, wrap func(io.Writer) io.Writer, timestamp bool) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	wrapped := make([]io.Writer, len(writers))
	for i, w := range writers {
		wrapped[i] = wrap(w)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(wrapped...)).Level(l.level).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	for _, f := range l.fields {
		ctx = ctx.Str(f.key, f.value)
	}
	return ctx.Logger()
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.log(zerolog.TraceLevel, args...)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.log(zerolog.DebugLevel, args...)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.log(zerolog.InfoLevel, args...)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.log(zerolog.WarnLevel, args...)
}

// Error is a wrapper function that will log an error event.
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// log builds the messages for every writer type and sends them at the given level. Arguments may contain
// colors.ColorFunc values to switch the color context, at most one error and at most one StructuredLogInfo.
func (l *Logger) log(level zerolog.Level, args ...any) {
	colorMsg, plainMsg, err, info := buildMsgs(args...)
	debug := l.level <= zerolog.DebugLevel

	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	colorLog := l.unstructuredColorLogger.WithLevel(level)

	for _, event := range []*zerolog.Event{structuredLog, unstructuredLog, colorLog} {
		// Stack must be requested before the error is attached. A nil err is ignored by zerolog.
		if debug && err != nil {
			event.Stack()
		}
		event.Err(err)
		if info != nil {
			event.Any("info", info)
		}
	}

	structuredLog.Msg(plainMsg)
	unstructuredLog.Msg(plainMsg)
	colorLog.Msg(colorMsg)
}

// buildMsgs takes a variadic list of arguments of any type and returns a colorized message for console output and
// a plain message for every other writer, along with an optional error and StructuredLogInfo.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	colorOutput := make([]string, 0, len(args))
	plainOutput := make([]string, 0, len(args))
	var info StructuredLogInfo
	var err error

	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			info = t
		case *LogBuffer:
			colorMsg, plainMsg, _, _ := buildMsgs(t.Args()...)
			colorOutput = append(colorOutput, colorMsg)
			plainOutput = append(plainOutput, plainMsg)
		case error:
			err = t
		default:
			colorOutput = append(colorOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorOutput, ""), strings.Join(plainOutput, ""), err, info
}

// setupDefaultFormatting updates a console writer's formatting to the project standard: no timestamp, and a short
// colored marker per level.
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// Messages arrive pre-colorized from buildMsgs
	writer.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("%v", i)
	}

	// Level markers are only colorized for colored writers
	paint := func(colorFunc colors.ColorFunc, s string) string {
		if writer.NoColor {
			return s
		}
		return colorFunc(s)
	}

	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		switch parsed {
		case zerolog.TraceLevel:
			return paint(colors.CyanBold, zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return paint(colors.BlueBold, zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return paint(colors.GreenBold, colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return paint(colors.YellowBold, zerolog.LevelWarnValue)
		case zerolog.ErrorLevel:
			return paint(colors.RedBold, zerolog.LevelErrorValue)
		case zerolog.FatalLevel:
			return paint(colors.RedBold, zerolog.LevelFatalValue)
		case zerolog.PanicLevel:
			return paint(colors.RedBold, zerolog.LevelPanicValue)
		default:
			return levelStr
		}
	}

	// The run ID is only useful in structured logs, and the module is noise on the console above debug level
	writer.FieldsExclude = []string{"run"}
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = append(writer.FieldsExclude, "module")
	}

	return writer
}
