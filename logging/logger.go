package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crytic/tokenfuzz/logging/colors"
	"github.com/rs/zerolog"
)

// GlobalLogger describes a Logger that is disabled by default and is instantiated when the fuzzer is created. Each
// package should create its own sub-logger from it so log output can be filtered by module.
var GlobalLogger = NewLogger(zerolog.Disabled)

// Logger describes a logging object that fans events out to three kinds of writers: structured (JSON) writers,
// unstructured writers and unstructured writers with ANSI coloring.
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context describes key-value pairs attached to every event emitted by this logger.
	context map[string]string

	// structuredLogger emits JSON events to structuredWriters.
	structuredLogger zerolog.Logger
	// structuredWriters describes the writers receiving JSON events.
	structuredWriters []io.Writer

	// unstructuredLogger emits uncolored, human-readable events to unstructuredWriters.
	unstructuredLogger zerolog.Logger
	// unstructuredWriters describes the writers receiving uncolored events.
	unstructuredWriters []io.Writer

	// unstructuredColorLogger emits colored, human-readable events to unstructuredColorWriters.
	unstructuredColorLogger zerolog.Logger
	// unstructuredColorWriters describes the writers receiving colored events.
	unstructuredColorWriters []io.Writer
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

// NewLogger creates a new Logger with the provided level and no writers.
func NewLogger(level zerolog.Level) *Logger {
	l := &Logger{
		level:                    level,
		context:                  make(map[string]string),
		structuredWriters:        make([]io.Writer, 0),
		unstructuredWriters:      make([]io.Writer, 0),
		unstructuredColorWriters: make([]io.Writer, 0),
	}
	l.rebuild()
	return l
}

// NewSubLogger creates a new Logger which shares this logger's writers and attaches the provided key-value pair to
// every event. Each package uses one so that logs are "grep-able" by module.
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	subContext := make(map[string]string, len(l.context)+1)
	for k, v := range l.context {
		subContext[k] = v
	}
	subContext[key] = value

	sub := &Logger{
		level:                    l.level,
		context:                  subContext,
		structuredWriters:        l.structuredWriters,
		unstructuredWriters:      l.unstructuredWriters,
		unstructuredColorWriters: l.unstructuredColorWriters,
	}
	sub.rebuild()
	return sub
}

// AddWriter adds a writer to the list of channels where log output will be sent. Unstructured writers may be
// colored. Adding a writer that is already registered in the same format is a no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat, colored bool) {
	target := l.writerList(format, colored)
	for _, w := range *target {
		if w == writer {
			return
		}
	}
	*target = append(*target, writer)
	l.rebuild()
}

// RemoveWriter removes a writer from the list of writers of the given format. If the writer does not exist, this
// function is a no-op.
func (l *Logger) RemoveWriter(writer io.Writer, format LogFormat, colored bool) {
	target := l.writerList(format, colored)
	for i, w := range *target {
		if w == writer {
			*target = append((*target)[:i], (*target)[i+1:]...)
			l.rebuild()
			return
		}
	}
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.rebuild()
}

// writerList returns a pointer to the writer list used for the given format and coloring.
func (l *Logger) writerList(format LogFormat, colored bool) *[]io.Writer {
	if format == STRUCTURED {
		return &l.structuredWriters
	}
	if colored {
		return &l.unstructuredColorWriters
	}
	return &l.unstructuredWriters
}

// rebuild recreates the underlying zerolog loggers from the current writers, level and context.
func (l *Logger) rebuild() {
	l.structuredLogger = l.newZerologLogger(l.structuredWriters, true)

	plainWriters := make([]io.Writer, len(l.unstructuredWriters))
	for i, w := range l.unstructuredWriters {
		plainWriters[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w, NoColor: true}, l.level)
	}
	l.unstructuredLogger = l.newZerologLogger(plainWriters, false)

	colorWriters := make([]io.Writer, len(l.unstructuredColorWriters))
	for i, w := range l.unstructuredColorWriters {
		colorWriters[i] = setupDefaultFormatting(zerolog.ConsoleWriter{Out: w}, l.level)
	}
	l.unstructuredColorLogger = l.newZerologLogger(colorWriters, false)
}

// newZerologLogger creates a zerolog.Logger over the given writers. With no writers, the logger is disabled so
// events are dropped without being formatted.
func (l *Logger) newZerologLogger(writers []io.Writer, timestamp bool) zerolog.Logger {
	if len(writers) == 0 {
		return zerolog.Nop()
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(l.level).With()
	if timestamp {
		ctx = ctx.Timestamp()
	}
	for k, v := range l.context {
		ctx = ctx.Str(k, v)
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

// Error is a wrapper function that will log an error event
func (l *Logger) Error(args ...any) {
	l.log(zerolog.ErrorLevel, args...)
}

// Panic is a wrapper function that will log a panic event and then panic.
func (l *Logger) Panic(args ...any) {
	l.log(zerolog.PanicLevel, args...)
}

// log builds the colored and uncolored messages from args and sends them out at the given level.
func (l *Logger) log(level zerolog.Level, args ...any) {
	colorMsg, plainMsg, err, info := buildMsgs(args...)

	structuredLog := l.structuredLogger.WithLevel(level)
	unstructuredLog := l.unstructuredLogger.WithLevel(level)
	colorLog := l.unstructuredColorLogger.WithLevel(level)

	// Stack traces are only attached at debug level or below, or when panicking.
	withStack := l.level <= zerolog.DebugLevel || level == zerolog.PanicLevel
	for _, event := range []*zerolog.Event{structuredLog, unstructuredLog, colorLog} {
		if event == nil {
			continue
		}
		if err != nil {
			event.Err(err)
			if withStack {
				event.Stack()
			}
		}
		if info != nil {
			event.Any("info", info)
		}
	}

	// WithLevel does not panic on its own, so all writers receive the event before we do.
	structuredLog.Msg(plainMsg)
	unstructuredLog.Msg(plainMsg)
	colorLog.Msg(colorMsg)
	if level == zerolog.PanicLevel {
		panic(plainMsg)
	}
}

// buildMsgs takes a variadic list of arguments of any type and returns a colorized message for console output, a
// plain message for every other writer, and optionally an error and a StructuredLogInfo found in the arguments.
// A colors.ColorFunc argument switches the color applied to every argument that follows it.
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
			// Only one structured log info is kept per message
			info = t
		case *LogBuffer:
			c, p, _, _ := buildMsgs(t.Args()...)
			colorOutput = append(colorOutput, c)
			plainOutput = append(plainOutput, p)
		case error:
			// Only one error is kept per message
			err = t
		default:
			colorOutput = append(colorOutput, colorCtx(t))
			plainOutput = append(plainOutput, fmt.Sprintf("%v", t))
		}
	}

	return strings.Join(colorOutput, ""), strings.Join(plainOutput, ""), err, info
}

// setupDefaultFormatting updates a console writer's formatting to the project standard.
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	// Messages carry their own coloring through colors.ColorFunc arguments
	writer.FormatMessage = func(i any) string {
		if i == nil {
			return ""
		}
		return fmt.Sprintf("%v", i)
	}

	noColor := writer.NoColor
	writer.FormatLevel = func(i any) string {
		levelStr, _ := i.(string)
		parsed, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return levelStr
		}

		paint := func(f colors.ColorFunc, s string) string {
			if noColor {
				return s
			}
			return f(s)
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

	// Above debug level the module component is noise on the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{"module"}
	}

	return writer
}
