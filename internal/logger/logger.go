package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorMagenta = 35
	colorBold    = 1
)

var levelLabels = map[string]struct {
	label string
	color int
}{
	"trace": {"TRC", colorMagenta},
	"debug": {"DBG", colorYellow},
	"info":  {"INF", colorGreen},
	"warn":  {"WRN", colorRed},
	"error": {"ERR", colorRed},
	"fatal": {"FTL", colorRed},
	"panic": {"PNC", colorRed},
}

var (
	mu     sync.Mutex
	logger *zerolog.Logger
)

// Get returns the process logger, building it from ENV and LOG_LEVEL on first use.
func Get() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build(os.Stderr)
	}
	return logger
}

// For returns a child logger tagged with the component name.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// SetOutput replaces the process logger with one writing to w. Tests use it to
// silence or capture output.
func SetOutput(w io.Writer) {
	l := zerolog.New(w).With().Timestamp().Logger()
	mu.Lock()
	logger = &l
	mu.Unlock()
}

func build(out io.Writer) *zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid LOG_LEVEL %q; defaulting to 'info'\n", raw)
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)

	switch os.Getenv("ENV") {
	case "", "dev", "development":
		return console(out)
	default:
		return jsonLogger(out)
	}
}

// console is the human readable development writer.
func console(out io.Writer) *zerolog.Logger {
	w := zerolog.ConsoleWriter{
		Out:         out,
		TimeFormat:  "2006-01-02 15:04:05",
		FormatLevel: formatLevel,
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	return &zl
}

func jsonLogger(out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zl := zerolog.New(out).With().Timestamp().Logger()
	return &zl
}

func formatLevel(i interface{}) string {
	level, ok := i.(string)
	if !ok {
		s := strings.ToUpper(fmt.Sprintf("%v", i))
		if len(s) > 3 {
			s = s[:3]
		}
		return s
	}
	if l, ok := levelLabels[level]; ok {
		return colorize(l.label, l.color)
	}
	label := strings.ToUpper(level)
	if len(label) > 3 {
		label = label[:3]
	}
	return colorize(label, colorBold)
}

func colorize(s string, c int) string {
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}
