// Package logger - Structured logger setup shared by the commands.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	// Level is a logrus level name such as "debug" or "info". Empty means info.
	Level string
	// File, when set, adds a rotating log file next to stderr.
	File string
	// NoColors disables ANSI colors.
	NoColors bool
	// Output replaces stderr, mostly for tests.
	Output io.Writer
}

// Init builds a logger. Components receive it explicitly.
//
// Each line carries the calling function name, so log lines read "[file:line][func()] msg".
//
// Arguments:
//   - opts: Level, optional rotating file and output.
//
// Returns:
//   - *logrus.Logger: The configured logger.
//   - error: If the level name is not recognised.
func Init(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", opts.Level)
		}
		level = parsed
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	var out io.Writer = os.Stderr
	if opts.Output != nil {
		out = opts.Output
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)

	return l, nil
}
