package util

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger is where every command logs. It writes text to stderr and is
// replaced by SetVerbose.
var Logger = newLogger(slog.LevelInfo)

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetVerbose switches Logger to debug level when on is true.
func SetVerbose(on bool) {
	FlagVerbose = on
	if on {
		Logger = newLogger(slog.LevelDebug)
	} else {
		Logger = newLogger(slog.LevelInfo)
	}
	slog.SetDefault(Logger)
}

func Verbosef(format string, v ...interface{}) {
	if FlagVerbose {
		fmt.Fprintf(os.Stderr, format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	Logger.Warn(fmt.Sprintf(format, v...))
}

func Warning(err error, v ...interface{}) bool {
	if err != nil {
		if len(v) == 0 {
			Warnf("%s", err)
		} else {
			format := v[0].(string)
			v = v[1:]
			Warnf("%s: %s", fmt.Sprintf(format, v...), err)
		}
		return true
	}
	return false
}

func Fatalf(format string, v ...interface{}) {
	Logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}

func Assert(err error, v ...interface{}) {
	if err != nil {
		if len(v) == 0 {
			Fatalf("%s", err)
		} else {
			format := v[0].(string)
			v = v[1:]
			Fatalf("%s: %s", fmt.Sprintf(format, v...), err)
		}
	}
}
