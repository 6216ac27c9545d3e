// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects where pubforms logs go and how they are formatted.
type Params struct {
	// Level is a logrus level name; unknown names fall back to info.
	Level string
	JSON  bool
	// File is the path of the rotated log file. Empty logs to stdout only.
	File string
	// Stdout also writes to stdout when File is set.
	Stdout      bool
	Environment string
	Sentry      SentryParams
}

// SentryParams enables forwarding of error-level entries to Sentry.
type SentryParams struct {
	Enabled    bool
	DSN        string
	ServerName string
}

// Setup applies params to the standard logrus logger.
func Setup(params Params) {
	if params.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.Level))

	if params.Sentry.Enabled {
		if err := initSentry(params.Sentry, params.Environment); err != nil {
			logrus.Errorf("sentry init: %s", err)
		} else {
			logrus.Infoln("sentry hook installed")
		}
	}

	logrus.SetOutput(output(params))
	if params.File == "" {
		logrus.Println("logging to stdout")
	} else {
		logrus.Printf("logging to %s (stdout: %t)", logFilePath(params.File), params.Stdout)
	}
}

func initSentry(p SentryParams, environment string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Environment:      environment,
		Dsn:              p.DSN,
		TracesSampleRate: 1.0,
		ServerName:       p.ServerName,
	}); err != nil {
		return err
	}
	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	return nil
}

func output(params Params) io.Writer {
	if params.File == "" {
		return os.Stdout
	}
	file := &lumberjack.Logger{
		Filename:   logFilePath(params.File),
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		Compress:   true,
	}
	if params.Stdout {
		return NewCombinedWriter(os.Stdout, file)
	}
	return file
}

func logFilePath(path string) string {
	if strings.HasSuffix(path, ".log") {
		return path
	}
	return path + ".log"
}

// GetLevel parses a level name, defaulting to info.
func GetLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
