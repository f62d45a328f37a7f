// Package slogx holds the slog attributes shared by the courier packages, so
// the same field is always logged under the same key.
package slogx

import (
	"log/slog"
)

const (
	// KeyLoggerName is the key under which the component name is logged.
	KeyLoggerName = "logger"
	// KeyError is the key under which errors are logged.
	KeyError = "error"
)

// Error creates the attribute under which an error is logged.
//
// Every package logs failures through this helper so log processors can rely
// on a single key:
//
//	log.Error("handler failed", slogx.Error(err))
//
// Parameters:
//   - err: The error to log. A nil error is logged as an empty string.
//
// Returns:
//   - A string attribute with key KeyError and the message of err.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// LoggerName creates the attribute that names the component doing the logging.
//
// Components attach it once when they derive their logger:
//
//	log := logger.With(slogx.LoggerName("broker"))
//
// Parameters:
//   - name: The name of the component, for example "broker" or "runner".
//
// Returns:
//   - A string attribute with key KeyLoggerName and the given name.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}
