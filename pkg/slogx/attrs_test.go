package slogx

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"error", Error(errors.New("boom")), "error", "boom"},
		{"nil error", Error(nil), "error", ""},
		{"logger name", LoggerName("broker"), "logger", "broker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, slog.KindString, tt.attr.Value.Kind())
			assert.Equal(t, tt.value, tt.attr.Value.String())
		})
	}
}

func TestAttrs_JSONHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil)).With(LoggerName("worker"))
	log.Info("handler failed", Error(errors.New("boom")))

	line := buf.String()
	assert.Equal(t, "worker", gjson.Get(line, KeyLoggerName).String())
	assert.Equal(t, "boom", gjson.Get(line, KeyError).String())
	assert.Equal(t, "handler failed", gjson.Get(line, "msg").String())
}
