package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})

	l.Info("document written", "username", "alice")

	assert.Contains(t, buf.String(), `"msg":"document written"`)
	assert.Contains(t, buf.String(), `"username":"alice"`)
}

func TestNew_FormatFromEnvironment(t *testing.T) {
	var prod, dev bytes.Buffer
	New(Config{Writer: &prod, Environment: "production"}).Info("hello")
	New(Config{Writer: &dev, Environment: "development", NoColor: true}).Info("hello")

	assert.Contains(t, prod.String(), `"level":"INFO"`)
	assert.Contains(t, dev.String(), "INF hello")
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn, NoColor: true})

	l.Info("hidden")
	l.Warn("cache degraded", "backend", "memory")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WRN cache degraded backend=memory")
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: "pretty", NoColor: true})

	l.Component("cache").WithGroup("badger").Info("opened", "path", "/tmp/x y")

	assert.Contains(t, buf.String(), "component=cache")
	assert.Contains(t, buf.String(), `badger.path="/tmp/x y"`)
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: "json"})

	l.WithError(errors.New("boom")).WithField("book_id", "book-1").Error("failed")

	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"book_id":"book-1"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Info("nothing") })
}
