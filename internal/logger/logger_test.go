package logger

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestNew_JSONOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Environment: "production", Level: "info", Output: &buf})

	log.WithField("component", "test").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "test", line["component"])
}

func TestNew_PlainTextLocally(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Environment: "local", Output: &buf})
	_, isText := log.Formatter.(*logrus.TextFormatter)
	require.True(t, isText)

	log.Info("hello")

	assert.Contains(t, buf.String(), "level=info")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Environment: "production", Output: &buf})

	r := httptest.NewRequest("POST", "/upload", nil)
	r.Header.Set("X-Request-ID", "abc")
	WithRequest(log, r).Info("request")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["req_id"])
	assert.Equal(t, "/upload", line["path"])

	buf.Reset()
	WithRequest(log, httptest.NewRequest("GET", "/", nil)).Info("request")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotEmpty(t, line["req_id"])
}
