package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARN":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "info", FormatJSON)
	l.WithField("cluster", "acme").Info("created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "acme", entry["cluster"])
	assert.Equal(t, "created", entry["msg"])
}
