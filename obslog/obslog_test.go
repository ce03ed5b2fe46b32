package obslog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(LevelWarn, &buf)

	logger.Log(Entry{Level: LevelInfo, Category: "store", Message: "ignored"})
	require.Empty(t, buf.String())

	logger.Log(Entry{Level: LevelError, Category: "store", Message: "boom"})
	require.Contains(t, buf.String(), "boom")
}

func TestNoOpLogger_NeverEnabled(t *testing.T) {
	var l NoOpLogger
	require.False(t, l.IsEnabled(LevelError))
}

func TestLogJSON_EscapesQuotesAndBackslashes(t *testing.T) {
	var buf bytes.Buffer
	logJSON(&buf, Entry{
		Category: "ingest",
		Message:  `payload had a "quote" and a \backslash`,
		ThreadID: "T1",
	})

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "{"))
	require.Contains(t, line, `\"quote\"`)
	require.Contains(t, line, `\\backslash`)
	require.Contains(t, line, `"thread_id":"T1"`)
}

func TestSetLogger_DefaultsToNoOp(t *testing.T) {
	SetLogger(nil)
	require.IsType(t, NoOpLogger{}, getLogger())
}
