package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_ReturnsUsableLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		log := New(env)
		require.NotNil(t, log)
		assert.NotNil(t, log.GetZerolog())
	}
}

func TestInfo_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.Info("bill synced", map[string]interface{}{"bill": "hr-1234", "congress": 119})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "bill synced", entry["message"])
	assert.Equal(t, "hr-1234", entry["bill"])
	assert.EqualValues(t, 119, entry["congress"])
}

func TestError_AttachesError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.Error("sync failed", errors.New("boom"), nil)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "boom", entry["error"])
}

func TestDebug_FilteredAtInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)

	log.Debug("noisy", nil)

	assert.Zero(t, buf.Len())
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel).WithRequestID("req-1")

	log.Warn("slow request", map[string]interface{}{"path": "/bills"})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/bills", entry["path"])
}

func TestWith_ChildKeepsParentUntouched(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.DebugLevel)
	child := parent.With(map[string]interface{}{"component": "sync"})

	child.Info("child", nil)
	childEntry := decodeLine(t, &buf)
	assert.Equal(t, "sync", childEntry["component"])

	buf.Reset()
	parent.Info("parent", nil)
	parentEntry := decodeLine(t, &buf)
	_, ok := parentEntry["component"]
	assert.False(t, ok)
}
