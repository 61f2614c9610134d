package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsCredentials(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"Authorization", "Bearer abc",
		"bearer", "eyJhbGciOi.eyJzdWIiOi.sig",
		"topic", "verbs",
		"dangling",
	})

	assert.Equal(t, []interface{}{
		"api_key", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"bearer", "[REDACTED]",
		"topic", "verbs",
		"dangling",
	}, out)
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("conversation_id", "c1")
	l.Info("hello", "n", 1)
	l.Warn("odd kv", "k")
}
