package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)

	Info("synced %d products", 3)
	Warn("no match for order %d", 42)
	Error("boom")

	out := buf.String()
	assert.Contains(t, out, "[INFO] synced 3 products")
	assert.Contains(t, out, "[WARN] no match for order 42")
	assert.Contains(t, out, "[ERROR] boom")
}
