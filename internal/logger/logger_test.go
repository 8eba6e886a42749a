package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsRouteToSeparateWriters(t *testing.T) {
	var info, errs bytes.Buffer
	SetOutput(&info, &errs)
	defer SetOutput(os.Stdout, os.Stderr)

	Info("loaded %d products", 3)
	Warn("column %s missing", "cost")
	Error("boom: %v", "disk full")

	assert.Contains(t, info.String(), "loaded 3 products")
	assert.Contains(t, info.String(), "WARN column cost missing")
	assert.NotContains(t, info.String(), "boom")
	assert.Contains(t, errs.String(), "boom: disk full")
}
