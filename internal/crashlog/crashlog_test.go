package crashlog

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neboloop/extharness/internal/logging"
)

func TestLogPanicRecordsStack(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf, false)
	logging.Enable()
	defer logging.SetOutput(os.Stderr, false)

	before := Panics()
	func() {
		defer func() {
			if r := recover(); r != nil {
				LogPanic("orchestrator", r, "resource", "browser session")
			}
		}()
		panic("terminate exploded")
	}()

	assert.Equal(t, before+1, Panics())
	out := buf.String()
	assert.Contains(t, out, "component=orchestrator")
	assert.Contains(t, out, "terminate exploded")
	assert.Contains(t, out, "goroutine")
	assert.Contains(t, out, "browser session")
}

func TestLogErrorIgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf, false)
	logging.Enable()
	defer logging.SetOutput(os.Stderr, false)

	LogError("fixture", nil)
	assert.Empty(t, buf.String())

	LogError("fixture", errors.New("stop failed"))
	assert.Contains(t, buf.String(), "stop failed")
}
