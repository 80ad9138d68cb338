package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestProgressLogsElapsed(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(log.New(&buf))
	p.done("cutout finished")

	out := buf.String()
	if !strings.Contains(out, "cutout finished (") {
		t.Errorf("progress output = %q, want message with elapsed time", out)
	}
}
