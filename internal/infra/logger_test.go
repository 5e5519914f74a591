package infra

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestStdLoggerInfof(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewStdLogger()
	logger.Infof("reviewing %s", "mr!42")

	out := buf.String()
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("expected [INFO] prefix, got: %s", out)
	}
	if !strings.Contains(out, "reviewing mr!42") {
		t.Errorf("expected formatted message, got: %s", out)
	}
}

func TestStdLoggerErrorf(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewStdLogger()
	logger.Errorf("fetch failed: %v", "timeout")

	out := buf.String()
	if !strings.Contains(out, "[ERROR]") {
		t.Errorf("expected [ERROR] prefix, got: %s", out)
	}
	if !strings.Contains(out, "fetch failed: timeout") {
		t.Errorf("expected formatted message, got: %s", out)
	}
}

func TestNopLogger(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	logger := NewNopLogger()
	logger.Infof("dropped")
	logger.Errorf("dropped")

	if buf.Len() != 0 {
		t.Errorf("nop logger wrote output: %s", buf.String())
	}
}
