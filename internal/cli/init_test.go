package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"financeiro/internal/log"
)

func TestSetupLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("debug", "json", &buf)
	logger.Debug("hello", "k", "v")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"component":"app"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestSetupLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("warn", "text", &buf)
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level: %s", buf.String())
	}
}

func TestShutdownRunsEveryStep(t *testing.T) {
	var ran []int
	boom := errors.New("boom")
	err := Shutdown(log.Discard(), time.Second,
		func(context.Context) error { ran = append(ran, 0); return boom },
		func(context.Context) error { ran = append(ran, 1); return nil },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want both steps", ran)
	}
}

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background(), log.Discard())
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
}
