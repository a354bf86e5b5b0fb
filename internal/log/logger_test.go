package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentWorker, JSON: true, Output: &buf})

	l.WithComponent(ComponentGeneration).Info("pass done")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentGeneration {
		t.Errorf("component = %v", rec[FieldComponent])
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Errorf("component repeated: %s", buf.String())
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}
	l.ErrorOp(context.Background(), OpGenerate, errors.New("boom"), FieldObligationID, "ob-1")
	out := buf.String()
	for _, want := range []string{"operation=generate", "error=boom", "obligation_id=ob-1", "component=app"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentBulk).
		WithOperation(OpUpdate).
		WithError(nil).
		WithMonth("m-1", "2025-03-01").
		WithGeneration(2, 1, 0)

	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not be recorded")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length = %d", len(f.ToSlice()))
	}

	var buf bytes.Buffer
	New(Config{Output: &buf}).WithFields(f).Info("x")
	if !strings.Contains(buf.String(), "month_start=2025-03-01") {
		t.Errorf("fields missing: %s", buf.String())
	}
}
